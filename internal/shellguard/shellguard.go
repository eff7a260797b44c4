// Package shellguard enforces the command whitelist spec §4.13 requires
// of run_cmd: "run_cmd enforces a command whitelist depending on mode;
// safe_script has a stricter set." It parses the command line with
// go-shellquote (the same argv-splitting the teacher's CLI layer uses
// for shell-like input) and checks only the resolved program name
// against the active list.
package shellguard

import (
	"fmt"

	shellquote "github.com/kballard/go-shellquote"
)

// defaultAllowed is the whitelist for every mode except safe_script.
var defaultAllowed = map[string]bool{
	"echo": true, "cat": true, "ls": true, "pwd": true, "mkdir": true,
	"rm": true, "cp": true, "mv": true, "git": true, "go": true,
	"cc": true, "gcc": true, "clang": true, "sh": true, "bash": true,
	"true": true, "false": true, "test": true, "grep": true, "sed": true,
	"awk": true, "find": true, "sort": true, "head": true, "tail": true,
	"wc": true, "diff": true, "tar": true, "gzip": true, "date": true,
	"uname": true,
}

// safeScriptAllowed is the stricter whitelist for safe_script mode: no
// shell invocation, no mutation, no build tooling — read-only
// introspection of the filesystem only.
var safeScriptAllowed = map[string]bool{
	"echo": true, "cat": true, "ls": true, "pwd": true,
	"true": true, "false": true, "test": true, "grep": true,
	"wc": true, "date": true, "uname": true,
}

// Split parses line into argv using shell-word rules.
func Split(line string) ([]string, error) {
	return shellquote.Split(line)
}

// Check reports whether line's program name is permitted to run under
// modeName, returning the parsed argv on success.
func Check(modeName, line string) ([]string, error) {
	argv, err := Split(line)
	if err != nil {
		return nil, fmt.Errorf("run_cmd: cannot parse command line: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("run_cmd: empty command line")
	}
	allowed := defaultAllowed
	if modeName == "safe_script" {
		allowed = safeScriptAllowed
	}
	if !allowed[argv[0]] {
		return nil, fmt.Errorf("run_cmd: %q is not in the %s command whitelist", argv[0], modeName)
	}
	return argv, nil
}
