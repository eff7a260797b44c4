package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget_AcceptsKnownAliases(t *testing.T) {
	tests := []struct {
		alias string
		want  Target
	}{
		{"linux-x64", LinuxX64},
		{"linux-x86_64", LinuxX64},
		{"linux-amd64", LinuxX64},
		{"linux-arm64", LinuxArm64},
		{"linux-aarch64", LinuxArm64},
		{"windows-x64", WindowsX64},
		{"win64", WindowsX64},
		{"macos-x64", MacosX64},
		{"darwin-x64", MacosX64},
		{"macos-arm64", MacosArm64},
		{"darwin-arm64", MacosArm64},
		{"templeos", TempleosX86},
		{"templeos-x86", TempleosX86},
	}
	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			got, err := ParseTarget(tt.alias)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTarget_UnknownAliasIsError(t *testing.T) {
	_, err := ParseTarget("commodore-64")
	assert.Error(t, err)
}

func TestParseLang_AcceptsKnownAliases(t *testing.T) {
	tests := []struct {
		alias string
		want  Lang
	}{
		{"c", LangC},
		{"holyc", LangHolyC},
		{"til", LangTIL},
	}
	for _, tt := range tests {
		got, err := ParseLang(tt.alias)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseLang_UnknownAliasIsError(t *testing.T) {
	_, err := ParseLang("rust")
	assert.Error(t, err)
}

func TestDefaultLang_TempleosGetsHolyC(t *testing.T) {
	assert.Equal(t, LangHolyC, DefaultLang(TempleosX86))
}

func TestDefaultLang_EverythingElseGetsC(t *testing.T) {
	assert.Equal(t, LangC, DefaultLang(LinuxX64))
	assert.Equal(t, LangC, DefaultLang(MacosArm64))
}

func TestValidateLangForTarget_TILAlwaysSupported(t *testing.T) {
	assert.NoError(t, ValidateLangForTarget(LangTIL, LinuxX64))
	assert.NoError(t, ValidateLangForTarget(LangTIL, TempleosX86))
}

func TestValidateLangForTarget_HolyCOnlyOnTempleos(t *testing.T) {
	assert.NoError(t, ValidateLangForTarget(LangHolyC, TempleosX86))
	assert.Error(t, ValidateLangForTarget(LangHolyC, LinuxX64))
}

func TestValidateLangForTarget_COnlyOnNonTempleos(t *testing.T) {
	assert.NoError(t, ValidateLangForTarget(LangC, LinuxX64))
	assert.Error(t, ValidateLangForTarget(LangC, TempleosX86))
}

func TestToolchainCommand_ResolvesPerTargetAndLang(t *testing.T) {
	cmd, err := ToolchainCommand(LinuxX64, LangC)
	require.NoError(t, err)
	assert.Equal(t, "gcc", cmd)

	cmd, err = ToolchainCommand(MacosArm64, LangC)
	require.NoError(t, err)
	assert.Equal(t, "clang", cmd)
}

func TestToolchainCommand_MissingCombinationIsError(t *testing.T) {
	_, err := ToolchainCommand(TempleosX86, LangC)
	assert.Error(t, err)
}

func TestToolchainExtraArgs_MacosHasTargetTriple(t *testing.T) {
	assert.Equal(t, []string{"-target", "arm64-apple-macos11"}, ToolchainExtraArgs(MacosArm64))
	assert.Equal(t, []string{"-target", "x86_64-apple-macos10.12"}, ToolchainExtraArgs(MacosX64))
}

func TestToolchainExtraArgs_LinuxHasNone(t *testing.T) {
	assert.Nil(t, ToolchainExtraArgs(LinuxX64))
}

func TestExecutableExtension_WindowsGetsExe(t *testing.T) {
	assert.Equal(t, ".exe", ExecutableExtension(WindowsX64))
}

func TestExecutableExtension_EverythingElseHasNone(t *testing.T) {
	assert.Equal(t, "", ExecutableExtension(LinuxX64))
}

func TestDetectCurrent_ReturnsAKnownTarget(t *testing.T) {
	known := map[Target]bool{
		LinuxX64: true, LinuxArm64: true, WindowsX64: true,
		MacosX64: true, MacosArm64: true,
	}
	assert.True(t, known[DetectCurrent()])
}
