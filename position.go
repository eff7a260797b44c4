package til

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Range identifies a half-open byte span [Start,End) within a single
// source file. It is deliberately tiny (two ints) since every token and
// every Expr node carries one.
type Range struct{ Start, End int }

func NewRange(start, end int) Range {
	return Range{Start: start, End: end}
}

func (r Range) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d..%d", r.Start, r.End)
}

// Str returns the substring of v this range covers.
func (r Range) Str(v []byte) string {
	return string(v[r.Start:r.End])
}

func (r Range) Contains(other Range) bool {
	return other.Start >= r.Start && other.End <= r.End
}

// Location is a resolved line/column position, used for diagnostics.
type Location struct {
	Line   int32
	Column int32
	Cursor int
	File   string
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// LineIndex converts byte cursor offsets into line/column pairs.
//
// It stores the start byte offset of each line (0-based). Given a
// cursor, it finds the line by binary searching line starts (O(log
// lines)) and computes the column as (runes since lineStart + 1).
// Construction is O(n) over the input and is meant to be built once
// per file and cached on the Lexer.
type LineIndex struct {
	input     []byte
	file      string
	lineStart []int
}

func NewLineIndex(file string, input []byte) *LineIndex {
	lineStart := make([]int, 1, 64)
	lineStart[0] = 0
	for i, b := range input {
		if b == '\n' {
			lineStart = append(lineStart, i+1)
		}
	}
	return &LineIndex{input: input, file: file, lineStart: lineStart}
}

func (li *LineIndex) LocationAt(cursor int) Location {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(li.input) {
		cursor = len(li.input)
	}

	lineIdx := sort.Search(len(li.lineStart), func(i int) bool {
		return li.lineStart[i] > cursor
	}) - 1
	if lineIdx < 0 {
		lineIdx = 0
	}

	lineStart := li.lineStart[lineIdx]
	col := int32(utf8.RuneCount(li.input[lineStart:cursor])) + 1

	return Location{
		Line:   int32(lineIdx + 1),
		Column: col,
		Cursor: cursor,
		File:   li.file,
	}
}
