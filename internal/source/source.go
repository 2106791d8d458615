// Package source tracks source files and byte-range spans for diagnostics.
package source

import "strings"

// FileId indexes a file within a Map.
type FileId int

// Span is a half-open byte range within a single file.
type Span struct {
	File  FileId
	Start int
	End   int
}

// Position is a 1-indexed line/column location, derived from a Span.
type Position struct {
	Line   int
	Column int
}

// File holds the name and contents of one indexed source file.
type File struct {
	Name     string
	Contents string

	lineStarts []int
}

// Map is the source-files table: file name/contents indexed by FileId.
type Map struct {
	files []*File
}

// NewMap creates an empty source map.
func NewMap() *Map {
	return &Map{}
}

// Add registers a new source file and returns its FileId.
func (m *Map) Add(name, contents string) FileId {
	f := &File{Name: name, Contents: contents}
	f.lineStarts = computeLineStarts(contents)
	m.files = append(m.files, f)
	return FileId(len(m.files) - 1)
}

// File returns the File for the given id, or nil if out of range.
func (m *Map) File(id FileId) *File {
	if int(id) < 0 || int(id) >= len(m.files) {
		return nil
	}
	return m.files[id]
}

func computeLineStarts(contents string) []int {
	starts := []int{0}
	for i, c := range contents {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Position converts a byte offset into a 1-indexed line/column pair.
func (f *File) Position(offset int) Position {
	if f == nil {
		return Position{Line: 1, Column: 1}
	}
	// binary search for the last line start <= offset
	lo, hi := 0, len(f.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	line := lo
	col := offset - f.lineStarts[line]
	return Position{Line: line + 1, Column: col + 1}
}

// Line returns the contents of the given 1-indexed line, without its terminator.
func (f *File) Line(n int) string {
	if f == nil || n < 1 || n > len(f.lineStarts) {
		return ""
	}
	start := f.lineStarts[n-1]
	var end int
	if n < len(f.lineStarts) {
		end = f.lineStarts[n] - 1
	} else {
		end = len(f.Contents)
	}
	if end < start {
		end = start
	}
	return strings.TrimRight(f.Contents[start:end], "\r")
}

// Text returns the substring covered by a span.
func (m *Map) Text(s Span) string {
	f := m.File(s.File)
	if f == nil {
		return ""
	}
	if s.Start < 0 || s.End > len(f.Contents) || s.Start > s.End {
		return ""
	}
	return f.Contents[s.Start:s.End]
}
