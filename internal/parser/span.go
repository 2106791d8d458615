package parser

import "github.com/wigmorewelsh/structured-agent/internal/source"

// spanOf builds a span covering from the start of a to the end of b.
func spanOf(a, b source.Span) source.Span {
	return source.Span{File: a.File, Start: a.Start, End: b.End}
}
