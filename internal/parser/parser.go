// Package parser implements a hand-written recursive-descent parser
// producing an *ast.Module from source text, per spec §4.1's grammar. The
// file split (parser.go core, types.go, statements.go, expressions.go)
// mirrors the teacher's one-file-per-grammar-concern layout
// (funvibe-funxy/internal/parser/*.go).
package parser

import (
	"fmt"

	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/diagnostics"
	"github.com/wigmorewelsh/structured-agent/internal/lexer"
	"github.com/wigmorewelsh/structured-agent/internal/source"
	"github.com/wigmorewelsh/structured-agent/internal/token"
)

// Parser holds parse state over one source file's token stream.
type Parser struct {
	file   source.FileId
	tokens []token.Token
	docs   map[int]string
	pos    int
}

// Parse tokenizes and parses a module from the given source. Failure
// returns a *diagnostics.Error with CategoryParse and a span-anchored
// Diagnostic on the first offending token (spec §4.1's contract).
func Parse(sm *source.Map, file source.FileId) (*ast.Module, error) {
	f := sm.File(file)
	raw := lexAll(file, f.Contents)
	filtered, rawIndex := filterTrivia(raw)
	docs := buildDocMap(raw, filtered, rawIndex)

	p := &Parser{file: file, tokens: filtered, docs: docs}
	return p.parseModule()
}

func lexAll(file source.FileId, contents string) []token.Token {
	l := lexer.New(file, contents)
	var out []token.Token
	for {
		t := l.NextToken()
		out = append(out, t)
		if t.Type == token.EOF {
			break
		}
	}
	return out
}

// filterTrivia drops COMMENT and NEWLINE tokens (the grammar is otherwise
// whitespace-insensitive) and records, for each surviving token, its index
// in the raw stream.
func filterTrivia(raw []token.Token) ([]token.Token, []int) {
	var filtered []token.Token
	var rawIndex []int
	for i, t := range raw {
		if t.Type == token.COMMENT || t.Type == token.NEWLINE {
			continue
		}
		filtered = append(filtered, t)
		rawIndex = append(rawIndex, i)
	}
	return filtered, rawIndex
}

// buildDocMap implements: "# comment lines immediately preceding a
// definition, with no blank line between, aggregate (joined with \n) into
// that definition's documentation." Keyed by index into the filtered stream.
func buildDocMap(raw, filtered []token.Token, rawIndex []int) map[int]string {
	docs := make(map[int]string)
	for i, t := range filtered {
		if t.Type != token.FN && t.Type != token.EXTERN {
			continue
		}
		r := rawIndex[i]
		var lines []string
		j := r - 1
		if j >= 0 && raw[j].Type == token.NEWLINE {
			j--
		}
		for j >= 0 && raw[j].Type == token.COMMENT {
			lines = append([]string{trimHash(raw[j].Literal)}, lines...)
			j--
			if j >= 0 && raw[j].Type == token.NEWLINE {
				j--
				if j >= 0 && raw[j].Type == token.NEWLINE {
					break
				}
			} else {
				break
			}
		}
		if len(lines) > 0 {
			s := ""
			for idx, l := range lines {
				if idx > 0 {
					s += "\n"
				}
				s += l
			}
			docs[i] = s
		}
	}
	return docs
}

func trimHash(lexeme string) string {
	i := 0
	for i < len(lexeme) && lexeme[i] == '#' {
		i++
	}
	if i < len(lexeme) && lexeme[i] == ' ' {
		i++
	}
	return lexeme[i:]
}

// ---- token cursor helpers ----

func (p *Parser) cur() token.Token  { return p.tokens[p.pos] }
func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(tt token.Type) bool { return p.cur().Type == tt }

func (p *Parser) expect(tt token.Type, what string) (token.Token, error) {
	if p.cur().Type != tt {
		return token.Token{}, p.errorf(p.cur(), "expected %s", what)
	}
	return p.advance(), nil
}

func (p *Parser) errorf(t token.Token, format string, args ...any) error {
	pos := fmt.Sprintf(format, args...)
	return diagnostics.NewAt(diagnostics.CategoryParse, t.Span, "here",
		"Parse error at token %q: %s", t.Lexeme, pos)
}

// ---- module ----

func (p *Parser) parseModule() (*ast.Module, error) {
	mod := &ast.Module{File: p.file}
	for !p.at(token.EOF) {
		doc := p.docs[p.pos]
		switch p.cur().Type {
		case token.FN:
			fn, err := p.parseFunction(doc)
			if err != nil {
				return nil, err
			}
			mod.Defs = append(mod.Defs, fn)
		case token.EXTERN:
			ext, err := p.parseExternFunction(doc)
			if err != nil {
				return nil, err
			}
			mod.Defs = append(mod.Defs, ext)
		default:
			return nil, p.errorf(p.cur(), "expected 'fn' or 'extern'")
		}
	}
	return mod, nil
}
