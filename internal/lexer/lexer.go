// Package lexer tokenizes source text per spec §4.1's grammar. It scans one
// rune at a time tracking line/column, in the style of the teacher's
// internal/lexer/lexer.go.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wigmorewelsh/structured-agent/internal/source"
	"github.com/wigmorewelsh/structured-agent/internal/token"
)

// Lexer scans a single source file into a token stream.
type Lexer struct {
	file         source.FileId
	input        string
	position     int
	readPosition int
	ch           rune
}

// New creates a Lexer over the given file's contents.
func New(file source.FileId, input string) *Lexer {
	l := &Lexer{file: file, input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) span(start int) source.Span {
	return source.Span{File: l.file, Start: start, End: l.position}
}

// NextToken returns the next lexical token. NEWLINE is significant only to
// the doc-comment aggregation rule in the parser; the grammar is otherwise
// whitespace-insensitive, so the parser simply skips NEWLINE wherever it is
// not needed.
func (l *Lexer) NextToken() token.Token {
	l.skipInsignificantWhitespace()

	start := l.position
	var tok token.Token

	switch l.ch {
	case 0:
		tok = token.Token{Type: token.EOF, Span: l.span(start)}
	case '\n':
		l.readChar()
		tok = token.Token{Type: token.NEWLINE, Lexeme: "\n", Span: l.span(start)}
	case '#':
		lexeme := l.readComment()
		tok = token.Token{Type: token.COMMENT, Lexeme: lexeme, Literal: lexeme, Span: l.span(start)}
	case '(':
		if l.peekChar() == ')' {
			l.readChar()
			l.readChar()
			tok = token.Token{Type: token.UNIT, Lexeme: "()", Span: l.span(start)}
		} else {
			l.readChar()
			tok = token.Token{Type: token.LPAREN, Lexeme: "(", Span: l.span(start)}
		}
	case ')':
		l.readChar()
		tok = token.Token{Type: token.RPAREN, Lexeme: ")", Span: l.span(start)}
	case '{':
		l.readChar()
		tok = token.Token{Type: token.LBRACE, Lexeme: "{", Span: l.span(start)}
	case '}':
		l.readChar()
		tok = token.Token{Type: token.RBRACE, Lexeme: "}", Span: l.span(start)}
	case '<':
		l.readChar()
		tok = token.Token{Type: token.LANGLE, Lexeme: "<", Span: l.span(start)}
	case '>':
		l.readChar()
		tok = token.Token{Type: token.RANGLE, Lexeme: ">", Span: l.span(start)}
	case '[':
		l.readChar()
		tok = token.Token{Type: token.LBRACKET, Lexeme: "[", Span: l.span(start)}
	case ']':
		l.readChar()
		tok = token.Token{Type: token.RBRACKET, Lexeme: "]", Span: l.span(start)}
	case ':':
		l.readChar()
		tok = token.Token{Type: token.COLON, Lexeme: ":", Span: l.span(start)}
	case ',':
		l.readChar()
		tok = token.Token{Type: token.COMMA, Lexeme: ",", Span: l.span(start)}
	case '_':
		if isIdentCont(l.peekChar()) {
			lexeme := l.readIdentifier()
			tok = token.Token{Type: token.LookupIdent(lexeme), Lexeme: lexeme, Span: l.span(start)}
		} else {
			l.readChar()
			tok = token.Token{Type: token.UNDERSCORE, Lexeme: "_", Span: l.span(start)}
		}
	case '!':
		l.readChar()
		tok = token.Token{Type: token.BANG, Lexeme: "!", Span: l.span(start)}
	case '=':
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			tok = token.Token{Type: token.FATARROW, Lexeme: "=>", Span: l.span(start)}
		} else {
			l.readChar()
			tok = token.Token{Type: token.ASSIGN, Lexeme: "=", Span: l.span(start)}
		}
	case '"':
		lexeme, lit := l.readString()
		tok = token.Token{Type: token.STRING, Lexeme: lexeme, Literal: lit, Span: l.span(start)}
	default:
		if isIdentStart(l.ch) {
			lexeme := l.readIdentifier()
			tok = token.Token{Type: token.LookupIdent(lexeme), Lexeme: lexeme, Literal: lexeme, Span: l.span(start)}
		} else {
			l.readChar()
			tok = token.Token{Type: token.ILLEGAL, Lexeme: string(l.input[start:l.position]), Span: l.span(start)}
		}
	}
	return tok
}

// skipInsignificantWhitespace skips spaces, tabs and carriage returns but
// leaves newlines and comments as tokens.
func (l *Lexer) skipInsignificantWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readComment() string {
	start := l.position
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
	return l.input[start:l.position]
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentCont(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isIdentCont(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readString consumes a double-quoted or triple-quoted raw string literal,
// returning the raw lexeme (with quotes) and the decoded literal value.
func (l *Lexer) readString() (string, string) {
	start := l.position
	if l.peekChar() == '"' {
		// could be the start of a triple-quoted raw string: """
		save := *l
		l.readChar() // consume 2nd "
		if l.peekChar() == '"' {
			l.readChar() // consume 3rd "
			l.readChar() // move past opening """
			contentStart := l.position
			for {
				if l.ch == 0 {
					break
				}
				if l.ch == '"' && l.peekChar() == '"' {
					save2 := *l
					l.readChar()
					if l.peekChar() == '"' {
						content := l.input[contentStart:save2.position]
						l.readChar() // consume 2nd closing "
						l.readChar() // consume 3rd closing "
						return l.input[start:l.position], content
					}
					*l = save2
				}
				l.readChar()
			}
			// unterminated: treat remainder as content
			return l.input[start:l.position], l.input[contentStart:l.position]
		}
		*l = save
	}

	l.readChar() // consume opening "
	var sb strings.Builder
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == '"' {
		l.readChar()
	}
	return l.input[start:l.position], sb.String()
}
