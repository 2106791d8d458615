package token

import "testing"

func TestLookupIdent_RecognizesKeywords(t *testing.T) {
	cases := map[string]Type{
		"fn":      FN,
		"extern":  EXTERN,
		"let":     LET,
		"if":      IF,
		"else":    ELSE,
		"while":   WHILE,
		"return":  RETURN,
		"select":  SELECT,
		"as":      AS,
		"true":    TRUE,
		"false":   FALSE,
		"Boolean": KW_BOOLEAN,
		"String":  KW_STRING,
		"List":    KW_LIST,
		"Option":  KW_OPTION,
	}
	for lexeme, want := range cases {
		if got := LookupIdent(lexeme); got != want {
			t.Errorf("LookupIdent(%q) = %v, want %v", lexeme, got, want)
		}
	}
}

func TestLookupIdent_PlainIdentifiersAreIDENT(t *testing.T) {
	for _, lexeme := range []string{"foo", "myVar", "context"} {
		if got := LookupIdent(lexeme); got != IDENT {
			t.Errorf("LookupIdent(%q) = %v, want IDENT", lexeme, got)
		}
	}
}
