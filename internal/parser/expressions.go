package parser

import (
	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/token"
)

// parseExpression parses one Expression per spec §4.1's grammar. Expressions
// are not precedence-climbing in this language — every expression form is
// syntactically distinguished by its leading token, so a single dispatch
// suffices (no operator-precedence table is needed).
func (p *Parser) parseExpression() (ast.Expression, error) {
	switch p.cur().Type {
	case token.STRING:
		t := p.advance()
		return &ast.StringLiteral{Value: t.Literal, SpanValue: t.Span}, nil
	case token.TRUE:
		t := p.advance()
		return &ast.BooleanLiteral{Value: true, SpanValue: t.Span}, nil
	case token.FALSE:
		t := p.advance()
		return &ast.BooleanLiteral{Value: false, SpanValue: t.Span}, nil
	case token.UNIT:
		t := p.advance()
		return &ast.UnitLiteral{SpanValue: t.Span}, nil
	case token.UNDERSCORE:
		t := p.advance()
		return &ast.Placeholder{SpanValue: t.Span}, nil
	case token.LBRACKET:
		return p.parseListLiteral()
	case token.IF:
		return p.parseIfElseExpr()
	case token.SELECT:
		return p.parseSelectExpr()
	case token.IDENT:
		if p.peek().Type == token.LPAREN {
			return p.parseCall()
		}
		t := p.advance()
		return &ast.Variable{Name: t.Lexeme, SpanValue: t.Span}, nil
	default:
		return nil, p.errorf(p.cur(), "expected an expression")
	}
}

func (p *Parser) parseListLiteral() (ast.Expression, error) {
	start := p.cur().Span
	p.advance() // '['
	var elems []ast.Expression
	if !p.at(token.RBRACKET) {
		for {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	endTok, err := p.expect(token.RBRACKET, "']'")
	if err != nil {
		return nil, err
	}
	return &ast.ListLiteral{Elements: elems, SpanValue: spanOf(start, endTok.Span)}, nil
}

func (p *Parser) parseCall() (ast.Expression, error) {
	nameTok := p.advance() // IDENT
	p.advance()            // '('
	var args []ast.Expression
	if !p.at(token.RPAREN) {
		for {
			a, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	endTok, err := p.expect(token.RPAREN, "')'")
	if err != nil {
		return nil, err
	}
	return &ast.Call{Function: nameTok.Lexeme, Arguments: args, SpanValue: spanOf(nameTok.Span, endTok.Span)}, nil
}

// parseIfElseExpr parses the expression form: 'if' Expr '{' Expr '}' 'else' '{' Expr '}'
func (p *Parser) parseIfElseExpr() (ast.Expression, error) {
	start := p.cur().Span
	p.advance() // 'if'
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACE, "'{'"); err != nil {
		return nil, err
	}
	then, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACE, "'}'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ELSE, "'else'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACE, "'{'"); err != nil {
		return nil, err
	}
	elseExpr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	endTok, err := p.expect(token.RBRACE, "'}'")
	if err != nil {
		return nil, err
	}
	return &ast.IfElse{Condition: cond, Then: then, Else: elseExpr, SpanValue: spanOf(start, endTok.Span)}, nil
}

// parseSelectExpr parses: 'select' '{' Clause (',' Clause)* '}'
func (p *Parser) parseSelectExpr() (ast.Expression, error) {
	start := p.cur().Span
	p.advance() // 'select'
	if _, err := p.expect(token.LBRACE, "'{'"); err != nil {
		return nil, err
	}
	var clauses []*ast.SelectClause
	for {
		c, err := p.parseSelectClause()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	endTok, err := p.expect(token.RBRACE, "'}'")
	if err != nil {
		return nil, err
	}
	return &ast.Select{Clauses: clauses, SpanValue: spanOf(start, endTok.Span)}, nil
}

// parseSelectClause parses: Expr 'as' Ident '=>' Expr
func (p *Parser) parseSelectClause() (*ast.SelectClause, error) {
	start := p.cur().Span
	run, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.AS, "'as'"); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENT, "a result variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.FATARROW, "'=>'"); err != nil {
		return nil, err
	}
	next, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.SelectClause{
		ExpressionToRun: run,
		ResultVariable:  nameTok.Lexeme,
		ExpressionNext:  next,
		SpanValue:       spanOf(start, next.Span()),
	}, nil
}
