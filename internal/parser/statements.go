package parser

import (
	"github.com/wigmorewelsh/structured-agent/internal/ast"
	"github.com/wigmorewelsh/structured-agent/internal/token"
)

// parseFunction parses: 'fn' Ident '(' ParamList? ')' ':' Type Block
func (p *Parser) parseFunction(doc string) (*ast.Function, error) {
	start := p.cur().Span
	p.advance() // 'fn'
	nameTok, err := p.expect(token.IDENT, "a function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN, "'('"); err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON, "':'"); err != nil {
		return nil, err
	}
	retType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	fn := &ast.Function{
		Name:          nameTok.Lexeme,
		ReturnType:    retType,
		Body:          body,
		Documentation: doc,
		SpanValue:     spanOf(start, body.SpanValue),
	}
	for _, pd := range params {
		fn.Parameters = append(fn.Parameters, ast.Param{Name: pd.Name, Type: pd.Type})
	}
	return fn, nil
}

// parseExternFunction parses: 'extern' 'fn' Ident '(' ParamList? ')' ':' Type
func (p *Parser) parseExternFunction(doc string) (*ast.ExternalFunction, error) {
	start := p.cur().Span
	p.advance() // 'extern'
	if _, err := p.expect(token.FN, "'fn'"); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENT, "a function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN, "'('"); err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON, "':'"); err != nil {
		return nil, err
	}
	retType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	retTypeEnd := p.tokens[p.pos-1].Span

	ext := &ast.ExternalFunction{
		Name:          nameTok.Lexeme,
		ReturnType:    retType,
		Documentation: doc,
		SpanValue:     spanOf(start, retTypeEnd),
	}
	for _, pd := range params {
		ext.Parameters = append(ext.Parameters, ast.Param{Name: pd.Name, Type: pd.Type})
	}
	return ext, nil
}

func (p *Parser) parseBlock() (*ast.FunctionBody, error) {
	startTok, err := p.expect(token.LBRACE, "'{'")
	if err != nil {
		return nil, err
	}
	body := &ast.FunctionBody{}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body.Statements = append(body.Statements, stmt)
	}
	endTok, err := p.expect(token.RBRACE, "'}'")
	if err != nil {
		return nil, err
	}
	body.SpanValue = spanOf(startTok.Span, endTok.Span)
	return body, nil
}

// parseStatement parses one Statement per spec §4.1's grammar.
func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.cur().Type {
	case token.LET:
		return p.parseAssignment()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.IDENT:
		if p.peek().Type == token.ASSIGN {
			return p.parseVariableAssignment()
		}
		return p.parseExprOrInjection()
	default:
		return p.parseExprOrInjection()
	}
}

func (p *Parser) parseAssignment() (ast.Statement, error) {
	start := p.cur().Span
	p.advance() // 'let'
	nameTok, err := p.expect(token.IDENT, "a variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN, "'='"); err != nil {
		return nil, err
	}
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Assignment{Name: nameTok.Lexeme, Value: val, SpanValue: spanOf(start, val.Span())}, nil
}

func (p *Parser) parseVariableAssignment() (ast.Statement, error) {
	nameTok := p.advance() // IDENT
	p.advance()            // '='
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.VariableAssignment{Name: nameTok.Lexeme, Value: val, SpanValue: spanOf(nameTok.Span, val.Span())}, nil
}

func (p *Parser) parseIfStatement() (ast.Statement, error) {
	start := p.cur().Span
	p.advance() // 'if'
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.If{Condition: cond, Body: body, SpanValue: spanOf(start, body.SpanValue)}
	if p.at(token.ELSE) {
		p.advance()
		elseBody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.ElseBody = elseBody
		stmt.SpanValue = spanOf(start, elseBody.SpanValue)
	}
	return stmt, nil
}

func (p *Parser) parseWhileStatement() (ast.Statement, error) {
	start := p.cur().Span
	p.advance() // 'while'
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{Condition: cond, Body: body, SpanValue: spanOf(start, body.SpanValue)}, nil
}

func (p *Parser) parseReturnStatement() (ast.Statement, error) {
	start := p.cur().Span
	p.advance() // 'return'
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Return{Value: val, SpanValue: spanOf(start, val.Span())}, nil
}

// parseExprOrInjection parses `Expr '!'` (an injection) or a bare
// expression statement.
func (p *Parser) parseExprOrInjection() (ast.Statement, error) {
	start := p.cur().Span
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.at(token.BANG) {
		bangTok := p.advance()
		return &ast.Injection{Value: expr, SpanValue: spanOf(start, bangTok.Span)}, nil
	}
	return &ast.ExpressionStatement{Value: expr, SpanValue: spanOf(start, expr.Span())}, nil
}
