package parser

import (
	"github.com/wigmorewelsh/structured-agent/internal/token"
	"github.com/wigmorewelsh/structured-agent/internal/types"
)

// parseType parses: '()' | 'Boolean' | 'String' | Ident | 'List' '<' Type '>' | 'Option' '<' Type '>'
func (p *Parser) parseType() (types.Type, error) {
	switch p.cur().Type {
	case token.UNIT:
		p.advance()
		return types.Unit{}, nil
	case token.KW_BOOLEAN:
		p.advance()
		return types.Boolean{}, nil
	case token.KW_STRING:
		p.advance()
		return types.String{}, nil
	case token.KW_LIST:
		p.advance()
		if _, err := p.expect(token.LANGLE, "'<'"); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RANGLE, "'>'"); err != nil {
			return nil, err
		}
		return types.List{Elem: elem}, nil
	case token.KW_OPTION:
		p.advance()
		if _, err := p.expect(token.LANGLE, "'<'"); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RANGLE, "'>'"); err != nil {
			return nil, err
		}
		return types.Option{Elem: elem}, nil
	case token.IDENT:
		name := p.advance().Lexeme
		return types.Named{Name: name}, nil
	default:
		return nil, p.errorf(p.cur(), "expected a type")
	}
}

// parseParamList parses a possibly-empty comma-separated `name: Type` list.
func (p *Parser) parseParamList() ([]paramDecl, error) {
	var params []paramDecl
	if p.at(token.RPAREN) {
		return params, nil
	}
	for {
		nameTok, err := p.expect(token.IDENT, "a parameter name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.COLON, "':'"); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, paramDecl{Name: nameTok.Lexeme, Type: ty})
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return params, nil
}

type paramDecl struct {
	Name string
	Type types.Type
}
