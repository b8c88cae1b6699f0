package parser

import (
	"github.com/fortall-lang/fortallc/pkg/ast"
	"github.com/fortall-lang/fortallc/pkg/lexer"
)

// binaryLevels lists operator precedence levels from loosest to tightest
var binaryLevels = []map[lexer.TokenType]ast.BinaryOp{
	{lexer.TokenOr: ast.OpOr},
	{lexer.TokenAnd: ast.OpAnd},
	{lexer.TokenEq: ast.OpEq, lexer.TokenNe: ast.OpNe},
	{lexer.TokenLt: ast.OpLt, lexer.TokenLe: ast.OpLe, lexer.TokenGt: ast.OpGt, lexer.TokenGe: ast.OpGe},
	{lexer.TokenPlus: ast.OpAdd, lexer.TokenMinus: ast.OpSub},
	{lexer.TokenStar: ast.OpMul, lexer.TokenSlash: ast.OpDiv},
}

// parseExpression returns ast.NoExpr after reporting an error
func (p *Parser) parseExpression() ast.ExprID {
	return p.parseBinary(0)
}

func (p *Parser) parseBinary(level int) ast.ExprID {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}
	left := p.parseBinary(level + 1)
	for left != ast.NoExpr {
		op, ok := binaryLevels[level][p.curToken.Type]
		if !ok {
			break
		}
		pos := p.pos()
		p.nextToken()
		right := p.parseBinary(level + 1)
		if right == ast.NoExpr {
			return ast.NoExpr
		}
		left = p.prog.AddExpr(ast.Binary{Pos: pos, Op: op, Left: left, Right: right})
	}
	return left
}

func (p *Parser) parseUnary() ast.ExprID {
	if p.curTokenIs(lexer.TokenNot) {
		pos := p.pos()
		p.nextToken()
		operand := p.parseUnary()
		if operand == ast.NoExpr {
			return ast.NoExpr
		}
		return p.prog.AddExpr(ast.Unary{Pos: pos, Op: ast.OpNot, Operand: operand})
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.ExprID {
	pos := p.pos()
	switch p.curToken.Type {
	case lexer.TokenIdent:
		if p.peekTokenIs(lexer.TokenLParen) {
			return p.parseCall()
		}
		name := p.curToken.Literal
		p.nextToken()
		return p.prog.AddExpr(ast.Ident{Pos: pos, Name: name})
	case lexer.TokenInt, lexer.TokenTrue, lexer.TokenFalse, lexer.TokenString:
		c, ok := p.parseConstant()
		if !ok {
			return ast.NoExpr
		}
		return p.prog.AddExpr(ast.Literal{Pos: pos, Value: c})
	case lexer.TokenLParen:
		p.nextToken()
		inner := p.parseExpression()
		if inner == ast.NoExpr || !p.expect(lexer.TokenRParen) {
			return ast.NoExpr
		}
		return inner
	}
	p.addError("expected expression, got %s", p.describe())
	return ast.NoExpr
}

// parseCall parses "name ( args )" with curToken on the name
func (p *Parser) parseCall() ast.ExprID {
	call := ast.Call{Pos: p.pos(), Name: p.curToken.Literal}
	p.nextToken() // consume name
	p.nextToken() // consume '('
	for !p.curTokenIs(lexer.TokenRParen) {
		if len(call.Args) > 0 && !p.expect(lexer.TokenComma) {
			return ast.NoExpr
		}
		arg := p.parseExpression()
		if arg == ast.NoExpr {
			return ast.NoExpr
		}
		call.Args = append(call.Args, arg)
	}
	p.nextToken() // consume ')'
	return p.prog.AddExpr(call)
}
