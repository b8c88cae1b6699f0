// Package parser implements a recursive descent parser for Fortall
package parser

import (
	"strconv"

	"github.com/fortall-lang/fortallc/pkg/ast"
	"github.com/fortall-lang/fortallc/pkg/diag"
	"github.com/fortall-lang/fortallc/pkg/lexer"
)

// Parser parses Fortall source code into an arena AST
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	diags     diag.List
	prog      *ast.Program
}

// New creates a new Parser for the given lexer
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:    l,
		prog: &ast.Program{},
	}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse is a convenience wrapper parsing src in one call
func Parse(src string) (*ast.Program, diag.List) {
	p := New(lexer.New(src))
	prog := p.ParseProgram()
	return prog, p.Diagnostics()
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Diagnostics returns the syntax errors found so far
func (p *Parser) Diagnostics() diag.List {
	return p.diags
}

func (p *Parser) addError(format string, args ...interface{}) {
	p.diags.Errorf(p.curToken.Line, p.curToken.Column, format, args...)
}

func (p *Parser) pos() ast.Pos {
	return ast.Pos{Line: p.curToken.Line, Column: p.curToken.Column}
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError("expected %s, got %s", t, p.describe())
	return false
}

func (p *Parser) describe() string {
	switch p.curToken.Type {
	case lexer.TokenIdent, lexer.TokenInt:
		return strconv.Quote(p.curToken.Literal)
	case lexer.TokenIllegal:
		return "illegal token " + strconv.Quote(p.curToken.Literal)
	}
	return p.curToken.Type.String()
}

// synchronize skips to just past the next ';' or up to the next '}' so a
// malformed statement does not cascade into spurious errors.
func (p *Parser) synchronize() {
	for !p.curTokenIs(lexer.TokenEOF) {
		switch p.curToken.Type {
		case lexer.TokenSemicolon:
			p.nextToken()
			return
		case lexer.TokenRBrace:
			return
		}
		p.nextToken()
	}
}

// ParseProgram parses fields and functions until EOF
func (p *Parser) ParseProgram() *ast.Program {
	for !p.curTokenIs(lexer.TokenEOF) {
		switch {
		case p.curTokenIs(lexer.TokenFunc):
			if fn, ok := p.parseFunction(); ok {
				p.prog.Functions = append(p.prog.Functions, fn)
			}
		case p.curToken.Type.IsType():
			if f, ok := p.parseField(); ok {
				p.prog.Fields = append(p.prog.Fields, f)
			}
		default:
			p.addError("expected declaration, got %s", p.describe())
			p.nextToken()
			p.synchronize()
		}
	}
	return p.prog
}

func (p *Parser) parseType() (ast.Type, bool) {
	var t ast.Type
	switch p.curToken.Type {
	case lexer.TokenIntT:
		t = ast.Integer
	case lexer.TokenBoolT:
		t = ast.Boolean
	case lexer.TokenStrT:
		t = ast.String
	default:
		p.addError("expected type, got %s", p.describe())
		return ast.Unknown, false
	}
	p.nextToken()
	return t, true
}

func (p *Parser) parseName() (string, bool) {
	if !p.curTokenIs(lexer.TokenIdent) {
		p.addError("expected identifier, got %s", p.describe())
		return "", false
	}
	name := p.curToken.Literal
	p.nextToken()
	return name, true
}

func (p *Parser) parseField() (ast.Field, bool) {
	f := ast.Field{Pos: p.pos()}
	var ok bool
	if f.Type, ok = p.parseType(); !ok {
		p.synchronize()
		return f, false
	}
	if f.Name, ok = p.parseName(); !ok {
		p.synchronize()
		return f, false
	}
	if p.curTokenIs(lexer.TokenAssign) {
		p.nextToken()
		c, ok := p.parseConstant()
		if !ok {
			p.synchronize()
			return f, false
		}
		f.Init = &c
	}
	if !p.expect(lexer.TokenSemicolon) {
		p.synchronize()
		return f, false
	}
	return f, true
}

func (p *Parser) parseConstant() (ast.Constant, bool) {
	switch p.curToken.Type {
	case lexer.TokenInt:
		v, err := strconv.ParseInt(p.curToken.Literal, 10, 32)
		if err != nil {
			p.addError("integer literal %s out of range", p.curToken.Literal)
			p.nextToken()
			return ast.Constant{}, false
		}
		p.nextToken()
		return ast.IntConst(v), true
	case lexer.TokenTrue, lexer.TokenFalse:
		v := p.curTokenIs(lexer.TokenTrue)
		p.nextToken()
		return ast.BoolConst(v), true
	case lexer.TokenString:
		s := p.curToken.Literal
		p.nextToken()
		return ast.StrConst(s), true
	}
	p.addError("expected constant, got %s", p.describe())
	return ast.Constant{}, false
}

func (p *Parser) parseFunction() (ast.Function, bool) {
	fn := ast.Function{Pos: p.pos(), ReturnType: ast.Void, Body: ast.NoBlock}
	p.nextToken() // consume 'func'

	var ok bool
	if fn.Name, ok = p.parseName(); !ok {
		p.synchronize()
		return fn, false
	}
	if !p.expect(lexer.TokenLParen) {
		p.synchronize()
		return fn, false
	}
	for !p.curTokenIs(lexer.TokenRParen) {
		if len(fn.Params) > 0 && !p.expect(lexer.TokenComma) {
			p.synchronize()
			return fn, false
		}
		param := ast.Param{Pos: p.pos()}
		if param.Type, ok = p.parseType(); !ok {
			p.synchronize()
			return fn, false
		}
		if param.Name, ok = p.parseName(); !ok {
			p.synchronize()
			return fn, false
		}
		fn.Params = append(fn.Params, param)
	}
	p.nextToken() // consume ')'

	if p.curTokenIs(lexer.TokenColon) {
		p.nextToken()
		if fn.ReturnType, ok = p.parseType(); !ok {
			p.synchronize()
			return fn, false
		}
	}

	if !p.curTokenIs(lexer.TokenLBrace) {
		p.addError("expected '{', got %s", p.describe())
		p.synchronize()
		return fn, false
	}
	fn.Body = p.parseBlock()
	return fn, true
}

func (p *Parser) parseBlock() ast.BlockID {
	block := ast.Block{Pos: p.pos()}

	p.nextToken() // consume '{'

	for !p.curTokenIs(lexer.TokenRBrace) && !p.curTokenIs(lexer.TokenEOF) {
		if stmt := p.parseStatement(); stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}

	p.expect(lexer.TokenRBrace)

	return p.prog.AddBlock(block)
}

func (p *Parser) parseStatement() ast.Stmt {
	switch p.curToken.Type {
	case lexer.TokenIntT, lexer.TokenBoolT, lexer.TokenStrT:
		return p.parseVarDecl()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenReturn:
		return p.parseReturn()
	case lexer.TokenWrite:
		return p.parseWrite()
	case lexer.TokenRead:
		return p.parseRead()
	case lexer.TokenSemicolon:
		s := ast.Empty{Pos: p.pos()}
		p.nextToken()
		return s
	case lexer.TokenIdent:
		if p.peekTokenIs(lexer.TokenAssign) {
			return p.parseAssign()
		}
		if p.peekTokenIs(lexer.TokenLParen) {
			return p.parseCallStmt()
		}
	}
	p.addError("unexpected %s in statement", p.describe())
	p.nextToken()
	p.synchronize()
	return nil
}

// endStatement consumes the terminating ';'
func (p *Parser) endStatement(s ast.Stmt) ast.Stmt {
	if !p.expect(lexer.TokenSemicolon) {
		p.synchronize()
		return nil
	}
	return s
}

func (p *Parser) parseVarDecl() ast.Stmt {
	s := ast.VarDecl{Pos: p.pos(), Init: ast.NoExpr}
	s.Type, _ = p.parseType()
	var ok bool
	if s.Name, ok = p.parseName(); !ok {
		p.synchronize()
		return nil
	}
	if p.curTokenIs(lexer.TokenAssign) {
		p.nextToken()
		if s.Init = p.parseExpression(); s.Init == ast.NoExpr {
			p.synchronize()
			return nil
		}
	}
	return p.endStatement(s)
}

func (p *Parser) parseAssign() ast.Stmt {
	s := ast.Assign{Pos: p.pos()}
	s.Target = p.prog.AddExpr(ast.Ident{Pos: p.pos(), Name: p.curToken.Literal})
	p.nextToken() // consume name
	p.nextToken() // consume '='
	if s.Value = p.parseExpression(); s.Value == ast.NoExpr {
		p.synchronize()
		return nil
	}
	return p.endStatement(s)
}

func (p *Parser) parseCallStmt() ast.Stmt {
	s := ast.CallStmt{Pos: p.pos()}
	if s.Call = p.parseCall(); s.Call == ast.NoExpr {
		p.synchronize()
		return nil
	}
	return p.endStatement(s)
}

// parseCondition parses "( expr )"
func (p *Parser) parseCondition() ast.ExprID {
	if !p.expect(lexer.TokenLParen) {
		return ast.NoExpr
	}
	cond := p.parseExpression()
	if cond == ast.NoExpr || !p.expect(lexer.TokenRParen) {
		return ast.NoExpr
	}
	return cond
}

func (p *Parser) expectBlock() (ast.BlockID, bool) {
	if !p.curTokenIs(lexer.TokenLBrace) {
		p.addError("expected '{', got %s", p.describe())
		p.synchronize()
		return ast.NoBlock, false
	}
	return p.parseBlock(), true
}

func (p *Parser) parseIf() ast.Stmt {
	s := ast.If{Pos: p.pos(), Else: ast.NoBlock}
	p.nextToken() // consume 'if'
	if s.Cond = p.parseCondition(); s.Cond == ast.NoExpr {
		p.synchronize()
		return nil
	}
	var ok bool
	if s.Then, ok = p.expectBlock(); !ok {
		return nil
	}
	if p.curTokenIs(lexer.TokenElse) {
		p.nextToken()
		if s.Else, ok = p.expectBlock(); !ok {
			return nil
		}
	}
	return s
}

func (p *Parser) parseWhile() ast.Stmt {
	s := ast.While{Pos: p.pos()}
	p.nextToken() // consume 'while'
	if s.Cond = p.parseCondition(); s.Cond == ast.NoExpr {
		p.synchronize()
		return nil
	}
	var ok bool
	if s.Body, ok = p.expectBlock(); !ok {
		return nil
	}
	return s
}

func (p *Parser) parseReturn() ast.Stmt {
	s := ast.Return{Pos: p.pos(), Value: ast.NoExpr}
	p.nextToken() // consume 'return'
	if !p.curTokenIs(lexer.TokenSemicolon) {
		if s.Value = p.parseExpression(); s.Value == ast.NoExpr {
			p.synchronize()
			return nil
		}
	}
	return p.endStatement(s)
}

func (p *Parser) parseWrite() ast.Stmt {
	s := ast.Write{Pos: p.pos()}
	p.nextToken() // consume 'write'
	if s.Value = p.parseCondition(); s.Value == ast.NoExpr {
		p.synchronize()
		return nil
	}
	return p.endStatement(s)
}

func (p *Parser) parseRead() ast.Stmt {
	s := ast.Read{Pos: p.pos()}
	p.nextToken() // consume 'read'
	if !p.expect(lexer.TokenLParen) {
		p.synchronize()
		return nil
	}
	if !p.curTokenIs(lexer.TokenIdent) {
		p.addError("expected identifier, got %s", p.describe())
		p.synchronize()
		return nil
	}
	s.Target = p.prog.AddExpr(ast.Ident{Pos: p.pos(), Name: p.curToken.Literal})
	p.nextToken()
	if !p.expect(lexer.TokenRParen) {
		p.synchronize()
		return nil
	}
	return p.endStatement(s)
}
