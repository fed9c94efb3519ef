// Package parser is the recursive-descent PL/0 parser with panic-mode
// error recovery.
//
// Struct shape (Parser holding currentTokenPos/currentTokens, an
// expectToken-style match helper, a makeError-style diagnostic
// constructor) is grounded on the teacher's compiler/parser.go. Panic
// mode and the synchronization sets are new machinery the teacher never
// needed (Jack's tokenizer/parser never recovers from a syntax error,
// it just returns), generalized per spec.md §4.2 into an explicit
// sync-set-driven skip loop.
package parser

import (
	"github.com/xiaobogaga/plzero/internal/ast"
	"github.com/xiaobogaga/plzero/internal/diag"
	"github.com/xiaobogaga/plzero/internal/token"
)

// syncSet is a set of token kinds panic-mode recovery stops at.
type syncSet map[token.Kind]bool

func union(sets ...syncSet) syncSet {
	out := syncSet{}
	for _, s := range sets {
		for k := range s {
			out[k] = true
		}
	}
	return out
}

var statementSync = syncSet{
	token.Semicolon: true, token.Comma: true, token.End: true, token.If: true,
	token.While: true, token.Begin: true, token.Call: true, token.Read: true,
	token.Write: true, token.Else: true, token.Identifier: true,
}

var blockSync = union(statementSync, syncSet{
	token.Const: true, token.Var: true, token.Procedure: true,
})

var programSync = union(blockSync, syncSet{
	token.Dot: true, token.EOF: true,
})

type Parser struct {
	toks []token.Token
	pos  int
	sink *diag.Sink
}

func New(toks []token.Token, sink *diag.Sink) *Parser {
	return &Parser{toks: toks, sink: sink}
}

func (p *Parser) cur() token.Token {
	return p.toks[p.pos]
}

func (p *Parser) at(k token.Kind) bool {
	return p.cur().Kind == k
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// expect consumes the current token if it matches k, else reports a
// syntax error diagnostic (line, expected, found) and returns ok=false
// without advancing.
func (p *Parser) expect(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.sink.Errorf(diag.Syntax, p.cur().Line, "expected %s, found %s", k, p.cur().Kind)
	return token.Token{}, false
}

// sync discards tokens until the current one is in set or end-of-input.
func (p *Parser) sync(set syncSet) {
	for !p.at(token.EOF) && !set[p.cur().Kind] {
		p.advance()
	}
}

// Parse consumes the whole token stream and returns a Program AST. On
// syntax error the AST may be partial and diagnostics will be non-empty
// in the sink; analysis may still proceed to surface further issues,
// but codegen must not run.
func (p *Parser) Parse() *ast.Program {
	line := p.cur().Line
	if _, ok := p.expect(token.Program); !ok {
		p.sync(programSync)
	}
	nameTok, ok := p.expect(token.Identifier)
	name := nameTok.Lexeme
	if !ok {
		p.sync(programSync)
	}
	if _, ok := p.expect(token.Semicolon); !ok {
		p.sync(blockSync)
	}
	block := p.parseBlock()
	if _, ok := p.expect(token.Dot); !ok {
		p.sync(programSync)
	}
	return &ast.Program{Name: name, Block: block, Line: line}
}

func (p *Parser) parseBlock() *ast.Block {
	b := &ast.Block{}
	if p.at(token.Const) {
		b.Consts = p.parseConstDecls()
	}
	if p.at(token.Var) {
		b.Vars = p.parseVarDecls()
	}
	for p.at(token.Procedure) {
		b.Procs = append(b.Procs, p.parseProcedure())
	}
	b.Body = *p.parseStatement()
	return b
}

func (p *Parser) parseConstDecls() []ast.ConstDecl {
	var out []ast.ConstDecl
	p.advance() // const
	for {
		nameTok, ok := p.expect(token.Identifier)
		if !ok {
			p.sync(blockSync)
			return out
		}
		if _, ok := p.expect(token.Equal); !ok {
			p.sync(blockSync)
			return out
		}
		neg := false
		if p.at(token.Minus) {
			p.advance()
			neg = true
		} else if p.at(token.Plus) {
			p.advance()
		}
		valTok, ok := p.expect(token.Integer)
		if !ok {
			p.sync(blockSync)
			return out
		}
		v := valTok.IntVal
		if neg {
			v = -v
		}
		out = append(out, ast.ConstDecl{Name: nameTok.Lexeme, Value: v, Line: nameTok.Line})
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.Semicolon)
	return out
}

func (p *Parser) parseVarDecls() []ast.VarDecl {
	var out []ast.VarDecl
	p.advance() // var
	for {
		nameTok, ok := p.expect(token.Identifier)
		if !ok {
			p.sync(blockSync)
			return out
		}
		out = append(out, ast.VarDecl{Name: nameTok.Lexeme, Line: nameTok.Line})
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.Semicolon)
	return out
}

func (p *Parser) parseProcedure() *ast.Procedure {
	line := p.cur().Line
	p.advance() // procedure
	nameTok, ok := p.expect(token.Identifier)
	if !ok {
		p.sync(blockSync)
		return &ast.Procedure{Line: line}
	}
	var params []string
	if p.at(token.LParen) {
		p.advance()
		if !p.at(token.RParen) {
			for {
				paramTok, ok := p.expect(token.Identifier)
				if !ok {
					break
				}
				params = append(params, paramTok.Lexeme)
				if p.at(token.Comma) {
					p.advance()
					continue
				}
				break
			}
		}
		p.expect(token.RParen)
	}
	p.expect(token.Semicolon)
	block := p.parseBlock()
	p.expect(token.Semicolon)
	return &ast.Procedure{Name: nameTok.Lexeme, Params: params, Block: block, Line: line}
}

// parseStatement always returns a non-nil Stmt (an empty Compound for a
// statement position that's actually empty, e.g. before `end`/`;`).
func (p *Parser) parseStatement() *ast.Stmt {
	line := p.cur().Line
	switch p.cur().Kind {
	case token.Identifier:
		return p.parseAssign()
	case token.Call:
		return p.parseCall()
	case token.Begin:
		return p.parseCompound()
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.Read:
		return p.parseRead()
	case token.Write:
		return p.parseWrite()
	default:
		return &ast.Stmt{Kind: ast.CompoundStmt, Line: line}
	}
}

func (p *Parser) parseAssign() *ast.Stmt {
	nameTok := p.advance()
	line := nameTok.Line
	target := &ast.Expr{Kind: ast.VarExpr, Name: nameTok.Lexeme, Line: line}
	if _, ok := p.expect(token.Assign); !ok {
		p.sync(statementSync)
		return &ast.Stmt{Kind: ast.AssignStmt, Line: line, Target: target, Value: &ast.Expr{Kind: ast.NumExpr, Line: line}}
	}
	value := p.parseExpression()
	return &ast.Stmt{Kind: ast.AssignStmt, Line: line, Target: target, Value: value}
}

func (p *Parser) parseCall() *ast.Stmt {
	line := p.cur().Line
	p.advance() // call
	nameTok, ok := p.expect(token.Identifier)
	if !ok {
		p.sync(statementSync)
		return &ast.Stmt{Kind: ast.CallStmt, Line: line}
	}
	var args []*ast.Expr
	if p.at(token.LParen) {
		p.advance()
		if !p.at(token.RParen) {
			for {
				args = append(args, p.parseExpression())
				if p.at(token.Comma) {
					p.advance()
					continue
				}
				break
			}
		}
		p.expect(token.RParen)
	}
	return &ast.Stmt{Kind: ast.CallStmt, Line: line, CallName: nameTok.Lexeme, Args: args}
}

func (p *Parser) parseCompound() *ast.Stmt {
	line := p.cur().Line
	p.advance() // begin
	var stmts []*ast.Stmt
	stmts = append(stmts, p.parseStatement())
	for p.at(token.Semicolon) {
		p.advance()
		stmts = append(stmts, p.parseStatement())
	}
	if _, ok := p.expect(token.End); !ok {
		p.sync(statementSync)
	}
	return &ast.Stmt{Kind: ast.CompoundStmt, Line: line, Stmts: stmts}
}

func (p *Parser) parseIf() *ast.Stmt {
	line := p.cur().Line
	p.advance() // if
	cond := p.parseCondition()
	if _, ok := p.expect(token.Then); !ok {
		p.sync(statementSync)
	}
	thenStmt := p.parseStatement()
	var elseStmt *ast.Stmt
	if p.at(token.Else) {
		p.advance()
		elseStmt = p.parseStatement()
	}
	return &ast.Stmt{Kind: ast.IfStmt, Line: line, Cond: cond, Then: thenStmt, Else: elseStmt}
}

func (p *Parser) parseWhile() *ast.Stmt {
	line := p.cur().Line
	p.advance() // while
	cond := p.parseCondition()
	if _, ok := p.expect(token.Do); !ok {
		p.sync(statementSync)
	}
	body := p.parseStatement()
	return &ast.Stmt{Kind: ast.WhileStmt, Line: line, Cond: cond, Then: body}
}

func (p *Parser) parseRead() *ast.Stmt {
	line := p.cur().Line
	p.advance() // read
	var targets []*ast.Expr
	if _, ok := p.expect(token.LParen); !ok {
		p.sync(statementSync)
		return &ast.Stmt{Kind: ast.ReadStmt, Line: line}
	}
	for {
		nameTok, ok := p.expect(token.Identifier)
		if !ok {
			break
		}
		targets = append(targets, &ast.Expr{Kind: ast.VarExpr, Name: nameTok.Lexeme, Line: nameTok.Line})
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RParen)
	return &ast.Stmt{Kind: ast.ReadStmt, Line: line, ReadTargets: targets}
}

func (p *Parser) parseWrite() *ast.Stmt {
	line := p.cur().Line
	p.advance() // write
	var exprs []*ast.Expr
	if _, ok := p.expect(token.LParen); !ok {
		p.sync(statementSync)
		return &ast.Stmt{Kind: ast.WriteStmt, Line: line}
	}
	for {
		exprs = append(exprs, p.parseExpression())
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RParen)
	return &ast.Stmt{Kind: ast.WriteStmt, Line: line, WriteExprs: exprs}
}

func (p *Parser) parseCondition() *ast.Cond {
	line := p.cur().Line
	if p.at(token.Odd) {
		p.advance()
		return &ast.Cond{Kind: ast.OddCond, Line: line, Operand: p.parseExpression()}
	}
	left := p.parseExpression()
	op, ok := relOp(p.cur().Kind)
	if !ok {
		p.sink.Errorf(diag.Syntax, p.cur().Line, "expected a relational operator, found %s", p.cur().Kind)
		return &ast.Cond{Kind: ast.RelCond, Line: line, Left: left, Right: &ast.Expr{Kind: ast.NumExpr, Line: line}}
	}
	p.advance()
	right := p.parseExpression()
	return &ast.Cond{Kind: ast.RelCond, Line: line, Op: op, Left: left, Right: right}
}

func relOp(k token.Kind) (ast.RelOp, bool) {
	switch k {
	case token.Equal:
		return ast.RelEqual, true
	case token.NotEqual:
		return ast.RelNotEqual, true
	case token.Less:
		return ast.RelLess, true
	case token.LessEqual:
		return ast.RelLessEqual, true
	case token.Greater:
		return ast.RelGreater, true
	case token.GreaterEqual:
		return ast.RelGreaterEqual, true
	default:
		return 0, false
	}
}

// parseExpression: [+|-] term {(+|-) term}, left-associative.
func (p *Parser) parseExpression() *ast.Expr {
	line := p.cur().Line
	var left *ast.Expr
	if p.at(token.Plus) {
		p.advance()
		left = &ast.Expr{Kind: ast.UnaryExpr, Line: line, UOp: ast.UnaryPlus, Operand: p.parseTerm()}
	} else if p.at(token.Minus) {
		p.advance()
		left = &ast.Expr{Kind: ast.UnaryExpr, Line: line, UOp: ast.UnaryMinus, Operand: p.parseTerm()}
	} else {
		left = p.parseTerm()
	}
	for p.at(token.Plus) || p.at(token.Minus) {
		opLine := p.cur().Line
		op := ast.OpAdd
		if p.at(token.Minus) {
			op = ast.OpSub
		}
		p.advance()
		right := p.parseTerm()
		left = &ast.Expr{Kind: ast.BinaryExpr, Line: opLine, BOp: op, Left: left, Right: right}
	}
	return left
}

// parseTerm: factor {(*|/) factor}, left-associative.
func (p *Parser) parseTerm() *ast.Expr {
	left := p.parseFactor()
	for p.at(token.Star) || p.at(token.Slash) {
		opLine := p.cur().Line
		op := ast.OpMul
		if p.at(token.Slash) {
			op = ast.OpDiv
		}
		p.advance()
		right := p.parseFactor()
		left = &ast.Expr{Kind: ast.BinaryExpr, Line: opLine, BOp: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseFactor() *ast.Expr {
	line := p.cur().Line
	switch p.cur().Kind {
	case token.Identifier:
		t := p.advance()
		return &ast.Expr{Kind: ast.VarExpr, Name: t.Lexeme, Line: line}
	case token.Integer:
		t := p.advance()
		return &ast.Expr{Kind: ast.NumExpr, NumValue: t.IntVal, Line: line}
	case token.LParen:
		p.advance()
		e := p.parseExpression()
		p.expect(token.RParen)
		return e
	default:
		p.sink.Errorf(diag.Syntax, line, "expected an identifier, integer or '(', found %s", p.cur().Kind)
		p.sync(union(statementSync, syncSet{token.RParen: true, token.Then: true, token.Do: true}))
		return &ast.Expr{Kind: ast.NumExpr, Line: line}
	}
}
