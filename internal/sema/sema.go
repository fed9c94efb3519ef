// Package sema is the semantic analyzer: name resolution, arity and
// kind checks, constant folding, and the static safety diagnostics of
// spec.md §4.4, plus the supplemented shadowing and unused-variable
// warnings.
//
// Grounded on the teacher's compiler/type_checker.go two-pass-over-the-
// AST shape (one exported entry function per class of check, called in
// sequence by the pipeline) and on
// original_source/PL0-Lexer/src/semantic_analyzer.py for the constant-
// folding / dead-branch / shadowing / unused-variable semantics
// themselves.
package sema

import (
	"fmt"

	"github.com/xiaobogaga/plzero/internal/ast"
	"github.com/xiaobogaga/plzero/internal/diag"
	"github.com/xiaobogaga/plzero/internal/symtab"
)

type Analyzer struct {
	sink *diag.Sink
	tab  *symtab.Table
}

func New(sink *diag.Sink) *Analyzer {
	return &Analyzer{sink: sink, tab: symtab.New()}
}

// Analyze decorates prog's AST in place. Callers should check
// sink.HasErrors() afterwards before proceeding to codegen.
func (a *Analyzer) Analyze(prog *ast.Program) {
	a.block(prog.Block, 0, nil)
}

// block analyzes one block at the given nesting level: declares consts,
// vars and procedures (each procedure recursing at level+1), then walks
// the body statement. Procedures may reference their own name (direct
// recursion) and previously declared siblings only — mutual forward
// references are not supported, which falls out naturally from
// declaring procedures one at a time, left to right.
func (a *Analyzer) block(b *ast.Block, level int, params []string) {
	a.tab.EnterScope(level)
	defer a.tab.ExitScope()

	// Params share this block's scope and offset space, occupying
	// offsets 3..3+P-1 ahead of any local var, per spec.md §4.3.
	for _, param := range params {
		if a.tab.Shadows(param) {
			a.sink.Warnf(diag.Semantic, b.Body.Line, "parameter '%s' shadows an identifier from an enclosing scope", param)
		}
		if err := a.tab.DeclareParam(param, b.Body.Line); err != nil {
			a.sink.Errorf(diag.Semantic, b.Body.Line, "duplicate declaration: %s", param)
		}
	}

	for _, c := range b.Consts {
		if a.tab.Shadows(c.Name) {
			a.sink.Warnf(diag.Semantic, c.Line, "const '%s' shadows an identifier from an enclosing scope", c.Name)
		}
		if err := a.tab.DeclareConst(c.Name, c.Value, c.Line); err != nil {
			a.sink.Errorf(diag.Semantic, c.Line, "duplicate declaration: %s", c.Name)
		}
	}
	for _, v := range b.Vars {
		if a.tab.Shadows(v.Name) {
			a.sink.Warnf(diag.Semantic, v.Line, "var '%s' shadows an identifier from an enclosing scope", v.Name)
		}
		if err := a.tab.DeclareVar(v.Name, v.Line); err != nil {
			a.sink.Errorf(diag.Semantic, v.Line, "duplicate declaration: %s", v.Name)
		}
	}
	// A procedure must be visible (for direct recursion) before its own
	// body is analyzed, so declare the name first, then recurse.
	for _, p := range b.Procs {
		if err := a.tab.DeclareProc(p.Name, level, len(p.Params), p.Line); err != nil {
			a.sink.Errorf(diag.Semantic, p.Line, "duplicate declaration: %s", p.Name)
			continue
		}
		a.block(p.Block, level+1, p.Params)
	}

	a.statement(&b.Body)

	for _, sym := range a.tab.UnreferencedVars() {
		a.sink.Warnf(diag.Semantic, sym.Line, "var '%s' is declared but never used", sym.Name)
	}
}

func (a *Analyzer) statement(s *ast.Stmt) {
	switch s.Kind {
	case ast.AssignStmt:
		a.expr(s.Value)
		sym, diff, err := a.tab.Resolve(s.Target.Name)
		if err != nil {
			a.undeclared(s.Line, s.Target.Name)
			return
		}
		if sym.Kind != symtab.Var {
			a.sink.Errorf(diag.Semantic, s.Line, "cannot assign to %s '%s'", kindName(sym.Kind), s.Target.Name)
			return
		}
		sym.Initialized = true
		s.TargetSym = &ast.ResolvedSymbol{Kind: ast.VarSym, LevelDiff: diff, Offset: sym.Offset}
	case ast.CallStmt:
		sym, diff, err := a.tab.Resolve(s.CallName)
		if err != nil {
			a.undeclared(s.Line, s.CallName)
			for _, arg := range s.Args {
				a.expr(arg)
			}
			return
		}
		if sym.Kind != symtab.Procedure {
			a.sink.Errorf(diag.Semantic, s.Line, "cannot call %s '%s'", kindName(sym.Kind), s.CallName)
			return
		}
		if len(s.Args) != sym.ParamCount {
			a.sink.Errorf(diag.Semantic, s.Line, "procedure '%s' expects %d argument(s), got %d", s.CallName, sym.ParamCount, len(s.Args))
		}
		for _, arg := range s.Args {
			a.expr(arg)
		}
		// Entry is not yet known here: procedure entry addresses are only
		// fixed as codegen linearizes the tree. codegen resolves it by
		// walking its own procedure-entry scope stack, paralleling this
		// same declare-before-recurse traversal.
		s.CallSym = &ast.ResolvedSymbol{Kind: ast.ProcSym, LevelDiff: diff, ParamCount: sym.ParamCount}
	case ast.IfStmt:
		a.cond(s.Cond)
		a.statement(s.Then)
		if s.Else != nil {
			a.statement(s.Else)
		}
		if s.Cond.Folded {
			if !s.Cond.FoldedValue {
				a.sink.Warnf(diag.Semantic, s.Line, "condition is always false; the then-branch is dead code")
			} else if s.Else != nil {
				a.sink.Warnf(diag.Semantic, s.Line, "condition is always true; the else-branch is dead code")
			}
		}
	case ast.WhileStmt:
		a.cond(s.Cond)
		a.statement(s.Then)
		if s.Cond.Folded && s.Cond.FoldedValue {
			a.sink.Warnf(diag.Semantic, s.Line, "while condition is always true; this loop never terminates")
		}
	case ast.CompoundStmt:
		for _, sub := range s.Stmts {
			a.statement(sub)
		}
	case ast.ReadStmt:
		s.ReadSyms = make([]*ast.ResolvedSymbol, len(s.ReadTargets))
		for i, target := range s.ReadTargets {
			sym, diff, err := a.tab.Resolve(target.Name)
			if err != nil {
				a.undeclared(s.Line, target.Name)
				continue
			}
			if sym.Kind != symtab.Var {
				a.sink.Errorf(diag.Semantic, s.Line, "cannot read into %s '%s'", kindName(sym.Kind), target.Name)
				continue
			}
			sym.Initialized = true
			s.ReadSyms[i] = &ast.ResolvedSymbol{Kind: ast.VarSym, LevelDiff: diff, Offset: sym.Offset}
		}
	case ast.WriteStmt:
		for _, e := range s.WriteExprs {
			a.expr(e)
		}
	}
}

func (a *Analyzer) cond(c *ast.Cond) {
	switch c.Kind {
	case ast.OddCond:
		a.expr(c.Operand)
		if c.Operand.Folded {
			c.Folded = true
			c.FoldedValue = c.Operand.FoldedValue%2 != 0
		}
	case ast.RelCond:
		a.expr(c.Left)
		a.expr(c.Right)
		if c.Left.Folded && c.Right.Folded {
			c.Folded = true
			c.FoldedValue = evalRel(c.Op, c.Left.FoldedValue, c.Right.FoldedValue)
		}
	}
}

func evalRel(op ast.RelOp, l, r int) bool {
	switch op {
	case ast.RelEqual:
		return l == r
	case ast.RelNotEqual:
		return l != r
	case ast.RelLess:
		return l < r
	case ast.RelLessEqual:
		return l <= r
	case ast.RelGreater:
		return l > r
	case ast.RelGreaterEqual:
		return l >= r
	default:
		return false
	}
}

// expr resolves Var references, folds pure constant subtrees, and
// reports division by zero on folded divisors.
func (a *Analyzer) expr(e *ast.Expr) {
	switch e.Kind {
	case ast.NumExpr:
		e.Folded = true
		e.FoldedValue = e.NumValue
	case ast.VarExpr:
		sym, diff, err := a.tab.Resolve(e.Name)
		if err != nil {
			a.undeclared(e.Line, e.Name)
			return
		}
		switch sym.Kind {
		case symtab.Const:
			e.Sym = &ast.ResolvedSymbol{Kind: ast.ConstSym, ConstValue: sym.Value}
			e.Folded = true
			e.FoldedValue = sym.Value
		case symtab.Var:
			// Only flagged when diff == 0: an outer-scope variable may
			// still be assigned later in a block this one is nested
			// inside but not yet analyzed, so checking it here would
			// false-positive.
			if diff == 0 && !sym.Initialized {
				a.sink.Errorf(diag.Semantic, e.Line, "variable '%s' may be used before being initialized", e.Name)
			}
			e.Sym = &ast.ResolvedSymbol{Kind: ast.VarSym, LevelDiff: diff, Offset: sym.Offset}
		default:
			a.sink.Errorf(diag.Semantic, e.Line, "'%s' is a procedure, not a value", e.Name)
		}
	case ast.UnaryExpr:
		a.expr(e.Operand)
		if e.Operand.Folded {
			e.Folded = true
			if e.UOp == ast.UnaryMinus {
				e.FoldedValue = -e.Operand.FoldedValue
			} else {
				e.FoldedValue = e.Operand.FoldedValue
			}
		}
	case ast.BinaryExpr:
		a.expr(e.Left)
		a.expr(e.Right)
		if e.BOp == ast.OpDiv && e.Right.Folded && e.Right.FoldedValue == 0 {
			a.sink.Errorf(diag.Semantic, e.Line, "division by zero")
			return
		}
		if e.Left.Folded && e.Right.Folded {
			e.Folded = true
			e.FoldedValue = evalBinary(e.BOp, e.Left.FoldedValue, e.Right.FoldedValue)
		}
	}
}

func evalBinary(op ast.BinaryOp, l, r int) int {
	switch op {
	case ast.OpAdd:
		return l + r
	case ast.OpSub:
		return l - r
	case ast.OpMul:
		return l * r
	case ast.OpDiv:
		return l / r // Go truncates toward zero, matching spec.md's boundary case.
	default:
		return 0
	}
}

func (a *Analyzer) undeclared(line int, name string) {
	msg := fmt.Sprintf("Undeclared identifier '%s'.", name)
	if suggestion, ok := a.tab.Suggest(name); ok {
		a.sink.Add(diag.Diagnostic{Phase: diag.Semantic, Severity: diag.Error, Line: line, Message: msg, Suggestion: suggestion})
		return
	}
	a.sink.Errorf(diag.Semantic, line, msg)
}

func kindName(k symtab.Kind) string {
	switch k {
	case symtab.Const:
		return "const"
	case symtab.Var:
		return "var"
	case symtab.Procedure:
		return "procedure"
	default:
		return "symbol"
	}
}
