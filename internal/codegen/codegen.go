// Package codegen linearizes a decorated AST into P-Code with
// forward-address backpatching.
//
// Grounded on the teacher's compiler/code_generator.go generateCode/
// generateStatementCode dispatch and its append-only writeOutput code
// buffer, adapted from a textual VM-code emitter to a binary
// []Instruction slice. Backpatching is the one place genuinely new
// machinery was needed: Jack VM code uses named labels, P-Code uses
// numeric addresses, so forward jumps are modeled as a patch(index, a)
// method per spec.md §9's design note.
package codegen

import "github.com/xiaobogaga/plzero/internal/ast"

type Op int

const (
	LIT Op = iota
	LOD
	STO
	CAL
	INT
	JMP
	JPC
	OPR
	RED
	WRT
)

// OPR subcodes, per spec.md §4.5.
const (
	OprReturn  = 0
	OprNeg     = 1
	OprAdd     = 2
	OprSub     = 3
	OprMul     = 4
	OprDiv     = 5
	OprOdd     = 6
	OprEq      = 8
	OprNeq     = 9
	OprLt      = 10
	OprGe      = 11
	OprGt      = 12
	OprLe      = 13
)

type Instruction struct {
	Op    Op
	Level int
	A     int
	N     int // CAL only: callee's declared parameter count
}

// Generator holds the append-only instruction buffer and the stack of
// per-block procedure-entry maps it builds as it walks the AST, in
// lockstep with the same declare-before-recurse order sema used.
type Generator struct {
	instrs      []Instruction
	entryScopes []map[string]int
}

func New() *Generator {
	return &Generator{}
}

// Generate emits the whole program and returns the instruction array.
// The VM's program entry is instrs[0]'s (backpatched) JMP target.
func (g *Generator) Generate(prog *ast.Program) []Instruction {
	g.emitBlock(prog.Block, 0)
	return g.instrs
}

func (g *Generator) emit(op Op, level, a int) int {
	g.instrs = append(g.instrs, Instruction{Op: op, Level: level, A: a})
	return len(g.instrs) - 1
}

func (g *Generator) patch(index, a int) {
	g.instrs[index].A = a
}

func (g *Generator) here() int {
	return len(g.instrs)
}

func (g *Generator) pushEntryScope() {
	g.entryScopes = append(g.entryScopes, map[string]int{})
}

func (g *Generator) popEntryScope() {
	g.entryScopes = g.entryScopes[:len(g.entryScopes)-1]
}

func (g *Generator) declareEntry(name string, addr int) {
	g.entryScopes[len(g.entryScopes)-1][name] = addr
}

func (g *Generator) lookupEntry(name string) int {
	for i := len(g.entryScopes) - 1; i >= 0; i-- {
		if addr, ok := g.entryScopes[i][name]; ok {
			return addr
		}
	}
	return 0 // unreachable if sema passed: name already resolved to a procedure.
}

// emitBlock realizes the block prelude of spec.md §4.5: a forward JMP
// over the nested procedures' code, each procedure emitted recursively
// (its own entry address recorded before its JMP is written, so direct
// recursion and calls to already-emitted siblings both resolve), then
// the INT frame-reservation, the body, and a final return.
func (g *Generator) emitBlock(b *ast.Block, paramCount int) {
	g.pushEntryScope()
	defer g.popEntryScope()

	jmpIdx := g.emit(JMP, 0, 0)
	for _, proc := range b.Procs {
		g.declareEntry(proc.Name, g.here())
		g.emitProcedure(proc)
	}
	g.patch(jmpIdx, g.here())

	frameSize := 3 + paramCount + len(b.Vars)
	g.emit(INT, 0, frameSize)
	g.emitStatement(&b.Body)
	g.emit(OPR, 0, OprReturn)
}

func (g *Generator) emitProcedure(proc *ast.Procedure) {
	g.emitBlock(proc.Block, len(proc.Params))
}

func (g *Generator) emitStatement(s *ast.Stmt) {
	switch s.Kind {
	case ast.AssignStmt:
		g.emitExpr(s.Value)
		g.emit(STO, s.TargetSym.LevelDiff, s.TargetSym.Offset)
	case ast.CallStmt:
		for _, arg := range s.Args {
			g.emitExpr(arg)
		}
		entry := g.lookupEntry(s.CallName)
		idx := g.emit(CAL, s.CallSym.LevelDiff, entry)
		g.instrs[idx].N = s.CallSym.ParamCount
	case ast.IfStmt:
		g.emitCond(s.Cond)
		jpc := g.emit(JPC, 0, 0)
		g.emitStatement(s.Then)
		if s.Else == nil {
			g.patch(jpc, g.here())
			return
		}
		jmp := g.emit(JMP, 0, 0)
		g.patch(jpc, g.here())
		g.emitStatement(s.Else)
		g.patch(jmp, g.here())
	case ast.WhileStmt:
		start := g.here()
		g.emitCond(s.Cond)
		jpc := g.emit(JPC, 0, 0)
		g.emitStatement(s.Then)
		g.emit(JMP, 0, start)
		g.patch(jpc, g.here())
	case ast.CompoundStmt:
		for _, sub := range s.Stmts {
			g.emitStatement(sub)
		}
	case ast.ReadStmt:
		for i := range s.ReadTargets {
			sym := s.ReadSyms[i]
			g.emit(RED, sym.LevelDiff, sym.Offset)
		}
	case ast.WriteStmt:
		for _, e := range s.WriteExprs {
			g.emitExpr(e)
			g.emit(WRT, 0, 0)
		}
	}
}

func (g *Generator) emitCond(c *ast.Cond) {
	switch c.Kind {
	case ast.OddCond:
		g.emitExpr(c.Operand)
		g.emit(OPR, 0, OprOdd)
	case ast.RelCond:
		g.emitExpr(c.Left)
		g.emitExpr(c.Right)
		g.emit(OPR, 0, relSubcode(c.Op))
	}
}

func relSubcode(op ast.RelOp) int {
	switch op {
	case ast.RelEqual:
		return OprEq
	case ast.RelNotEqual:
		return OprNeq
	case ast.RelLess:
		return OprLt
	case ast.RelLessEqual:
		return OprLe
	case ast.RelGreater:
		return OprGt
	case ast.RelGreaterEqual:
		return OprGe
	default:
		return OprEq
	}
}

// emitExpr is a post-order walk per spec.md §4.5; constant-folded
// subtrees (e.Folded, including Const-bound Vars) emit a single LIT.
func (g *Generator) emitExpr(e *ast.Expr) {
	if e.Folded {
		g.emit(LIT, 0, e.FoldedValue)
		return
	}
	switch e.Kind {
	case ast.NumExpr:
		g.emit(LIT, 0, e.NumValue)
	case ast.VarExpr:
		g.emit(LOD, e.Sym.LevelDiff, e.Sym.Offset)
	case ast.UnaryExpr:
		g.emitExpr(e.Operand)
		if e.UOp == ast.UnaryMinus {
			g.emit(OPR, 0, OprNeg)
		}
	case ast.BinaryExpr:
		g.emitExpr(e.Left)
		g.emitExpr(e.Right)
		g.emit(OPR, 0, binarySubcode(e.BOp))
	}
}

func binarySubcode(op ast.BinaryOp) int {
	switch op {
	case ast.OpAdd:
		return OprAdd
	case ast.OpSub:
		return OprSub
	case ast.OpMul:
		return OprMul
	case ast.OpDiv:
		return OprDiv
	default:
		return OprAdd
	}
}
