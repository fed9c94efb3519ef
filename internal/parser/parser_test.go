package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaobogaga/plzero/internal/ast"
	"github.com/xiaobogaga/plzero/internal/diag"
	"github.com/xiaobogaga/plzero/internal/lexer"
)

func parse(t *testing.T, src string) (*ast.Program, *diag.Sink) {
	t.Helper()
	sink := &diag.Sink{}
	toks := lexer.New(src, sink).Tokenize()
	prog := New(toks, sink).Parse()
	return prog, sink
}

func TestParse_GCDProgram(t *testing.T) {
	src := `
	program gcd;
	var x, y;
	procedure gcd(a, b);
	begin
		while a <> b do
			if a < b then b := b - a else a := a - b
	end;
	begin
		read(x, y);
		call gcd(x, y);
		write(x)
	end.
	`
	prog, sink := parse(t, src)
	require.False(t, sink.HasErrors())
	assert.Equal(t, "gcd", prog.Name)
	require.Len(t, prog.Block.Vars, 2)
	require.Len(t, prog.Block.Procs, 1)
	assert.Equal(t, "gcd", prog.Block.Procs[0].Name)
	assert.Equal(t, []string{"a", "b"}, prog.Block.Procs[0].Params)
}

func TestParse_ConstDeclWithSign(t *testing.T) {
	prog, sink := parse(t, "program p; const a = 1, b = -2, c = +3; begin write(a) end.")
	require.False(t, sink.HasErrors())
	require.Len(t, prog.Block.Consts, 3)
	assert.Equal(t, 1, prog.Block.Consts[0].Value)
	assert.Equal(t, -2, prog.Block.Consts[1].Value)
	assert.Equal(t, 3, prog.Block.Consts[2].Value)
}

func TestParse_OperatorPrecedence(t *testing.T) {
	prog, sink := parse(t, "program p; var x; begin x := 1 + 2 * 3 end.")
	require.False(t, sink.HasErrors())
	value := prog.Block.Body.Stmts[0].Value
	require.Equal(t, ast.BinaryExpr, value.Kind)
	assert.Equal(t, ast.OpAdd, value.BOp)
	assert.Equal(t, ast.NumExpr, value.Left.Kind)
	require.Equal(t, ast.BinaryExpr, value.Right.Kind)
	assert.Equal(t, ast.OpMul, value.Right.BOp)
}

func TestParse_MissingSemicolonRecoversAndReportsOneError(t *testing.T) {
	src := `
	program p;
	var x, y
	begin
		x := 1;
		y := 2
	end.
	`
	_, sink := parse(t, src)
	require.True(t, sink.HasErrors())
	errs := 0
	for _, d := range sink.Diagnostics() {
		if d.Severity == diag.Error {
			errs++
		}
	}
	assert.Equal(t, 1, errs)
}

func TestParse_ProcedureWithNoParamsHasNilParams(t *testing.T) {
	prog, sink := parse(t, "program p; procedure f; begin end; begin call f end.")
	require.False(t, sink.HasErrors())
	assert.Empty(t, prog.Block.Procs[0].Params)
}

func TestParse_ParenthesizedExpression(t *testing.T) {
	prog, sink := parse(t, "program p; var x; begin x := (1 + 2) * 3 end.")
	require.False(t, sink.HasErrors())
	value := prog.Block.Body.Stmts[0].Value
	require.Equal(t, ast.BinaryExpr, value.Kind)
	assert.Equal(t, ast.OpMul, value.BOp)
	require.Equal(t, ast.BinaryExpr, value.Left.Kind)
	assert.Equal(t, ast.OpAdd, value.Left.BOp)
}

func TestParse_OddCondition(t *testing.T) {
	prog, sink := parse(t, "program p; var x; begin if odd x then x := 1 end.")
	require.False(t, sink.HasErrors())
	cond := prog.Block.Body.Stmts[0].Cond
	assert.Equal(t, ast.OddCond, cond.Kind)
}
