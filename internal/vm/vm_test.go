package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaobogaga/plzero/internal/codegen"
	"github.com/xiaobogaga/plzero/internal/compiler"
)

// fakeIO replays a fixed sequence of reads and records every write, for
// tests that never need a real terminal.
type fakeIO struct {
	reads   []int
	writes  []int
	readPos int
}

func (f *fakeIO) ReadInt() (int, error) {
	if f.readPos >= len(f.reads) {
		return 0, assert.AnError
	}
	v := f.reads[f.readPos]
	f.readPos++
	return v, nil
}

func (f *fakeIO) WriteInt(v int) {
	f.writes = append(f.writes, v)
}

func run(t *testing.T, src string, reads ...int) *fakeIO {
	t.Helper()
	result := compiler.Compile(src)
	require.False(t, result.Sink.HasErrors(), "compile errors: %v", result.Sink.Diagnostics())
	io := &fakeIO{reads: reads}
	err := New(result.Code, io).Run()
	require.NoError(t, err)
	return io
}

func TestRun_SimpleArithmeticWrite(t *testing.T) {
	io := run(t, "program p; var x; begin x := 2 + 3 * 4; write(x) end.")
	require.Equal(t, []int{14}, io.writes)
}

func TestRun_ReadThenWrite(t *testing.T) {
	io := run(t, "program p; var x; begin read(x); write(x + 1) end.", 41)
	require.Equal(t, []int{42}, io.writes)
}

func TestRun_GCDIterative(t *testing.T) {
	src := `
	program gcd;
	var x, y;
	procedure compute(a, b);
		begin
			while a <> b do
				if a < b then b := b - a else a := a - b;
			x := a
		end;
	begin
		read(x, y);
		call compute(x, y);
		write(x)
	end.
	`
	io := run(t, src, 24, 36)
	require.Equal(t, []int{12}, io.writes)
}

func TestRun_FactorialRecursive(t *testing.T) {
	src := `
	program fact;
	var result;
	procedure fac(n);
		var r;
		begin
			if n = 0 then result := 1
			else begin
				call fac(n - 1);
				result := result * n
			end
		end;
	begin
		call fac(5);
		write(result)
	end.
	`
	io := run(t, src)
	require.Equal(t, []int{120}, io.writes)
}

func TestRun_WhileLoopSummation(t *testing.T) {
	src := `
	program sum;
	var i, total;
	begin
		i := 1; total := 0;
		while i <= 10 do begin
			total := total + i;
			i := i + 1
		end;
		write(total)
	end.
	`
	io := run(t, src)
	require.Equal(t, []int{55}, io.writes)
}

func TestRun_NestedProcedureNonLocalAccess(t *testing.T) {
	src := `
	program p;
	var x;
	procedure outer;
		procedure inner;
			begin x := x + 1 end;
		begin call inner; call inner end;
	begin
		x := 0;
		call outer;
		write(x)
	end.
	`
	io := run(t, src)
	require.Equal(t, []int{2}, io.writes)
}

func TestRun_DivisionByZeroWithNonConstantDivisorFailsAtRuntime(t *testing.T) {
	// Non-constant divisor: division by zero can only be caught at
	// runtime, not folded away during analysis.
	result := compiler.Compile("program p; var x, y; begin read(x); y := 10 / x; write(y) end.")
	require.False(t, result.Sink.HasErrors())
	io := &fakeIO{reads: []int{0}}
	err := New(result.Code, io).Run()
	require.Error(t, err)
	var runtimeErr *RuntimeError
	require.ErrorAs(t, err, &runtimeErr)
}

func TestRun_StackOverflowOnUnboundedRecursion(t *testing.T) {
	src := `
	program p;
	procedure loop;
		begin call loop end;
	begin call loop end.
	`
	result := compiler.Compile(src)
	require.False(t, result.Sink.HasErrors())
	io := &fakeIO{}
	err := New(result.Code, io).Run()
	require.Error(t, err)
	var runtimeErr *RuntimeError
	require.ErrorAs(t, err, &runtimeErr)
}

func TestRun_OprSubcodesCoverRelationalOperators(t *testing.T) {
	io := run(t, `
		program p;
		var a, b, c;
		begin
			a := 3; b := 5;
			if a < b then write(1) else write(0);
			if a >= b then write(1) else write(0);
			c := a;
			if c = a then write(1) else write(0)
		end.
	`)
	require.Equal(t, []int{1, 0, 1}, io.writes)
}

func TestInstructionTableUsesDocumentedOprSubcodes(t *testing.T) {
	assert.Equal(t, 0, codegen.OprReturn)
	assert.Equal(t, 1, codegen.OprNeg)
	assert.Equal(t, 6, codegen.OprOdd)
}
