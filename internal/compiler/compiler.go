// Package compiler wires the lexer, parser, analyzer and code
// generator into the single Pipeline the CLI drives.
//
// Grounded on the teacher's compiler.compile/internal.Compile shape: a
// flat sequence of phase calls, each checked for failure before the
// next runs. The teacher panics on the first error since Jack
// compilation is source-correct-by-construction in its test corpus;
// PL/0 sources are adversarial by design, so each phase here reports
// into a shared diag.Sink and the pipeline halts between phases only
// once that sink holds an Error, letting every diagnostic a phase can
// find surface in one pass instead of stopping at the first.
package compiler

import (
	"github.com/xiaobogaga/plzero/internal/ast"
	"github.com/xiaobogaga/plzero/internal/codegen"
	"github.com/xiaobogaga/plzero/internal/diag"
	"github.com/xiaobogaga/plzero/internal/lexer"
	"github.com/xiaobogaga/plzero/internal/parser"
	"github.com/xiaobogaga/plzero/internal/sema"
)

// Result holds everything a successful compile produced. Code is nil
// when Sink.HasErrors() is true.
type Result struct {
	Sink *diag.Sink
	Prog *ast.Program
	Code []codegen.Instruction
}

// Compile runs the lexer, parser, analyzer and code generator over
// source in sequence, stopping after whichever phase first reports an
// Error-severity diagnostic.
func Compile(source string) Result {
	sink := &diag.Sink{}

	toks := lexer.New(source, sink).Tokenize()
	if sink.HasErrors() {
		return Result{Sink: sink}
	}

	prog := parser.New(toks, sink).Parse()
	if sink.HasErrors() {
		return Result{Sink: sink}
	}

	sema.New(sink).Analyze(prog)
	if sink.HasErrors() {
		return Result{Sink: sink, Prog: prog}
	}

	code := codegen.New().Generate(prog)
	return Result{Sink: sink, Prog: prog, Code: code}
}
