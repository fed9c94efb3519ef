// Command plzero compiles and runs a single PL/0 source file.
//
// Grounded on the teacher's compiler/main.go and vmtranslator/main.go
// flag.String("path", ...)/flag.Bool("v", ...) CLI shape, adapted from
// "compile a directory of Jack classes" to "compile and immediately
// execute one PL/0 source file", since PL/0 has no module system to
// walk a directory for.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/xiaobogaga/plzero/internal/compiler"
	"github.com/xiaobogaga/plzero/internal/diag"
	"github.com/xiaobogaga/plzero/internal/vm"
)

var (
	verbose = flag.Bool("v", false, "print every diagnostic, including warnings, and the generated instruction count")
)

const (
	exitOK          = 0
	exitCompileFail = 1
	exitRuntimeFail = 2
	exitIOFail      = 3
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: plzero [-v] <source.pl0>")
		os.Exit(exitIOFail)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "plzero: cannot read %s: %v\n", args[0], err)
		os.Exit(exitIOFail)
	}

	result := compiler.Compile(string(data))
	for _, d := range result.Sink.Diagnostics() {
		if d.Severity == diag.Warning && !*verbose {
			continue
		}
		fmt.Fprintln(os.Stderr, d.String())
	}
	if result.Sink.HasErrors() {
		os.Exit(exitCompileFail)
	}
	if *verbose {
		fmt.Fprintf(os.Stderr, "plzero: %d instructions generated\n", len(result.Code))
	}

	port := &termIOPort{in: bufio.NewReader(os.Stdin), out: os.Stdout}
	machine := vm.New(result.Code, port)
	if err := machine.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "plzero: runtime error: %v\n", err)
		os.Exit(exitRuntimeFail)
	}
	os.Exit(exitOK)
}

// termIOPort implements vm.IOPort over the process's own stdin/stdout,
// for the read/write statements' console I/O.
type termIOPort struct {
	in  *bufio.Reader
	out *os.File
}

func (t *termIOPort) ReadInt() (int, error) {
	var v int
	_, err := fmt.Fscan(t.in, &v)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (t *termIOPort) WriteInt(v int) {
	fmt.Fprintln(t.out, v)
}
