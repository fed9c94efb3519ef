// Package diag is the shared diagnostic sink every pipeline stage
// appends to. The teacher builds an ad hoc error string per call site
// (errors.New(fmt.Sprintf(...))) and returns on the first one; PL/0's
// spec requires accumulating diagnostics across a whole phase before
// deciding whether to proceed, so this package generalizes that into
// one structured type shared by lexer, parser and analyzer. The VM does
// not append to a Sink: it returns a vm.RuntimeError, which carries no
// source line or instruction address.
package diag

import "fmt"

// Phase identifies which pipeline stage raised a Diagnostic.
type Phase int

const (
	Lexical Phase = iota
	Syntax
	Semantic
	Runtime
)

func (p Phase) String() string {
	switch p {
	case Lexical:
		return "Lexical"
	case Syntax:
		return "Syntax"
	case Semantic:
		return "Semantic"
	case Runtime:
		return "Runtime"
	default:
		return "Unknown"
	}
}

// Severity distinguishes findings that block compilation from ones that
// merely inform the user.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "Warning"
	}
	return "Error"
}

// Diagnostic is one reported finding, formatted per the external
// interface contract: "[<Phase> <Severity>] Line <n>: <message>".
type Diagnostic struct {
	Phase      Phase
	Severity   Severity
	Line       int
	Message    string
	Suggestion string // e.g. "counter", appended as "Did you mean '<candidate>'?"
}

func (d Diagnostic) String() string {
	msg := d.Message
	if d.Suggestion != "" {
		msg = fmt.Sprintf("%s Did you mean '%s'?", msg, d.Suggestion)
	}
	return fmt.Sprintf("[%s %s] Line %d: %s", d.Phase, d.Severity, d.Line, msg)
}

// Sink is the append-only diagnostic list shared by every stage. Only
// the analyzer mutates the symbol table and only codegen writes the
// instruction array, but every stage may append to the sink.
type Sink struct {
	diags []Diagnostic
}

func (s *Sink) Add(d Diagnostic) {
	s.diags = append(s.diags, d)
}

func (s *Sink) Errorf(phase Phase, line int, format string, args ...interface{}) {
	s.Add(Diagnostic{Phase: phase, Severity: Error, Line: line, Message: fmt.Sprintf(format, args...)})
}

func (s *Sink) Warnf(phase Phase, line int, format string, args ...interface{}) {
	s.Add(Diagnostic{Phase: phase, Severity: Warning, Line: line, Message: fmt.Sprintf(format, args...)})
}

func (s *Sink) Diagnostics() []Diagnostic {
	return s.diags
}

// HasErrors reports whether any accumulated diagnostic is Error severity.
// The pipeline proceeds to the next stage only when this is false.
func (s *Sink) HasErrors() bool {
	for _, d := range s.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
