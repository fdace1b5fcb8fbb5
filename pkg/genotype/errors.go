package genotype

import (
	"errors"
	"fmt"
)

// Error kinds shared by every analysis package. Callers test with errors.Is.
var (
	// Size mismatches, unparsable lines, out of order markers. Fatal.
	ErrMalformedInput = errors.New("malformed input")
	// Too few taxa (or adequately covered taxa) to produce a result.
	ErrInsufficientData = errors.New("insufficient data")
	// A clustering trial collapsed to an empty cluster.
	ErrAmbiguousTrial = errors.New("ambiguous trial")
)

// ParseError reports a malformed line of a tabular input.
type ParseError struct {
	Line int    // 1-based line number
	Msg  string // additional context for the error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformedInput
}
