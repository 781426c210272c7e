package schema

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	// KindSchema marks structural problems: missing fields, wrong types,
	// values outside their domain.
	KindSchema ErrorKind = "schema"

	// KindReference marks dangling identifiers: routing or arrival entries
	// that name a node the model never declares.
	KindReference ErrorKind = "reference"

	// KindProbability marks routing rows whose probabilities do not sum
	// to 1.0 within tolerance.
	KindProbability ErrorKind = "probability"
)

// ValidationError describes one problem found in a process model document.
// Path uses dot/bracket notation (e.g. "nodes[2].servers") so a caller can
// locate the offending JSON field without reading this package's internals.
type ValidationError struct {
	Path string
	Kind ErrorKind
	Msg  string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: [%s] %s", e.Path, e.Kind, e.Msg)
}

// ValidationErrors is the ordered collection of all problems found in a
// single validation pass. Validate never stops at the first error: the goal
// is that one edit cycle fixes the whole document.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("%d validation error(s): %s", len(e), strings.Join(msgs, "; "))
}

// OfKind returns the subset of errors with the given kind, preserving order.
func (e ValidationErrors) OfKind(kind ErrorKind) ValidationErrors {
	var out ValidationErrors
	for _, ve := range e {
		if ve.Kind == kind {
			out = append(out, ve)
		}
	}
	return out
}

// collector accumulates validation errors during one pass.
type collector struct {
	errs ValidationErrors
}

func (c *collector) add(path string, kind ErrorKind, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{
		Path: path,
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
	})
}

func (c *collector) empty() bool {
	return len(c.errs) == 0
}
