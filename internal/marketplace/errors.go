package marketplace

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationKind is the stable, client-visible reason an intake was rejected.
type ValidationKind string

const (
	KindMissingRequired ValidationKind = "missing_required"
	KindInvalidEmail    ValidationKind = "invalid_email"
	KindSpam            ValidationKind = "spam"
)

// ValidationError rejects an intake as a whole. Fields lists the offending
// payload keys; it is empty for spam so bots get no differentiated feedback.
type ValidationError struct {
	Kind   ValidationKind
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation: " + string(e.Kind)
	}
	return fmt.Sprintf("validation: %s (%s)", e.Kind, strings.Join(e.Fields, ", "))
}

// IsValidationKind reports whether err is (or wraps) a *ValidationError of kind.
func IsValidationKind(err error, kind ValidationKind) bool {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	return ve.Kind == kind
}

// ErrNotFound is returned when no request matches an id.
var ErrNotFound = errors.New("request not found")

// PersistenceError wraps any store failure other than a missing row.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
