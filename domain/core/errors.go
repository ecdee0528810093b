package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Precondition errors on shape arguments
	ErrPrecondition      = errors.New("precondition violated")
	ErrSpeciesOrdering   = fmt.Errorf("%w: species count must satisfy 1 < S < N", ErrPrecondition)
	ErrLengthMismatch    = fmt.Errorf("%w: abundance vector length must equal S", ErrPrecondition)
	ErrSumMismatch       = fmt.Errorf("%w: abundance vector must sum to N", ErrPrecondition)
	ErrEmptyAbundances   = fmt.Errorf("%w: abundance vector cannot be empty", ErrPrecondition)
	ErrNegativeAbundance = fmt.Errorf("%w: abundances must be non-negative", ErrPrecondition)
	ErrZeroAbundance     = fmt.Errorf("%w: fitted abundances must be positive", ErrPrecondition)

	// Root-finding errors
	ErrNoRoot        = errors.New("no root of constraint equation for given S and N")
	ErrAmbiguousRoot = errors.New("constraint equation has two roots, explicit root selection required")

	// Comparison errors
	ErrNotFitted    = errors.New("model has not been fitted to data")
	ErrUnknownModel = errors.New("unknown model identifier")
	ErrAICcSingular = errors.New("AICc undefined: observation count must exceed parameter count + 1")
)

// Error constructors with context
func NewOrderingError(s, n int) error {
	return fmt.Errorf("%w (S=%d, N=%d)", ErrSpeciesOrdering, s, n)
}

func NewLengthError(got, want int) error {
	return fmt.Errorf("%w (len=%d, S=%d)", ErrLengthMismatch, got, want)
}

func NewSumError(got, want int) error {
	return fmt.Errorf("%w (sum=%d, N=%d)", ErrSumMismatch, got, want)
}

func NewNoRootError(s, n int) error {
	return fmt.Errorf("%w (S=%d, N=%d)", ErrNoRoot, s, n)
}

// Error checking helpers
func IsPreconditionError(err error) bool {
	return errors.Is(err, ErrPrecondition)
}

func IsRootError(err error) bool {
	return errors.Is(err, ErrNoRoot) || errors.Is(err, ErrAmbiguousRoot)
}
