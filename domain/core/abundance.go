package core

import "math"

// AbundanceVector holds the individual count of each species observed in one
// community sample. Order carries no meaning beyond pairing positions with
// species.
type AbundanceVector []int

// Richness returns S, the number of species in the sample.
func (a AbundanceVector) Richness() int {
	return len(a)
}

// Individuals returns N, the total number of individuals across all species.
func (a AbundanceVector) Individuals() int {
	total := 0
	for _, n := range a {
		total += n
	}
	return total
}

// Validate checks the basic shape invariants shared by all distribution fits:
// non-negative entries, more than one species, and more individuals than
// species.
func (a AbundanceVector) Validate() error {
	if len(a) == 0 {
		return ErrEmptyAbundances
	}
	for _, n := range a {
		if n < 0 {
			return ErrNegativeAbundance
		}
	}
	s, n := a.Richness(), a.Individuals()
	if s <= 1 || s >= n {
		return NewOrderingError(s, n)
	}
	return nil
}

// ValidateAgainst checks that the vector is consistent with externally
// supplied shape arguments S and N. Unlike Validate, zero counts are
// rejected: a fitted vector enumerates present species, and the PMFs are
// undefined at abundance zero.
func (a AbundanceVector) ValidateAgainst(s, n int) error {
	if len(a) != s {
		return NewLengthError(len(a), s)
	}
	for _, v := range a {
		if v <= 0 {
			return ErrZeroAbundance
		}
	}
	if got := a.Individuals(); got != n {
		return NewSumError(got, n)
	}
	return nil
}

// Positive returns a copy of the vector with zero counts removed. Fitting
// routines operate on present species only.
func (a AbundanceVector) Positive() AbundanceVector {
	out := make(AbundanceVector, 0, len(a))
	for _, n := range a {
		if n > 0 {
			out = append(out, n)
		}
	}
	return out
}

// Float64s converts the counts for use with numerical routines.
func (a AbundanceVector) Float64s() []float64 {
	out := make([]float64, len(a))
	for i, n := range a {
		out[i] = float64(n)
	}
	return out
}

// Logs returns the natural log of each count. Zero counts must be removed
// first.
func (a AbundanceVector) Logs() []float64 {
	out := make([]float64, len(a))
	for i, n := range a {
		out[i] = math.Log(float64(n))
	}
	return out
}

// Copy returns an independent copy of the vector.
func (a AbundanceVector) Copy() AbundanceVector {
	out := make(AbundanceVector, len(a))
	copy(out, a)
	return out
}
