package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbundanceVector_Shape(t *testing.T) {
	ab := AbundanceVector{5, 3, 0, 2}
	assert.Equal(t, 4, ab.Richness())
	assert.Equal(t, 10, ab.Individuals())
	assert.Equal(t, AbundanceVector{5, 3, 2}, ab.Positive())
}

func TestAbundanceVector_Validate(t *testing.T) {
	assert.NoError(t, AbundanceVector{5, 3, 2}.Validate())

	assert.ErrorIs(t, AbundanceVector{}.Validate(), ErrEmptyAbundances)
	assert.ErrorIs(t, AbundanceVector{5, -1}.Validate(), ErrNegativeAbundance)
	assert.ErrorIs(t, AbundanceVector{100}.Validate(), ErrSpeciesOrdering)
	assert.ErrorIs(t, AbundanceVector{1, 1, 1}.Validate(), ErrSpeciesOrdering)
}

func TestAbundanceVector_ValidateAgainst(t *testing.T) {
	ab := AbundanceVector{5, 3, 2}
	assert.NoError(t, ab.ValidateAgainst(3, 10))
	assert.ErrorIs(t, ab.ValidateAgainst(4, 10), ErrLengthMismatch)
	assert.ErrorIs(t, ab.ValidateAgainst(3, 11), ErrSumMismatch)
	assert.ErrorIs(t, AbundanceVector{5, 0, 5}.ValidateAgainst(3, 10), ErrZeroAbundance)
}

func TestAbundanceVector_Conversions(t *testing.T) {
	ab := AbundanceVector{1, 2, 4}
	assert.Equal(t, []float64{1, 2, 4}, ab.Float64s())

	logs := ab.Logs()
	require.Len(t, logs, 3)
	assert.InDelta(t, 0, logs[0], 1e-15)
	assert.InDelta(t, math.Log(2), logs[1], 1e-15)

	dup := ab.Copy()
	dup[0] = 99
	assert.Equal(t, 1, ab[0])
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsPreconditionError(NewOrderingError(5, 3)))
	assert.True(t, IsPreconditionError(NewLengthError(2, 3)))
	assert.True(t, IsPreconditionError(NewSumError(9, 10)))
	assert.False(t, IsPreconditionError(NewNoRootError(40, 100)))

	assert.True(t, IsRootError(NewNoRootError(40, 100)))
	assert.True(t, IsRootError(ErrAmbiguousRoot))
	assert.False(t, IsRootError(ErrNotFitted))
}
