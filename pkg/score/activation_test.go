package score

import (
	"testing"

	"github.com/ja7ad/smtsched/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestActivation_Sequential_ZeroBelowCapacity(t *testing.T) {
	assert.Equal(t, 0.0, activation(types.Sequential, 0.3, 0.4))
}

func TestActivation_Sequential_PositiveAboveCapacity(t *testing.T) {
	assert.InDelta(t, 0.2, activation(types.Sequential, 0.7, 0.5), 1e-9)
}

func TestActivation_Port_MatchesSequential(t *testing.T) {
	assert.Equal(t, activation(types.Sequential, 0.8, 0.9), activation(types.Port, 0.8, 0.9))
}

func TestActivation_Parallel_ProbabilisticCollision(t *testing.T) {
	got := activation(types.Parallel, 0.5, 0.5)
	assert.InDelta(t, 0.5*0.5*0.5, got, 1e-9)
}

func TestActivation_Parallel_ZeroWhenEitherUnused(t *testing.T) {
	assert.Equal(t, 0.0, activation(types.Parallel, 0, 0.9))
}
