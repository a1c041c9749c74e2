package buff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thisdk/komari-sub001/internal/game"
)

func TestStepVolatileBeforeAbsent(t *testing.T) {
	state, count := Yes, uint32(0)

	state, count = Step(state, count, 2, false)
	assert.Equal(t, Volatile, state)
	assert.Equal(t, uint32(0), count)

	state, count = Step(state, count, 2, false)
	assert.Equal(t, Volatile, state)
	assert.Equal(t, uint32(1), count)

	state, count = Step(state, count, 2, false)
	assert.Equal(t, No, state)
	assert.Equal(t, uint32(2), count)
}

func TestStepSingleMissGoesAbsent(t *testing.T) {
	state, _ := Step(Yes, 0, 1, false)
	assert.Equal(t, No, state)
}

func TestStepPresentResets(t *testing.T) {
	for _, from := range []State{No, Yes, Volatile} {
		state, count := Step(from, 3, 5, true)
		assert.Equal(t, Yes, state)
		assert.Equal(t, uint32(0), count)
	}
}

func TestStepAbsentStaysAbsent(t *testing.T) {
	state, count := Step(No, 0, 5, false)
	assert.Equal(t, No, state)
	assert.Equal(t, uint32(0), count)
}

func TestNewEntityFailCounts(t *testing.T) {
	assert.Equal(t, uint32(runeFailCount), NewEntity(game.BuffRune).maxFailCount)
	assert.Equal(t, uint32(familiarFailCount), NewEntity(game.BuffFamiliar).maxFailCount)
	assert.Equal(t, uint32(commonFailCount), NewEntity(game.BuffLegionLuck).maxFailCount)
}

func TestEntitiesStateOf(t *testing.T) {
	entities := NewEntities()
	entities[game.BuffRune].State = Yes

	assert.Equal(t, Yes, entities.StateOf(game.BuffRune))
	assert.Equal(t, No, entities.StateOf(game.BuffFamiliar))

	var missing *Entities
	assert.Equal(t, No, missing.StateOf(game.BuffRune))
}
