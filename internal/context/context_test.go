package context

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thisdk/komari-sub001/internal/event"
)

func TestSourceDefaultsToKomari(t *testing.T) {
	assert.Equal(t, "komari", (&Resources{}).Source())
	assert.Equal(t, "mule", (&Resources{Name: "mule"}).Source())
}

func TestRandomRange(t *testing.T) {
	res := &Resources{Rng: rand.New(rand.NewPCG(1, 2))}

	for range 100 {
		v := res.RandomRange(3, 6)
		assert.GreaterOrEqual(t, v, 3)
		assert.Less(t, v, 6)
	}
	assert.Equal(t, 4, res.RandomRange(4, 4))
	assert.Equal(t, 9, res.RandomRange(9, 2))
}

func TestRandomBoolBounds(t *testing.T) {
	res := &Resources{Rng: rand.New(rand.NewPCG(1, 2))}

	for range 50 {
		assert.False(t, res.RandomBool(0))
		assert.True(t, res.RandomBool(1))
	}
}

func TestSendEventWithoutListener(t *testing.T) {
	res := &Resources{}

	assert.NotPanics(t, func() {
		res.SendEvent(event.PlayerDied(event.Text(res.Source(), "")))
	})
}
