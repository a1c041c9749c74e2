package event

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerDispatchesToHandlers(t *testing.T) {
	l := NewListener(slog.New(slog.NewTextHandler(io.Discard, nil)), 4)

	var mu sync.Mutex
	var got []string
	l.Register(func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Message())
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Listen(ctx)

	l.Send(PlayerDied(Text("test", "")))
	l.Send(RuneFailed(Text("test", ""), 3))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"Player died", "Rune validation failed (3 in a row)"}, got)
}

func TestListenerDropsWhenFull(t *testing.T) {
	l := NewListener(slog.New(slog.NewTextHandler(io.Discard, nil)), 1)

	l.Send(PlayerDied(Text("test", "")))
	l.Send(PlayerDied(Text("test", "second")))

	assert.Len(t, l.events, 1)
}

func TestNilListenerSendIsNoop(t *testing.T) {
	var l *Listener
	assert.NotPanics(t, func() { l.Send(PlayerDied(Text("test", ""))) })
}

func TestIsNotable(t *testing.T) {
	assert.True(t, IsNotable(PlayerDied(Text("test", ""))))
	assert.True(t, IsNotable(CashShop(Text("test", ""))))
	assert.True(t, IsNotable(Unstucking(Text("test", ""), nil, true)))
	assert.False(t, IsNotable(Unstucking(Text("test", ""), nil, false)))
	assert.False(t, IsNotable(UsedPotion(Text("test", ""), 10, 100)))
}
