package telegram

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisdk/komari-sub001/internal/bot"
	"github.com/thisdk/komari-sub001/internal/event"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/health"
)

const chatID = 42

type fakeClient struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	updates chan tgbotapi.Update
	stopped bool
}

func (f *fakeClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func (f *fakeClient) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeClient) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeClient) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	texts := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		texts = append(texts, m.Text)
	}
	return texts
}

type fakeController struct {
	mu      sync.Mutex
	halting bool
}

func (f *fakeController) Snapshot() bot.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return bot.Snapshot{Name: "mule", Tick: 3, State: "Idle", Halting: f.halting}
}

func (f *fakeController) Halt() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.halting = true
}

func (f *fakeController) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.halting = false
}

func (f *fakeController) isHalting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.halting
}

func command(chat int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chat},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func newTestBot() (*Bot, *fakeClient, *fakeController) {
	client := &fakeClient{updates: make(chan tgbotapi.Update, 4)}
	controller := &fakeController{}
	b := &Bot{
		client:     client,
		chatID:     chatID,
		controller: controller,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return b, client, controller
}

func TestHandleNotifiesChat(t *testing.T) {
	b, client, _ := newTestBot()

	require.NoError(t, b.Handle(context.Background(), event.RuneFailed(event.Text("mule", ""), 2)))
	require.NoError(t, b.Handle(context.Background(), event.UsedPotion(event.Text("mule", ""), 1, 2)))

	texts := client.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Rune validation failed (2 in a row)")
	assert.Equal(t, int64(chatID), client.sent[0].ChatID)
}

func TestRunAnswersCommands(t *testing.T) {
	b, client, controller := newTestBot()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	client.updates <- command(chatID, "/halt")
	require.Eventually(t, controller.isHalting, time.Second, 5*time.Millisecond)

	client.updates <- command(chatID, "/status")
	client.updates <- command(chatID, "/resume")
	require.Eventually(t, func() bool { return len(client.texts()) == 3 }, time.Second, 5*time.Millisecond)

	texts := client.texts()
	assert.Equal(t, "Halted", texts[0])
	assert.Contains(t, texts[1], "State: Idle (halting)")
	assert.Equal(t, "Resumed", texts[2])
	assert.False(t, controller.isHalting())

	cancel()
	require.NoError(t, <-done)
	assert.True(t, client.stopped)
}

func TestRunIgnoresOtherChats(t *testing.T) {
	b, client, controller := newTestBot()

	require.NoError(t, b.handleUpdate(command(7, "/halt")))
	require.NoError(t, b.handleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: "hello"}}))

	assert.False(t, controller.isHalting())
	assert.Empty(t, client.texts())
}

func TestFormatStatus(t *testing.T) {
	got := formatStatus(bot.Snapshot{
		Name:         "mule",
		Tick:         12,
		State:        "Moving",
		Position:     &game.Point{X: 3, Y: 4},
		NormalAction: "Move(10, 4)",
		Health:       &health.Health{Current: 50, Max: 100},
	})

	assert.Equal(t, "mule at tick 12\nState: Moving\nPosition: 3, 4\nAction: Move(10, 4)\nHealth: 50/100", got)
}
