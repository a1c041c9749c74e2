package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/thisdk/komari-sub001/internal/bot"
	"github.com/thisdk/komari-sub001/internal/event"
)

const updateTimeout = 30

type client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Controller is the part of the bot the chat commands drive.
type Controller interface {
	Snapshot() bot.Snapshot
	Halt()
	Resume()
}

// Bot notifies a single chat of notable events and answers /status, /halt and /resume from
// that chat only.
type Bot struct {
	client     client
	chatID     int64
	controller Controller
	logger     *slog.Logger
}

func New(token string, chatID int64, controller Controller, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %w", err)
	}

	return &Bot{client: api, chatID: chatID, controller: controller, logger: logger}, nil
}

// Handle is an event.Handler.
func (b *Bot) Handle(_ context.Context, e event.Event) error {
	if !event.IsNotable(e) {
		return nil
	}

	return b.send(fmt.Sprintf("%s %s | %s", e.Source(), e.OccurredAt().Format("15:04:05"), e.Message()))
}

// Run polls for commands until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updateTimeout
	updates := b.client.GetUpdatesChan(cfg)
	defer b.client.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.handleUpdate(update); err != nil {
				b.logger.Warn("Failed to answer telegram command", slog.Any("error", err))
			}
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Chat.ID != b.chatID || !msg.IsCommand() {
		return nil
	}

	switch msg.Command() {
	case "halt":
		b.controller.Halt()
		return b.send("Halted")
	case "resume":
		b.controller.Resume()
		return b.send("Resumed")
	case "status":
		return b.send(formatStatus(b.controller.Snapshot()))
	default:
		return b.send("Unknown command, use /status, /halt or /resume")
	}
}

func (b *Bot) send(text string) error {
	if _, err := b.client.Send(tgbotapi.NewMessage(b.chatID, text)); err != nil {
		return fmt.Errorf("error sending telegram message: %w", err)
	}
	return nil
}

func formatStatus(s bot.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s at tick %d\n", s.Name, s.Tick)
	fmt.Fprintf(&sb, "State: %s", s.State)
	if s.Halting {
		sb.WriteString(" (halting)")
	}
	if s.Position != nil {
		fmt.Fprintf(&sb, "\nPosition: %d, %d", s.Position.X, s.Position.Y)
	}
	if s.NormalAction != "" {
		fmt.Fprintf(&sb, "\nAction: %s", s.NormalAction)
	}
	if s.PriorityAction != "" {
		fmt.Fprintf(&sb, "\nPriority: %s", s.PriorityAction)
	}
	if s.Health != nil {
		fmt.Fprintf(&sb, "\nHealth: %d/%d", s.Health.Current, s.Health.Max)
	}

	return sb.String()
}
