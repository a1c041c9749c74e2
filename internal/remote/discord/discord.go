package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/thisdk/komari-sub001/internal/event"
)

type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts notable player events to a Discord channel.
type Notifier struct {
	client    messageSender
	channelID string
}

func NewNotifier(token, channelID string) (*Notifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}

	return &Notifier{client: session, channelID: channelID}, nil
}

// Handle is an event.Handler.
func (n *Notifier) Handle(_ context.Context, e event.Event) error {
	if !event.IsNotable(e) {
		return nil
	}

	content := fmt.Sprintf("**%s** %s | %s", e.Source(), e.OccurredAt().Format("15:04:05"), e.Message())
	if _, err := n.client.ChannelMessageSend(n.channelID, content); err != nil {
		return fmt.Errorf("error sending discord message: %w", err)
	}

	return nil
}
