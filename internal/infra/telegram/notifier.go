package telegram

import (
	"context"

	"gopkg.in/telebot.v3"
)

// Notifier implements notify.Notifier by sending messages to one admin chat
// via the telebot library.
type Notifier struct {
	bot    *telebot.Bot
	chatID int64
}

// NewNotifier creates a bot in send-only mode (no poller) for the given token.
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	bot, err := telebot.NewBot(telebot.Settings{Token: token})
	if err != nil {
		return nil, err
	}
	return &Notifier{bot: bot, chatID: chatID}, nil
}

func (n *Notifier) Send(_ context.Context, message string) error {
	_, err := n.bot.Send(&telebot.User{ID: n.chatID}, message, &telebot.SendOptions{})
	return err
}
