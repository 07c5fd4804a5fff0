package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hray3182/daymemory/internal/dday"
	"github.com/hray3182/daymemory/internal/format"
)

// TelegramSender delivers reminders to a user's Telegram chat.
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

func (s *TelegramSender) Notify(ctx context.Context, msg Message) error {
	if msg.Contact.TelegramChatID == nil {
		return classify("telegram", fmt.Errorf("no telegram chat linked"))
	}

	out := telegramMessage(*msg.Contact.TelegramChatID, msg)

	// BotAPI.Send has no context parameter; stop waiting once ctx is done.
	done := make(chan error, 1)
	go func() {
		_, err := s.api.Send(out)
		done <- err
	}()

	select {
	case err := <-done:
		return classify("telegram", err)
	case <-ctx.Done():
		return classify("telegram", ctx.Err())
	}
}

func telegramMessage(chatID int64, msg Message) tgbotapi.MessageConfig {
	var b format.Builder
	b.Text("⏰ ").Bold(dday.Label(msg.DaysBefore) + " " + msg.EventTitle).Line()
	b.Text("📅 ").Code(msg.EventDate.Format(dday.DateLayout))
	if msg.RecipientName != "" {
		b.Text(" · ").Italic(msg.RecipientName)
	}
	b.Line().Line().Text(msg.Body())
	return b.Message(chatID)
}
