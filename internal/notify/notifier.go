// Package notify delivers reminder messages over email, SMS and Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hray3182/daymemory/internal/common"
	"github.com/hray3182/daymemory/internal/dday"
	"github.com/hray3182/daymemory/internal/models"
)

// Message is one reminder to deliver.
type Message struct {
	Contact       models.Contact
	RecipientName string
	EventTitle    string
	EventDate     time.Time
	DaysBefore    int
}

// Subject is the short headline shared by every channel.
func (m Message) Subject() string {
	return fmt.Sprintf("[DayMemory] %s %s", m.EventTitle, dday.Label(m.DaysBefore))
}

// Body is the plain text version of the reminder.
func (m Message) Body() string {
	when := "today"
	if m.DaysBefore == 1 {
		when = "tomorrow"
	} else if m.DaysBefore > 1 {
		when = fmt.Sprintf("in %d days", m.DaysBefore)
	}

	text := fmt.Sprintf("%s is %s (%s).", m.EventTitle, when, m.EventDate.Format(dday.DateLayout))
	if m.RecipientName != "" {
		text += fmt.Sprintf(" Don't forget to prepare something for %s!", m.RecipientName)
	}
	return text
}

// Notifier sends a message through one channel.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Notify(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// classify maps a channel failure onto the error taxonomy: deadline and
// cancellation are transient, everything else is an external service error.
func classify(channel string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrTransient) || errors.Is(err, common.ErrExternalService) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %v", common.ErrTransient, channel, err)
	}
	return fmt.Errorf("%w: %s: %v", common.ErrExternalService, channel, err)
}
