package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/hray3182/daymemory/internal/common"
	"github.com/hray3182/daymemory/internal/models"
)

// Router picks the channel from the user's notification method. Channels
// left nil are treated as not configured.
type Router struct {
	Email    Notifier
	SMS      Notifier
	Telegram Notifier
}

func (r *Router) Notify(ctx context.Context, msg Message) error {
	switch msg.Contact.Method {
	case models.NotifyEmail, "":
		return send(ctx, "email", r.Email, msg)
	case models.NotifySMS:
		return send(ctx, "sms", r.SMS, msg)
	case models.NotifyTelegram:
		return send(ctx, "telegram", r.Telegram, msg)
	case models.NotifyBoth:
		return errors.Join(
			send(ctx, "email", r.Email, msg),
			send(ctx, "sms", r.SMS, msg),
		)
	default:
		return fmt.Errorf("%w: unknown notification method %q", common.ErrExternalService, msg.Contact.Method)
	}
}

func send(ctx context.Context, channel string, n Notifier, msg Message) error {
	if n == nil {
		return fmt.Errorf("%w: %s channel is not configured", common.ErrExternalService, channel)
	}
	return n.Notify(ctx, msg)
}
