package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"billflow/internal/core"
)

const DefaultTimeout = 30 * time.Second

// Sender is what a Trigger fires into.
type Sender interface {
	Notify(ctx context.Context, subscriptionID int64, t core.NotificationType, channels ...core.ChannelType) ([]Delivery, error)
}

// Trigger sends notifications in the background. The caller never waits for
// delivery and never sees its errors.
type Trigger struct {
	sender  Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewTrigger(sender Sender, timeout time.Duration) *Trigger {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Trigger{sender: sender, timeout: timeout}
}

// Fire sends the notification on a detached goroutine. The send outlives
// ctx's cancellation but keeps its values, and is bounded by the trigger's
// timeout.
func (t *Trigger) Fire(ctx context.Context, subscriptionID int64, typ core.NotificationType) {
	ctx = context.WithoutCancel(ctx)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()

		_, err := t.sender.Notify(ctx, subscriptionID, typ)
		switch {
		case err == nil:
		case errors.Is(err, ErrDisabled), errors.Is(err, ErrNoChannels):
			slog.DebugContext(ctx, "Notification skipped",
				"subscription_id", subscriptionID,
				"type", typ,
				"reason", err)
		default:
			slog.WarnContext(ctx, "Notification failed",
				"subscription_id", subscriptionID,
				"type", typ,
				"error", err)
		}
	}()
}

// Wait blocks until every fired notification has finished.
func (t *Trigger) Wait() {
	t.wg.Wait()
}
