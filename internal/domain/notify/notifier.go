package notify

import "context"

// Notifier delivers one-way operational messages (batch summaries, permanent
// failures) to whoever operates the scheduler. Delivery details live in infra.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// Noop discards all messages. Used when no delivery channel is configured.
type Noop struct{}

func (Noop) Send(context.Context, string) error { return nil }
