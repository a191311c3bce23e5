package application

import (
	"context"
	"log/slog"
	"time"
)

// Notifier delivers a short human-readable message about a finished command.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}

const notifyTimeout = 30 * time.Second

// notifyInBackground sends message without holding up the control loop.
func notifyInBackground(ctx context.Context, notifier Notifier, logger *slog.Logger, message string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if err := notifier.Notify(ctx, message); err != nil {
			logger.Error("sending notification", "error", err)
		}
	}()
}
