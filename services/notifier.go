package services

import (
	"context"
	"log/slog"
)

// LogNotifier only logs events. It is used when no realtime transport is wired.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, event string, recipients []string, _ any) {
	n.Log.Info("📣 Event not delivered, no realtime transport", "event", event, "recipients", recipients)
}

// MultiNotifier fans an event out to several notifiers.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, event string, recipients []string, payload any) {
	for _, n := range m {
		n.Notify(ctx, event, recipients, payload)
	}
}
