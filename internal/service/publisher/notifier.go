package publisher

import (
	"context"

	"github.com/oshokin/package2pypi/internal/domain/release"
)

// Notifier receives a status after every state transition.
type Notifier interface {
	Notify(ctx context.Context, status release.Status)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, status release.Status)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, status release.Status) {
	f(ctx, status)
}

// nopNotifier discards statuses.
type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, release.Status) {}
