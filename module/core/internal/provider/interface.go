package provider

import (
	"context"

	"github.com/nandanugg/pothole-alert/module/core/domain"
)

// WatchID is the provider's own identifier for a running watch.
type WatchID string

// Sink receives fixes and errors for one watch. Providers may call it from
// any goroutine.
type Sink func(domain.LocationEvent)

type Provider interface {
	Name() string
	RequestPermission(ctx context.Context) (domain.Permission, error)
	Watch(ctx context.Context, opts domain.WatchOptions, sink Sink) (WatchID, error)
	ClearWatch(id WatchID) error
}
