package store

import (
	"context"
	"log/slog"

	"github.com/prepdeck/cbe-service/internal/events"
)

// Notifying decorates a KV store so that every successful write or delete is
// announced on the key-change bus, stamped with the writing session's origin
// id. This is the storage-event contract: any open session, in this process
// or another, can observe writes made by its siblings while ignoring its own.
// Publish failures are logged and swallowed; persistence already succeeded.
type Notifying struct {
	inner     KV
	publisher events.Publisher
	origin    string
	logger    *slog.Logger
}

func NewNotifying(inner KV, publisher events.Publisher, origin string, logger *slog.Logger) *Notifying {
	return &Notifying{inner: inner, publisher: publisher, origin: origin, logger: logger}
}

func (n *Notifying) Get(ctx context.Context, key string) (string, bool, error) {
	return n.inner.Get(ctx, key)
}

func (n *Notifying) Set(ctx context.Context, key, value string) error {
	if err := n.inner.Set(ctx, key, value); err != nil {
		return err
	}
	if err := n.publisher.PublishKeyChange(ctx, events.NewKeyChange(n.origin, key, value)); err != nil {
		n.logger.Warn("Failed to publish key change", "key", key, "error", err)
	}
	return nil
}

func (n *Notifying) Delete(ctx context.Context, key string) error {
	if err := n.inner.Delete(ctx, key); err != nil {
		return err
	}
	if err := n.publisher.PublishKeyChange(ctx, events.NewKeyDelete(n.origin, key)); err != nil {
		n.logger.Warn("Failed to publish key delete", "key", key, "error", err)
	}
	return nil
}
