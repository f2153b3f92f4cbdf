package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewKeyChange(t *testing.T) {
	ev := NewKeyChange("session-1", "cbe-p1", "payload")

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "session-1", ev.Origin)
	assert.Equal(t, "cbe-p1", ev.Key)
	assert.Equal(t, "payload", ev.Value)
	assert.False(t, ev.Deleted)
	assert.Equal(t, "cbe-service", ev.Source)
	assert.Equal(t, "1.0", ev.Version)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestNewKeyDelete(t *testing.T) {
	ev := NewKeyDelete("session-1", "cbe-deadline-p1")

	assert.True(t, ev.Deleted)
	assert.Empty(t, ev.Value)
	assert.Equal(t, "cbe-deadline-p1", ev.Key)
}

func TestGoChannelBusRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewGoChannelBus("test-topic", discardLogger())
	defer bus.Close()

	changes, err := bus.SubscribeKeyChanges(ctx)
	require.NoError(t, err)

	sent := NewKeyChange("session-1", "cbe-p1", `{"answers":{}}`)
	require.NoError(t, bus.PublishKeyChange(ctx, sent))

	select {
	case got := <-changes:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Origin, got.Origin)
		assert.Equal(t, sent.Key, got.Key)
		assert.Equal(t, sent.Value, got.Value)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestGoChannelBusFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewGoChannelBus("test-topic", discardLogger())
	defer bus.Close()

	first, err := bus.SubscribeKeyChanges(ctx)
	require.NoError(t, err)
	second, err := bus.SubscribeKeyChanges(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.PublishKeyChange(ctx, NewKeyChange("s1", "k", "v")))

	for _, ch := range []<-chan KeyChangeEvent{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, "k", got.Key)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestMockBus(t *testing.T) {
	ctx := context.Background()
	bus := NewMockBus(discardLogger())
	defer bus.Close()

	changes, err := bus.SubscribeKeyChanges(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.PublishKeyChange(ctx, NewKeyChange("s1", "k1", "v1")))
	require.NoError(t, bus.PublishKeyChange(ctx, NewKeyChange("s2", "k2", "v2")))

	assert.Len(t, bus.PublishedEvents(), 2)
	assert.Equal(t, "k1", (<-changes).Key)
	assert.Equal(t, "k2", (<-changes).Key)

	bus.ClearEvents()
	assert.Empty(t, bus.PublishedEvents())
}
