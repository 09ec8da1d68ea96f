package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Type: "mark", Body: []byte("rec-1")}))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		assert.Equal(t, "mark", msg.Type)
		assert.Equal(t, []byte("rec-1"), msg.Body)
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
}

func TestInMemoryConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Type: "mark", Body: []byte("rec-1")}))
	require.NoError(t, q.Publish(ctx, Message{Type: "mark", Body: []byte("rec-2")}))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	// No reader takes the pending messages; cancellation alone must
	// release the forwarding goroutine and close the channel.
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-msgs:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("consume channel not closed after cancel")
		}
	}
}

func TestPublishBlockedByFullBufferHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	q := NewInMemory(1)
	require.NoError(t, q.Publish(ctx, Message{Type: "mark"}))

	done := make(chan error, 1)
	go func() {
		done <- q.Publish(ctx, Message{Type: "mark"})
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("publish did not return after cancel")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	msg := Message{Type: "mark", Body: []byte(`{"lecture_id":"l1"}`)}
	assert.Equal(t, msg, deserialize(serialize(msg)))

	// Untyped payloads survive as body-only messages.
	assert.Equal(t, Message{Body: []byte("raw")}, deserialize("raw"))
}
