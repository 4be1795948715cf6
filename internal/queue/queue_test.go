package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Type: TypeToken, Body: []byte("tok-1")}))
	require.NoError(t, q.Publish(ctx, Message{Type: TypeToken, Body: []byte("tok-2")}))

	out, err := q.Consume(ctx)
	require.NoError(t, err)

	first := <-out
	assert.Equal(t, TypeToken, first.Type)
	assert.Equal(t, "tok-1", string(first.Body))
	second := <-out
	assert.Equal(t, "tok-2", string(second.Body))
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Publish(ctx, Message{Type: TypeToken, Body: []byte("fill")}))

	cancel()
	err := q.Publish(ctx, Message{Type: TypeToken, Body: []byte("blocked")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSerializeRoundTrip(t *testing.T) {
	msg := Message{Type: TypeToken, Body: []byte("abc|def")}
	got, err := deserialize(serialize(msg))
	require.NoError(t, err)
	assert.Equal(t, msg.Type, got.Type)
	assert.Equal(t, "abc|def", string(got.Body), "body may contain the separator")
}

func TestConsumeStopsOnCancelWithUnreadMessage(t *testing.T) {
	// A consumer that stops reading after cancellation must not strand
	// the forwarding goroutine mid-send: the out channel still closes.
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	require.NoError(t, q.Publish(ctx, Message{Type: TypeToken, Body: []byte("pending")}))

	out, err := q.Consume(ctx)
	require.NoError(t, err)

	// Let the goroutine pick the message up and block on the send.
	time.Sleep(10 * time.Millisecond)
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-out:
			if !open {
				return
			}
			// The in-flight message may still be delivered first.
		case <-deadline:
			t.Fatal("out channel did not close after cancel")
		}
	}
}

func TestConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	out, err := q.Consume(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, open := <-out:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}
