package push

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_SendRoutesByCustomer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub("node-test")
	go hub.Run(ctx)

	client := &Client{hub: hub, customerID: "c-1", send: make(chan []byte, 1)}
	hub.register <- client

	require.Eventually(t, func() bool {
		return hub.Send("c-1", []byte(`{"orderId":"o-1"}`))
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, `{"orderId":"o-1"}`, string(<-client.send))

	assert.False(t, hub.Send("c-unknown", []byte("x")), "unknown customers are skipped")

	hub.unregister <- client
	require.Eventually(t, func() bool {
		return !hub.Send("c-1", []byte("y"))
	}, time.Second, 10*time.Millisecond)
}

func TestHub_NewConnectionReplacesOld(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub("node-test")
	go hub.Run(ctx)

	first := &Client{hub: hub, customerID: "c-1", send: make(chan []byte, 1)}
	hub.register <- first
	second := &Client{hub: hub, customerID: "c-1", send: make(chan []byte, 1)}
	hub.register <- second

	require.Eventually(t, func() bool {
		select {
		case _, open := <-first.send:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond, "old connection's send channel must be closed")

	require.Eventually(t, func() bool {
		return hub.Send("c-1", []byte("hello"))
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "hello", string(<-second.send))
}
