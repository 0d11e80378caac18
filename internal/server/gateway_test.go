package server

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func newTestClient(userID string) *Client {
	return &Client{
		userID: userID,
		name:   userID,
		send:   make(chan []byte, 64),
	}
}

// Battle notifications race against participants dropping and
// reconnecting; neither side may ever touch a closed send channel.
func TestNotifySurvivesReconnectChurn(t *testing.T) {
	g := NewGateway(nil, zaptest.NewLogger(t))

	const rounds = 500
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			c := newTestClient("alice")
			g.register(c)
			g.unregister(c)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			g.Notify(context.Background(), "alice", "Round 1 begins!")
		}
	}()

	wg.Wait()
}

func TestRegisterReplacesExistingClient(t *testing.T) {
	g := NewGateway(nil, zaptest.NewLogger(t))

	first := newTestClient("alice")
	g.register(first)

	second := newTestClient("alice")
	g.register(second)

	// The replaced client's channel is closed, the new one is live.
	_, open := <-first.send
	assert.False(t, open)
	assert.True(t, second.trySend([]byte("x")))

	// The old connection's teardown must not evict the new client.
	g.unregister(first)
	g.Notify(context.Background(), "alice", "still here")
	assert.Equal(t, 2, len(second.send))
}

func TestNotifyAfterUnregisterIsDropped(t *testing.T) {
	g := NewGateway(nil, zaptest.NewLogger(t))

	c := newTestClient("alice")
	g.register(c)
	g.unregister(c)

	g.Notify(context.Background(), "alice", "late notice")
	assert.False(t, c.trySend([]byte("x")))
}

func TestTrySendReportsFullBuffer(t *testing.T) {
	c := &Client{userID: "alice", send: make(chan []byte, 1)}

	assert.True(t, c.trySend([]byte("one")))
	assert.False(t, c.trySend([]byte("two")))

	c.closeSend()
	c.closeSend()
	assert.False(t, c.trySend([]byte("three")))
}
