package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func TestSendToUser(t *testing.T) {
	h, _ := startHub(t)
	user := uuid.New()
	a := NewClient(user, nil)
	b := NewClient(user, nil)
	other := NewClient(uuid.New(), nil)
	h.RegisterClient(a)
	h.RegisterClient(b)
	h.RegisterClient(other)
	require.Eventually(t, func() bool { return h.Connected(user) == 2 }, time.Second, 5*time.Millisecond)

	h.SendToUser(user, map[string]string{"type": "lead.created"})

	for _, c := range []*Client{a, b} {
		select {
		case raw := <-c.Send:
			var msg map[string]string
			require.NoError(t, json.Unmarshal(raw, &msg))
			assert.Equal(t, "lead.created", msg["type"])
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
	assert.Empty(t, other.Send)
}

func TestSendToClient_OnlyThatConnection(t *testing.T) {
	h, _ := startHub(t)
	user := uuid.New()
	a := NewClient(user, nil)
	b := NewClient(user, nil)
	h.RegisterClient(a)
	h.RegisterClient(b)
	require.Eventually(t, func() bool { return h.Connected(user) == 2 }, time.Second, 5*time.Millisecond)

	h.SendToClient(a, clientMessage{Type: "pong"})

	select {
	case raw := <-a.Send:
		assert.JSONEq(t, `{"type":"pong"}`, string(raw))
	case <-time.After(time.Second):
		t.Fatal("pong not delivered")
	}
	assert.Empty(t, b.Send)
}

func TestSendToClient_IgnoresClosedClient(t *testing.T) {
	h, _ := startHub(t)
	c := NewClient(uuid.New(), nil)
	h.RegisterClient(c)
	h.UnregisterClient(c)
	require.Eventually(t, func() bool { return h.Connected(c.UserID) == 0 }, time.Second, 5*time.Millisecond)

	assert.NotPanics(t, func() { h.SendToClient(c, clientMessage{Type: "pong"}) })
}

func TestUnregisterClosesSend(t *testing.T) {
	h, _ := startHub(t)
	c := NewClient(uuid.New(), nil)
	h.RegisterClient(c)
	h.UnregisterClient(c)

	_, open := <-c.Send
	assert.False(t, open)
	assert.Zero(t, h.Connected(c.UserID))
}

func TestRun_StopsOnCancel(t *testing.T) {
	h, cancel := startHub(t)
	c := NewClient(uuid.New(), nil)
	h.RegisterClient(c)
	cancel()

	select {
	case _, open := <-c.Send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("client not closed on shutdown")
	}
}

func TestSendToUser_FullBufferDrops(t *testing.T) {
	h, _ := startHub(t)
	c := NewClient(uuid.New(), nil)
	h.RegisterClient(c)
	require.Eventually(t, func() bool { return h.Connected(c.UserID) == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < sendBuffer+10; i++ {
		h.SendToUser(c.UserID, i)
	}
	assert.Len(t, c.Send, sendBuffer)
}

func TestRegisterAfterShutdown(t *testing.T) {
	h, cancel := startHub(t)
	cancel()
	require.Eventually(t, func() bool {
		select {
		case <-h.done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	c := NewClient(uuid.New(), nil)
	h.RegisterClient(c)
	_, open := <-c.Send
	assert.False(t, open)
	h.UnregisterClient(c)
}
