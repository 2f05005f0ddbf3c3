package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishSubscribe(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	h.Publish(MakeEvent("req-1", TypeSearchCreated, 1, map[string]any{"search_id": "s-1"}))

	msg := <-ch
	var e Event
	require.NoError(t, json.Unmarshal([]byte(msg), &e))
	assert.Equal(t, TypeSearchCreated, e.Type)
	assert.Equal(t, "req-1", e.RequestID)
	assert.Contains(t, string(e.Data), "s-1")
}

func TestHubDropsSlowClients(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	// fill the buffer and keep publishing; Publish must never block
	for i := 0; i < 100; i++ {
		h.Publish(MakeEvent("", TypeSearchProgress, 1, nil))
	}
	assert.Equal(t, 16, len(ch))
}
