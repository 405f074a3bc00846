package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis-hud/internal/domain"
	"jarvis-hud/internal/usecase/eventbus"
)

func TestIngestorPublish(t *testing.T) {
	bus := eventbus.New(testLogger())
	got := collect(bus, domain.EventPromptResponse)

	in := NewIngestor(bus, testLogger())
	at := time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC)
	in.now = func() time.Time { return at }

	event, err := in.Publish(context.Background(), domain.ConversationEvent{Role: domain.RoleAssistant, Content: "Hi\nthere"})
	require.NoError(t, err)
	assert.Equal(t, domain.EventPromptResponse, event.Type)
	assert.Equal(t, at, event.Timestamp)
	assert.Len(t, event.ID, 26)

	_, err = in.Publish(context.Background(), domain.ConversationEvent{Role: "robot"})
	assert.ErrorIs(t, err, domain.ErrUnknownRole)

	bus.Close()
	events := got()
	require.Len(t, events, 1)
	ev, err := events[0].Conversation()
	require.NoError(t, err)
	assert.Equal(t, "Hi\nthere", ev.Content)
	assert.Equal(t, int64(1), in.Rejected())
}

func TestIngestorAssignsIncreasingIDs(t *testing.T) {
	bus := eventbus.New(testLogger())
	defer bus.Close()
	in := NewIngestor(bus, testLogger())

	var prev string
	for range 10 {
		e, err := in.Publish(context.Background(), domain.ConversationEvent{Role: domain.RoleUser})
		require.NoError(t, err)
		assert.Greater(t, e.ID, prev)
		prev = e.ID
	}
}
