package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis-hud/internal/domain"
)

func TestPublisherRoundTrip(t *testing.T) {
	srv, _ := startRelay(t, nil)
	ws := dialWS(t, srv, "test-token")

	p := NewPublisher("http://"+srv.BoundAddr()+"/", "test-token")
	echo, err := p.Publish(context.Background(), domain.ConversationEvent{Role: domain.RoleAssistant, Content: "Systems nominal."})
	require.NoError(t, err)
	assert.Equal(t, "Systems nominal.", echo.Content)

	got, err := decodeEvent(t, readFrame(t, ws, isEventOf(domain.EventPromptResponse))).Conversation()
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAssistant, got.Role)
	assert.Equal(t, "Systems nominal.", got.Content)
}

func TestPublisherErrors(t *testing.T) {
	srv, _ := startRelay(t, nil)
	base := "http://" + srv.BoundAddr()

	t.Run("bad token", func(t *testing.T) {
		_, err := NewPublisher(base, "nope").Publish(context.Background(), domain.ConversationEvent{Role: domain.RoleUser, Content: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), string(domain.CodeGatewayAuth))
	})

	t.Run("unknown role rejected locally", func(t *testing.T) {
		_, err := NewPublisher(base, "test-token").Publish(context.Background(), domain.ConversationEvent{Role: "narrator"})
		assert.ErrorIs(t, err, domain.ErrUnknownRole)
	})

	t.Run("relay down", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		url := dead.URL
		dead.Close()
		p := NewPublisher(url, "")
		p.HTTP.Timeout = time.Second
		_, err := p.Publish(context.Background(), domain.ConversationEvent{Role: domain.RoleUser, Content: "x"})
		assert.ErrorIs(t, err, domain.ErrUnavailable)
	})

	t.Run("non json body", func(t *testing.T) {
		plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer plain.Close()
		_, err := NewPublisher(plain.URL, "").Publish(context.Background(), domain.ConversationEvent{Role: domain.RoleUser, Content: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})
}
