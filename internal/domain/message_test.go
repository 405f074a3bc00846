package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole("user")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, r)

	r, err = ParseRole("assistant")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, r)

	for _, bad := range []string{"", "system", "USER", "tool"} {
		_, err := ParseRole(bad)
		assert.ErrorIs(t, err, ErrUnknownRole, "role %q", bad)
	}
}

func TestConversationEventValidate(t *testing.T) {
	assert.NoError(t, ConversationEvent{Role: RoleUser}.Validate())
	assert.NoError(t, ConversationEvent{Role: RoleAssistant, Content: "a\nb"}.Validate())

	err := ConversationEvent{Role: "narrator", Content: "x"}.Validate()
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestConversationEventJSON(t *testing.T) {
	var ev ConversationEvent
	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":"Hello\nthere"}`), &ev))
	assert.Equal(t, RoleAssistant, ev.Role)
	assert.Equal(t, "Hello\nthere", ev.Content)
}

func TestVisualStateString(t *testing.T) {
	assert.Equal(t, "waiting", StateIdle.String())
	assert.Equal(t, "thinking", StateThinking.String())
	assert.Equal(t, "answering", StateAnswering.String())
	assert.Equal(t, "unknown", VisualState(42).String())

	var zero VisualState
	assert.Equal(t, StateIdle, zero)
}
