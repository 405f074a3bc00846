package gateway

import (
	"encoding/json"

	"jarvis-hud/internal/domain"
)

// FrameType identifies the kind of frame sent over the WebSocket connection.
type FrameType string

const (
	FrameTypeRequest  FrameType = "request"
	FrameTypeResponse FrameType = "response"
	FrameTypeEvent    FrameType = "event"
)

// Frame is the envelope exchanged between client and server over WebSocket.
// Event frames carry a marshalled domain.Event as payload.
type Frame struct {
	Type    FrameType       `json:"type"`
	ID      uint64          `json:"id,omitempty"`      // request/response correlation ID
	Method  string          `json:"method,omitempty"`  // RPC method name (request only)
	Payload json.RawMessage `json:"payload,omitempty"` // request params, response result or event
	Error   string          `json:"error,omitempty"`   // error description (response only)
	Code    string          `json:"code,omitempty"`    // domain.ErrorCode (response only)
}

// RPC methods served over /ws.
const (
	MethodHistoryList   = "history.list"
	MethodPromptPublish = "prompt.publish"
)

// HistoryListRequest is the history.list payload. Limit <= 0 uses the relay default.
type HistoryListRequest struct {
	Limit int `json:"limit"`
}

// HistoryListResponse lists records oldest first.
type HistoryListResponse struct {
	Events []domain.HistoryRecord `json:"events"`
}

// PublishResponse is returned by prompt.publish.
type PublishResponse struct {
	ID string `json:"id"`
}
