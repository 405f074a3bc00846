package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"jarvis-hud/internal/domain"
)

// promptSchema is the shape of a conversation event posted by the backend.
// Role values are checked later by the ingestor so an unknown tag keeps its
// own error code.
const promptSchema = `{
	"type": "object",
	"required": ["role"],
	"properties": {
		"role": {"type": "string", "minLength": 1},
		"content": {"type": "string"}
	}
}`

var promptValidator = compileSchema("prompt_response.json", promptSchema)

func compileSchema(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// decodePrompt validates raw against the prompt schema and decodes it.
// Failures wrap domain.ErrInvalidInput.
func decodePrompt(raw []byte) (domain.ConversationEvent, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return domain.ConversationEvent{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := promptValidator.Validate(v); err != nil {
		return domain.ConversationEvent{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	var ev domain.ConversationEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return domain.ConversationEvent{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return ev, nil
}
