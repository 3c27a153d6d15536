// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNoToolInvocation is returned when the model answered without calling the
// requested tool.
var ErrNoToolInvocation = errors.New("model did not invoke the requested tool")

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolDefinition describes a tool whose input schema is a JSON object.
type ToolDefinition struct {
	Name        string
	Description string
	Properties  map[string]interface{}
	Required    []string
}

// Schema returns the full JSON schema of the tool input.
func (t ToolDefinition) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": t.Properties,
		"required":   t.Required,
	}
}

// ToolRequest asks the model to answer exclusively through Tool.
type ToolRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	Tool        ToolDefinition
	MaxTokens   int
	Temperature float64
}

// ToolResponse carries the raw tool input produced by the model.
type ToolResponse struct {
	ToolName   string
	Input      json.RawMessage
	Text       string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Decode unmarshals the tool input into v.
func (r *ToolResponse) Decode(v interface{}) error {
	return json.Unmarshal(r.Input, v)
}

// Client is the interface for LLM providers.
type Client interface {
	// InvokeTool sends the request with the tool forced and returns its input.
	// It returns ErrNoToolInvocation if the model produced no matching call.
	InvokeTool(ctx context.Context, req *ToolRequest) (*ToolResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

const defaultMaxTokens = 4096

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return NewAnthropicClient(apiKey)
	}
}
