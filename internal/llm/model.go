// Package llm is the boundary to the external text-generation provider.
// It is stateless and synchronous: every Complete call is a single HTTP
// round trip with no retry, backoff, or streaming.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Model is a closed enumeration of internal model aliases. Aliases are
// resolved to concrete provider identifiers inside the client, so callers
// never handle provider-specific names.
type Model string

const (
	// ModelFast is the default alias; the only one exercised in production.
	ModelFast Model = "fast"
	// ModelBalanced and ModelSmart are reserved aliases kept for API
	// compatibility with earlier revisions of the service.
	ModelBalanced Model = "balanced"
	ModelSmart    Model = "smart"
)

// ErrUnknownModel is returned when an alias outside the closed set is used.
var ErrUnknownModel = errors.New("unknown model alias")

// providerIDs maps internal aliases to Groq model identifiers.
var providerIDs = map[Model]string{
	ModelFast:     "llama-3.1-8b-instant",
	ModelBalanced: "llama-3.3-70b-versatile",
	ModelSmart:    "deepseek-r1-distill-llama-70b",
}

// ParseModel validates an alias at the boundary, rejecting unknown values
// instead of letting a lookup failure propagate into the gateway.
func ParseModel(s string) (Model, error) {
	m := Model(s)
	if _, ok := providerIDs[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
	}
	return m, nil
}

// ProviderID resolves the alias to the provider's model identifier.
func (m Model) ProviderID() (string, error) {
	id, ok := providerIDs[m]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, string(m))
	}
	return id, nil
}

// Message is one turn of a transcript sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes a single completion call.
type Request struct {
	Model       Model
	Messages    []Message
	Temperature float64
	// MaxTokens caps the reply length when > 0 (used for title generation).
	MaxTokens int
}

// Client generates a completion for an ordered transcript. Implementations
// must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
