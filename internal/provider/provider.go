// Package provider defines the capability a provider must offer (C3):
// translating a canonical conversation into one concrete wire shape,
// completing it against a remote LLM, and translating the reply back.
//
// Implementations handle the specifics of one backend (Anthropic, an
// OpenAI-compatible endpoint, Databricks, Ollama) while presenting the
// same synchronous Complete method to the reply loop. Implementations
// must be safe for concurrent use.
package provider

import (
	"context"

	"github.com/relaycore/relay/pkg/models"
)

// Provider is the capability the reply loop depends on. Providers are
// polymorphic over this single method; variants differ only in wire
// translation and auth.
type Provider interface {
	// Complete sends systemPrompt, messages, and tools to the backend and
	// returns the assistant's reply plus token usage. messages excludes
	// the system prompt; tools are already qualified and deduplicated.
	Complete(ctx context.Context, systemPrompt string, messages models.Conversation, tools []models.Tool) (*models.Message, models.Usage, error)

	// Name identifies the provider for logs, metrics, and error messages.
	Name() string

	// Model identifies the configured target model for metrics and traces.
	Model() string
}
