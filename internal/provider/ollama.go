package provider

// NewOllama builds a translator for a local Ollama instance. Ollama speaks
// the OpenAI chat-completions shape under /v1, has no credentials, and
// never returns context-length errors through the same code path as a
// hosted provider; callers typically leave APIKey empty and AuthMode
// unset.
func NewOllama(cfg Config) (*OpenAICompatible, error) {
	if cfg.AuthMode == "" {
		cfg.AuthMode = AuthModeNone
	}
	return NewOpenAICompatible("ollama", cfg)
}
