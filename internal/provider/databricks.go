package provider

// NewDatabricks builds a translator for a Databricks model-serving
// endpoint. Databricks exposes an OpenAI-compatible chat-completions route
// under its workspace host, so this is the shared translator with a
// distinct name for logs and error messages.
func NewDatabricks(cfg Config) (*OpenAICompatible, error) {
	if cfg.AuthMode == "" {
		cfg.AuthMode = AuthModeBearer
	}
	return NewOpenAICompatible("databricks", cfg)
}
