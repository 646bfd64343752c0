package provider

import "testing"

func validConfig() Config {
	return Config{Kind: KindAnthropic, Host: "https://api.anthropic.com", Model: ModelConfig{Name: "claude-3-opus"}}
}

func TestConfigValidateAcceptsWellFormedConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestConfigValidateRequiresKind(t *testing.T) {
	cfg := validConfig()
	cfg.Kind = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a missing kind")
	}
}

func TestConfigValidateRequiresHost(t *testing.T) {
	cfg := validConfig()
	cfg.Host = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a missing host")
	}
}

func TestConfigValidateRequiresModelName(t *testing.T) {
	cfg := validConfig()
	cfg.Model.Name = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a missing model name")
	}
}

func TestConfigValidateRejectsUnknownAuthMode(t *testing.T) {
	cfg := validConfig()
	cfg.AuthMode = "oauth"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unknown auth mode")
	}
}

func TestNewDispatchesOnKind(t *testing.T) {
	cfg := validConfig()
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "anthropic" {
		t.Fatalf("Name() = %q", p.Name())
	}
}

func TestNewRejectsUnknownKind(t *testing.T) {
	cfg := validConfig()
	cfg.Kind = "made-up"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected an error for an unknown kind")
	}
}
