// Package secret supplies credentials to provider construction without
// tying the core to any particular secret store.
package secret

import (
	"fmt"
	"os"
)

// Source resolves a named secret to its value. Implementations should
// treat an unset secret as an error, not an empty string, so a missing
// credential fails loudly at provider construction rather than silently
// at the first request.
type Source interface {
	Get(name string) (string, error)
}

// EnvSource resolves secrets from environment variables, optionally
// prefixed (e.g. "RELAY_").
type EnvSource struct {
	Prefix string
}

// Get returns the environment variable Prefix+name, erroring if unset.
func (s EnvSource) Get(name string) (string, error) {
	key := s.Prefix + name
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return "", fmt.Errorf("secret: environment variable %s is not set", key)
	}
	return val, nil
}
