// Package config loads the YAML configuration records the core consumes:
// provider configuration (internal/provider.Config) and MCP server
// configuration (internal/mcpsession.ServerConfig). Decoding is strict:
// an unrecognized field is a load-time error, not a silently ignored typo.
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relaycore/relay/internal/mcpsession"
	"github.com/relaycore/relay/internal/provider"
)

// File is the top-level shape of a relay configuration file: named
// provider configs and named MCP server configs, looked up by the caller
// assembling a concrete Loop.
type File struct {
	Providers map[string]provider.Config    `yaml:"providers"`
	Servers   map[string]mcpsession.ServerConfig `yaml:"mcp_servers"`
}

// Load reads and strictly decodes a File from path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode strictly decodes a File from r, rejecting unrecognized fields at
// every level.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	for name, cfg := range file.Providers {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config: provider %s: %w", name, err)
		}
	}
	for name, cfg := range file.Servers {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config: mcp server %s: %w", name, err)
		}
	}
	return &file, nil
}
