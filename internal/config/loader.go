package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MrWong99/rias"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values, returning a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if len(cfg.Nodes) == 0 {
		errs = append(errs, errors.New("nodes: at least one node is required"))
	}

	seenIDs := make(map[string]int, len(cfg.Nodes))
	for i, n := range cfg.Nodes {
		prefix := fmt.Sprintf("nodes[%d]", i)
		if n.Host == "" {
			errs = append(errs, fmt.Errorf("%s.host is required", prefix))
		}
		if n.Port <= 0 || n.Port > 65535 {
			errs = append(errs, fmt.Errorf("%s.port %d is out of range [1,65535]", prefix, n.Port))
		}
		if n.Password == "" {
			errs = append(errs, fmt.Errorf("%s.password is required", prefix))
		}
		id := n.ID
		if id == "" {
			id = fmt.Sprintf("%s:%d", n.Host, n.Port)
		}
		if prev, ok := seenIDs[id]; ok {
			errs = append(errs, fmt.Errorf("%s.id %q is a duplicate of nodes[%d]", prefix, id, prev))
		}
		seenIDs[id] = i
	}

	if cfg.Cluster.NodeSelectionStrategy != "" {
		if _, ok := rias.ParseSelectionStrategy(cfg.Cluster.NodeSelectionStrategy); !ok {
			errs = append(errs, fmt.Errorf("cluster.node_selection_strategy %q is invalid; valid values: load-balanced, regional, least-players, least-load, priority", cfg.Cluster.NodeSelectionStrategy))
		}
	}

	return errors.Join(errs...)
}
