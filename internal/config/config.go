// Package config provides the YAML configuration schema and loader for the
// riasdemo binary.
package config

import "time"

// Config is the root configuration structure for riasdemo. It is typically
// loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Nodes   []NodeConfig  `yaml:"nodes"`
	Cluster ClusterConfig `yaml:"cluster"`
	Metrics MetricsConfig `yaml:"metrics"`
	Debug   bool          `yaml:"debug"`
}

// NodeConfig describes one Lavalink v4 node to connect to at startup.
type NodeConfig struct {
	// ID uniquely identifies the node in logs and metrics. Defaults to
	// "host:port" when empty.
	ID string `yaml:"id"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	Secure   bool   `yaml:"secure"`

	// Region is a free-text hint used by the "regional" selection strategy.
	Region string `yaml:"region"`

	// Priority breaks ties for the "priority" selection strategy. Lower wins.
	Priority int `yaml:"priority"`

	// ResumeKey, when set, requests Lavalink session resuming across a
	// reconnect; ResumeTimeout bounds how long the node holds the session
	// open waiting for the client to come back.
	ResumeKey     string        `yaml:"resume_key"`
	ResumeTimeout time.Duration `yaml:"resume_timeout"`

	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ReconnectDelay       time.Duration `yaml:"reconnect_delay"`
}

// ClusterConfig configures cluster-wide behavior.
type ClusterConfig struct {
	// UserAgent is sent as the Client-Name header to every node.
	UserAgent string `yaml:"user_agent"`

	// DefaultSearchSource names the source for bare (non-URL) search
	// queries, e.g. "ytsearch". riasdemo issues no searches and does not
	// read it.
	DefaultSearchSource string `yaml:"default_search_source"`

	// NodeSelectionStrategy selects among eligible nodes for new players.
	// One of "load-balanced" (default), "regional", "least-players",
	// "least-load", "priority".
	NodeSelectionStrategy string `yaml:"node_selection_strategy"`
}

// MetricsConfig configures the Prometheus-bridged OpenTelemetry exporter.
type MetricsConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	ServiceName string `yaml:"service_name"`
}
