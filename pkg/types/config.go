// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// AIConfig holds settings for the search-grounded Generative AI API.
type AIConfig struct {
	// Backend selects the client: "rest" (default) or "genai" for the
	// official Gen AI SDK.
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Model is the AI model identifier (e.g. "gemini-2.5-flash").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Endpoint overrides the API base URL. Empty selects the public endpoint.
	// The rest backend expects the version path ("/v1beta"); genai does not.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`

	// Temperature is the generation temperature (default 0.1).
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// Timeout bounds the HTTP transport. Zero leaves the client unbounded.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// HistoryConfig holds settings for the local scan history.
type HistoryConfig struct {
	// Path is the SQLite file backing the history (default ~/.config/maezuru/maezuru.db).
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Capacity is the maximum number of retained entries (default 50).
	Capacity int `json:"capacity" yaml:"capacity" mapstructure:"capacity"`
}

// ServerConfig holds settings for the local HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// Config groups every section of maezuru.yaml.
type Config struct {
	AI       AIConfig      `json:"ai" yaml:"ai" mapstructure:"ai"`
	History  HistoryConfig `json:"history" yaml:"history" mapstructure:"history"`
	Server   ServerConfig  `json:"server" yaml:"server" mapstructure:"server"`
	LogLevel string        `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}
