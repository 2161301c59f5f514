// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "staad-bridge/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AnalysisConfig holds settings for the remote analysis stage.
type AnalysisConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the analysis service endpoint.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Token authenticates submissions and polls. Persistence of the
	// token is the caller's responsibility.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// PollBase is the initial poll interval; it doubles each poll
	// until capped at PollMax (default 2s / 30s).
	PollBase time.Duration `json:"poll_base" yaml:"poll_base"`
	PollMax  time.Duration `json:"poll_max" yaml:"poll_max"`

	// PollTimeout bounds the whole wait for job completion (default 10m).
	PollTimeout time.Duration `json:"poll_timeout" yaml:"poll_timeout"`

	// MaxRetries is the transport-failure retry budget per poll (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ExportConfig holds settings for the interop platform export stage.
type ExportConfig struct {
	HTTPConfig `yaml:",inline"`

	// Server is the platform endpoint; the exporter's default server
	// is used when empty.
	Server string `json:"server,omitempty" yaml:"server,omitempty"`

	// Token authenticates stream operations.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// StreamName and StreamDescription label the created stream.
	StreamName        string `json:"stream_name,omitempty" yaml:"stream_name,omitempty"`
	StreamDescription string `json:"stream_description,omitempty" yaml:"stream_description,omitempty"`
}

// DispatchConfig holds settings for the dispatcher.
type DispatchConfig struct {
	// OutputDir is where converted artifacts are written. When empty
	// the dispatcher uses the well-known directory under the user's
	// documents area.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// LedgerDir is where the run history database lives. When empty
	// the ledger is kept inside the output directory.
	LedgerDir string `json:"ledger_dir,omitempty" yaml:"ledger_dir,omitempty"`
}

// BridgeConfig groups all stage configurations.
type BridgeConfig struct {
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`
	Export   ExportConfig   `json:"export" yaml:"export"`
	Dispatch DispatchConfig `json:"dispatch" yaml:"dispatch"`
}
