// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds every single request (page, payload, catalog query).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// Delay is a closed interval from which randomized waits are drawn.
type Delay struct {
	Min time.Duration `json:"min" yaml:"min"`
	Max time.Duration `json:"max" yaml:"max"`
}

// AcquisitionConfig holds settings for the PDF acquisition stage.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline"`

	// Mirrors are the base URLs of the mirror network. Must not be empty.
	Mirrors []string `json:"mirrors" yaml:"mirrors"`

	// MaxAttempts bounds tries per record (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// RetryDelay is waited between attempts for the same record (default 3-6s).
	RetryDelay Delay `json:"retry_delay" yaml:"retry_delay"`

	// SuccessDelay is waited after a record is downloaded (default 10-15s).
	SuccessDelay Delay `json:"success_delay" yaml:"success_delay"`

	// FailureDelay is waited after a record is exhausted (default 5-8s).
	FailureDelay Delay `json:"failure_delay" yaml:"failure_delay"`

	// RequestsPerSecond caps the aggregate request rate to the mirror network.
	// Zero or negative disables the cap.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// BaseDir is the artifact root (default "PDF_PAPERS").
	BaseDir string `json:"base_dir" yaml:"base_dir"`
}

// CatalogConfig holds settings for the catalog crawler.
type CatalogConfig struct {
	HTTPConfig `yaml:",inline"`

	// Dir holds one <CONF>_PAPER subdirectory per venue.
	Dir string `json:"dir" yaml:"dir"`

	// MaxHits is the result-count cap sent with every query (default 1000).
	MaxHits int `json:"max_hits" yaml:"max_hits"`

	// SuccessWait and FailureWait separate consecutive year requests.
	SuccessWait time.Duration `json:"success_wait" yaml:"success_wait"`
	FailureWait time.Duration `json:"failure_wait" yaml:"failure_wait"`
}

// EmbeddingConfig holds settings for the embedding generator.
type EmbeddingConfig struct {
	// BaseURL is the Ollama endpoint (e.g. "http://localhost:11434").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the encoder model name.
	Model string `json:"model" yaml:"model"`

	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultAcquisitionConfig returns the pacing and retry values the mirror
// network has been observed to tolerate.
func DefaultAcquisitionConfig() AcquisitionConfig {
	return AcquisitionConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) paper-harvest/0.1",
		},
		MaxAttempts:       3,
		RetryDelay:        Delay{Min: 3 * time.Second, Max: 6 * time.Second},
		SuccessDelay:      Delay{Min: 10 * time.Second, Max: 15 * time.Second},
		FailureDelay:      Delay{Min: 5 * time.Second, Max: 8 * time.Second},
		RequestsPerSecond: 1,
		BaseDir:           "PDF_PAPERS",
	}
}

// DefaultCatalogConfig mirrors the dblp politeness waits used by the crawler.
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   60 * time.Second,
			UserAgent: "paper-harvest/0.1",
		},
		Dir:         "catalog",
		MaxHits:     1000,
		SuccessWait: 10 * time.Second,
		FailureWait: 1 * time.Second,
	}
}
