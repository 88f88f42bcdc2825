package config

import "time"

// TimeoutConfig holds timeout settings for the HTTP server.
// These can be configured via CLI flags to tune behaviour for different environments.
type TimeoutConfig struct {
	// HTTPRead is the timeout for reading a request, body included.
	// Default: 15s
	HTTPRead time.Duration

	// HTTPIdle is how long keep-alive connections may sit idle between requests.
	// Default: 120s
	HTTPIdle time.Duration

	// Request bounds a single handler chain, store calls included.
	// Default: 60s
	Request time.Duration

	// Shutdown is the grace period for in-flight requests on shutdown.
	// Default: 30s
	Shutdown time.Duration
}

// DefaultTimeoutConfig returns the default timeout configuration
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPRead: 15 * time.Second,
		HTTPIdle: 120 * time.Second,
		Request:  60 * time.Second,
		Shutdown: 30 * time.Second,
	}
}

// Resolved returns a copy of c with unset timeouts replaced by defaults
func (c *TimeoutConfig) Resolved() *TimeoutConfig {
	def := DefaultTimeoutConfig()
	if c == nil {
		return def
	}
	out := *c
	if out.HTTPRead <= 0 {
		out.HTTPRead = def.HTTPRead
	}
	if out.HTTPIdle <= 0 {
		out.HTTPIdle = def.HTTPIdle
	}
	if out.Request <= 0 {
		out.Request = def.Request
	}
	if out.Shutdown <= 0 {
		out.Shutdown = def.Shutdown
	}
	return &out
}

