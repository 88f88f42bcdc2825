package config

import (
	"os"
	"strconv"
	"time"
)

// Getter is an interface for retrieving raw setting values
type Getter interface {
	GetSetting(key string) (string, error)
}

// EnvGetter reads settings from the process environment
type EnvGetter struct{}

// GetSetting returns the environment variable named key, or "" when unset
func (EnvGetter) GetSetting(key string) (string, error) {
	return os.Getenv(key), nil
}

// MapGetter serves settings from a fixed map
type MapGetter map[string]string

// GetSetting returns the value stored under key
func (m MapGetter) GetSetting(key string) (string, error) {
	return m[key], nil
}

// Loader provides typed access to settings with default values
type Loader struct {
	src Getter
}

// NewLoader creates a new settings loader
func NewLoader(src Getter) *Loader {
	return &Loader{src: src}
}

// NewEnvLoader creates a loader backed by the process environment
func NewEnvLoader() *Loader {
	return NewLoader(EnvGetter{})
}

func (l *Loader) raw(key string) string {
	if l == nil || l.src == nil {
		return ""
	}
	val, _ := l.src.GetSetting(key)
	return val
}

// Int retrieves an integer setting, returning defaultVal if not found or invalid
func (l *Loader) Int(key string, defaultVal int) int {
	if val := l.raw(key); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			return v
		}
	}
	return defaultVal
}

// Bool retrieves a boolean setting, returning defaultVal if not found or invalid
func (l *Loader) Bool(key string, defaultVal bool) bool {
	if val := l.raw(key); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			return v
		}
	}
	return defaultVal
}

// String retrieves a string setting, returning defaultVal if not found or empty
func (l *Loader) String(key, defaultVal string) string {
	if val := l.raw(key); val != "" {
		return val
	}
	return defaultVal
}

// Duration retrieves a duration setting, returning defaultVal if not found or invalid
// Expects the value to be in Go duration format (e.g., "1h30m", "5s")
func (l *Loader) Duration(key string, defaultVal time.Duration) time.Duration {
	if val := l.raw(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
