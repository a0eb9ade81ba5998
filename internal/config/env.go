package config

import (
	"os"
	"strconv"
	"time"
)

// Loader provides convenient helpers for reading configuration values
// scoped by a common environment variable prefix (e.g. KAMIX_).
type Loader struct {
	Prefix string
}

// NewLoader constructs a loader with the provided prefix. The prefix is
// automatically suffixed with an underscore when reading variables.
func NewLoader(prefix string) Loader {
	if prefix != "" && !hasTrailingUnderscore(prefix) {
		prefix += "_"
	}
	return Loader{Prefix: prefix}
}

func hasTrailingUnderscore(s string) bool {
	return len(s) > 0 && s[len(s)-1] == '_'
}

func (l Loader) lookup(key string) (string, bool) {
	val, ok := os.LookupEnv(l.Prefix + key)
	return val, ok && val != ""
}

// String returns the environment variable value or the provided default.
func (l Loader) String(key, def string) string {
	if val, ok := l.lookup(key); ok {
		return val
	}
	return def
}

// Int returns an integer environment variable or the provided default.
func (l Loader) Int(key string, def int) int {
	if val, ok := l.lookup(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func (l Loader) Int64(key string, def int64) int64 {
	if val, ok := l.lookup(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

// Duration accepts Go duration syntax ("90s", "2h") or a bare number of
// seconds.
func (l Loader) Duration(key string, def time.Duration) time.Duration {
	val, ok := l.lookup(key)
	if !ok {
		return def
	}
	if parsed, err := time.ParseDuration(val); err == nil {
		return parsed
	}
	if parsed, err := strconv.ParseFloat(val, 64); err == nil {
		return time.Duration(parsed * float64(time.Second))
	}
	return def
}

// Bool returns a boolean environment variable or the default.
func (l Loader) Bool(key string, def bool) bool {
	if val, ok := l.lookup(key); ok {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}
