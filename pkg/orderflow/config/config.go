// Package config provides typed access to loosely typed configuration maps
// loaded from YAML, JSON, or the environment.
//
// Every accessor takes a default and returns it when the key is missing or
// its value has the wrong shape, so callers never handle conversion errors:
//
//	cfg, err := config.FromFile("orderflow.yaml")
//	pipeline := cfg.Section("pipeline")
//	batch := pipeline.Int("batch_size", 3)
package config

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config wraps a map[string]any. The zero value is an empty config.
type Config struct {
	data map[string]any
}

// New creates a Config backed by data. A nil map yields an empty Config.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

func (c Config) lookup(key string) (any, bool) {
	if c.data == nil {
		return nil, false
	}
	v, ok := c.data[key]
	return v, ok
}

// String returns the string at key, or def.
func (c Config) String(key, def string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return def
}

// Int returns the integer at key, or def. Floats without a fractional part
// and numeric strings are accepted.
func (c Config) Int(key string, def int) int {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	case string:
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

// Bool returns the boolean at key, or def. Strings accepted by
// strconv.ParseBool are converted.
func (c Config) Bool(key string, def bool) bool {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}

// Duration returns the duration at key, or def. Strings are parsed with
// time.ParseDuration; bare numbers are seconds.
func (c Config) Duration(key string, def time.Duration) time.Duration {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	switch val := v.(type) {
	case time.Duration:
		return val
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	case float64:
		return time.Duration(val * float64(time.Second))
	}
	return def
}

// Decimal returns the exact decimal at key, or def. Strings are parsed
// exactly; YAML/JSON numbers go through their shortest float representation.
func (c Config) Decimal(key string, def decimal.Decimal) decimal.Decimal {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	switch val := v.(type) {
	case decimal.Decimal:
		return val
	case string:
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case float64:
		return decimal.NewFromFloat(val)
	}
	return def
}

// Section returns the nested map at key as a Config. A missing or
// non-map value yields an empty Config.
func (c Config) Section(key string) Config {
	v, _ := c.lookup(key)
	if m, ok := v.(map[string]any); ok {
		return New(m)
	}
	return New(nil)
}

// Has reports whether key is present.
func (c Config) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// With returns a copy of c with key set to value. The receiver is unchanged.
func (c Config) With(key string, value any) Config {
	next := make(map[string]any, len(c.data)+1)
	for k, v := range c.data {
		next[k] = v
	}
	next[key] = value
	return Config{data: next}
}

// Raw returns the underlying map. Callers must not modify it.
func (c Config) Raw() map[string]any {
	return c.data
}
