package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromFile loads a .yaml, .yml, or .json file.
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Config{}, fmt.Errorf("unsupported config extension %q", ext)
	}
}

// FromYAML parses a YAML document.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON parses a JSON object.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}

// FromEnv collects variables named prefix+KEY into a Config keyed by the
// lowercased KEY. ORDERFLOW_BATCH_SIZE becomes "batch_size" for prefix
// "ORDERFLOW_". Values stay strings; the typed accessors convert them.
func FromEnv(prefix string, environ []string) Config {
	m := make(map[string]any)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, prefix))
		if key != "" {
			m[key] = value
		}
	}
	return New(m)
}

// Overlay returns base with every key of top applied over it.
// Nested sections are merged one level deep.
func Overlay(base, top Config) Config {
	out := base
	for k, v := range top.Raw() {
		if sub, ok := v.(map[string]any); ok && base.Has(k) {
			merged := base.Section(k)
			for sk, sv := range sub {
				merged = merged.With(sk, sv)
			}
			out = out.With(k, merged.Raw())
			continue
		}
		out = out.With(k, v)
	}
	return out
}
