package common

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML overlay.
const ConfigFileEnv = "LCABLESYNC_CONFIG"

// Load builds the configuration from the environment and, when
// LCABLESYNC_CONFIG is set, overlays the YAML file it points to.
func Load() (*Config, error) {
	cfg := LoadConfig()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

// ApplyFile overlays the YAML document at path onto c. Keys absent from the
// file keep their current values. The document is checked against
// ConfigFileSchema before it is applied.
func (c *Config) ApplyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file", err)
	}
	return c.ApplyYAML(raw)
}

// ApplyYAML is ApplyFile for an in-memory document.
func (c *Config) ApplyYAML(raw []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return NewAppError("CONFIG_ERROR", "parse config yaml", err)
	}
	if doc == nil {
		return nil
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "config yaml is not json-compatible", err)
	}
	if err := ValidateJSONAgainstSchema(ConfigFileSchema(), asJSON); err != nil {
		return NewAppError("CONFIG_ERROR", "config file rejected", fmt.Errorf("%w: %v", ErrValidation, err))
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return NewAppError("CONFIG_ERROR", "decode config yaml", err)
	}
	return nil
}

// ConfigFileSchema returns the JSON schema accepted for the YAML overlay.
func ConfigFileSchema() map[string]any {
	duration := map[string]any{"type": "string", "pattern": `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`}
	positiveInt := map[string]any{"type": "integer", "minimum": 1}
	percent := map[string]any{"type": "number", "minimum": 0, "maximum": 100}
	stringList := map[string]any{"type": "array", "items": map[string]any{"type": "string", "minLength": 1}}
	singleChar := map[string]any{"type": "string", "minLength": 1, "maxLength": 1}

	section := func(props map[string]any) map[string]any {
		return map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           props,
		}
	}

	return section(map[string]any{
		"pipeline": section(map[string]any{
			"dpi":                map[string]any{"type": "integer", "minimum": 50, "maximum": 1200},
			"upscale":            positiveInt,
			"header_crop_ratio":  map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 1},
			"header_crop_scales": map[string]any{"type": "array", "minItems": 1, "items": map[string]any{"type": "number", "exclusiveMinimum": 0}},
			"min_crop_height":    positiveInt,
			"force_ocr":          map[string]any{"type": "boolean"},
			"document_timeout":   duration,
			"read_attempts":      positiveInt,
			"read_delay":         duration,
			"thresholds": map[string]any{
				"type":                 "object",
				"additionalProperties": percent,
			},
			"project_loose_threshold":   percent,
			"milestone_loose_threshold": percent,
			"project_year_cutoff":       positiveInt,
			"project_min_digits":        positiveInt,
			"project_max_digits":        positiveInt,
			"milestone_keywords":        stringList,
			"header_window":             positiveInt,
			"merged_window":             positiveInt,
			"numeric_window":            positiveInt,
			"keyword_window":            positiveInt,
			"confusions": map[string]any{
				"type":                 "object",
				"propertyNames":        singleChar,
				"additionalProperties": singleChar,
			},
			"path_markers": map[string]any{"type": "string", "minLength": 1},
		}),
		"ocr": section(map[string]any{
			"engine":       map[string]any{"enum": []string{"tesseract", "gosseract"}},
			"renderer":     map[string]any{"enum": []string{"poppler", "fitz"}},
			"tesseract":    map[string]any{"type": "string"},
			"pdftoppm":     map[string]any{"type": "string"},
			"languages":    stringList,
			"tessdata_dir": map[string]any{"type": "string"},
			"psm":          map[string]any{"type": "integer", "minimum": 0, "maximum": 13},
			"oem":          map[string]any{"type": "integer", "minimum": 0, "maximum": 3},
		}),
		"reference": section(map[string]any{
			"path":  map[string]any{"type": "string"},
			"sheet": map[string]any{"type": "string"},
		}),
		"store": section(map[string]any{
			"driver":             map[string]any{"enum": []string{"sqlite", "postgres"}},
			"dsn":                map[string]any{"type": "string"},
			"max_conns":          positiveInt,
			"min_conns":          map[string]any{"type": "integer", "minimum": 0},
			"max_conn_lifetime":  duration,
			"max_conn_idle_time": duration,
			"dial_timeout":       duration,
		}),
		"server": section(map[string]any{
			"grpc_addr": map[string]any{"type": "string"},
		}),
		"ingest": section(map[string]any{
			"roots":        stringList,
			"debounce":     duration,
			"initial_scan": map[string]any{"type": "boolean"},
			"workers":      positiveInt,
			"queue_size":   positiveInt,
		}),
		"log": section(map[string]any{
			"level":  map[string]any{"enum": []string{"debug", "info", "warn", "error"}},
			"format": map[string]any{"enum": []string{"json", "text"}},
		}),
	})
}
