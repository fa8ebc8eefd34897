package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"photo-speech/internal/shared/telemetry"
)

// loadConfigFile reads a TOML file and flattens it into env-style keys:
//
//	[s3]
//	endpoint = "http://minio:9000"
//
// becomes S3_ENDPOINT. A missing path yields no defaults.
func loadConfigFile(path string) map[string]string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		telemetry.Warn("config.file_unreadable", map[string]any{"path": path, "error": err.Error()})
		return nil
	}
	values, err := parseConfigFile(raw)
	if err != nil {
		telemetry.Warn("config.file_invalid", map[string]any{"path": path, "error": err.Error()})
		return nil
	}
	return values
}

func parseConfigFile(raw []byte) (map[string]string, error) {
	var tree map[string]any
	if err := toml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("decode toml: %w", err)
	}
	out := make(map[string]string)
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := strings.ToUpper(strings.ReplaceAll(k, "-", "_"))
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ",")
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}
