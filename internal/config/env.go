package config

import (
	"os"
	"strings"
)

// resolveSecret expands a "${VAR}" placeholder. An empty value falls back
// to fallbackEnv.
func resolveSecret(value, fallbackEnv string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return os.Getenv(strings.TrimSuffix(strings.TrimPrefix(value, "${"), "}"))
	}
	if value == "" {
		return os.Getenv(fallbackEnv)
	}
	return value
}
