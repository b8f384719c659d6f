package config

import (
	"fmt"
	"os"
	"strings"
)

// loadSecret resolves a secret value from ENV=, FILE=, ${VAR} or inline.
func loadSecret(value string) (string, error) {
	if value == "" {
		return "", nil
	}

	if envVar, ok := strings.CutPrefix(value, "ENV="); ok {
		v := os.Getenv(envVar)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", envVar)
		}
		return v, nil
	}

	if path, ok := strings.CutPrefix(value, "FILE="); ok {
		path = strings.TrimSpace(path)
		if strings.Contains(path, "..") {
			return "", fmt.Errorf("path traversal not allowed: %s", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		varName := value[2 : len(value)-1]
		v := os.Getenv(varName)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", varName)
		}
		return v, nil
	}

	return value, nil
}
