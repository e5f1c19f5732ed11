package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "BACKOFFICE_"

// parseEnv overlays BACKOFFICE_* variables from environ onto config. Unset
// variables leave fields untouched.
func parseEnv(config *Config, environ []string) error {
	opts := env.Options{
		Prefix:      envPrefix,
		Environment: toMap(environ),
	}
	if err := env.ParseWithOptions(config, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func toMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			m[k] = v
		}
	}
	return m
}
