// Package config loads connection configuration from a YAML file and the environment.
package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"rundeck/pkg/connection"
)

// EnvPrefix is the prefix for environment overrides, e.g. RUNDECK_API_TOKEN.
const EnvPrefix = "RUNDECK_"

// Load merges YAML (if a path is given and the file exists) with environment
// variables over the standard defaults. Env keys map RUNDECK_API_TOKEN ->
// api_token.
func Load(path string) (connection.Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return connection.Config{}, err
		}
	}

	_ = k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)

	cfg := connection.DefaultConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return connection.Config{}, err
	}

	// Token may live in a secret file (Docker/K8s mounted secrets).
	if cfg.APIToken == "" {
		cfg.APIToken = GetSecretFile(GetEnv(EnvPrefix+"API_TOKEN_FILE", ""))
	}

	return cfg, nil
}
