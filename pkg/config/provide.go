package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ADBOARD_"

// Provide loads configuration for the named service into cfg and returns it.
// Values come from an optional yaml file (ADBOARD_<SERVICE>_CONFIG path, if
// set) overridden by ADBOARD_<SERVICE>__ prefixed environment variables, with
// "__" as the nesting delimiter, e.g. ADBOARD_CONNECTOR__POSTGRES__HOST.
func Provide[T any](service string, cfg T) T {
	k := koanf.New(".")

	upper := strings.ToUpper(service)

	if path := os.Getenv(envPrefix + upper + "_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			panic(fmt.Errorf("load config file %s: %w", path, err))
		}
	}

	prefix := envPrefix + upper + "__"
	err := k.Load(env.Provider(prefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, prefix)), "__", ".")
	}), nil)
	if err != nil {
		panic(fmt.Errorf("load config from env: %w", err))
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		panic(fmt.Errorf("unmarshal config: %w", err))
	}

	return cfg
}
