package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	// EnvPrefix prefixes environment variables. Nesting levels are separated
	// by a double underscore: READGATE_GATEWAY__BASE_PATH=gateway.base_path.
	EnvPrefix = "READGATE_"

	// EnvConfigFile names the config file when --config is not given
	EnvConfigFile = EnvPrefix + "CONFIG"
)

// Loader loads configuration with precedence, highest first:
// command-line flags, environment variables, config file, defaults.
type Loader struct {
	k    *koanf.Koanf
	path string
}

// NewLoader loads defaults, the file at path (if any) and the environment
func NewLoader(path string) (*Loader, error) {
	return NewLoaderWithFlags(path, nil)
}

// NewLoaderWithFlags is NewLoader plus any flags the user changed in flags.
// Flags must have been registered with RegisterFlags.
func NewLoaderWithFlags(path string, flags *pflag.FlagSet) (*Loader, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if flags != nil {
		mapping := flagKeys()
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := mapping[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load command-line flags: %w", err)
		}
	}

	return &Loader{k: k, path: path}, nil
}

// Get unmarshals and validates the loaded configuration
func (l *Loader) Get() (*Config, error) {
	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Path returns the config file that was loaded, or "" if none
func (l *Loader) Path() string {
	return l.path
}

// All returns the flattened configuration, for diagnostics
func (l *Loader) All() map[string]any {
	return l.k.All()
}

// ResolvePath picks the config file: the explicit path, then
// $READGATE_CONFIG, then defaultPath if it exists. An explicit or
// environment path that does not exist is an error.
func ResolvePath(explicit, defaultPath string) (string, error) {
	for _, p := range []string{explicit, os.Getenv(EnvConfigFile)} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("config file %s: %w", p, err)
		}
		return p, nil
	}

	if defaultPath == "" {
		return "", nil
	}
	if _, err := os.Stat(defaultPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config file %s: %w", defaultPath, err)
	}
	return defaultPath, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (want .yaml, .json or .toml)", filepath.Ext(path))
	}
}

// envKey maps READGATE_GATEWAY__BASE_PATH to gateway.base_path. Variables
// that name no setting, READGATE_CONFIG included, are ignored.
func envKey(name, value string) (string, any) {
	s, ok := settingForEnv(name)
	if !ok {
		return "", nil
	}
	if s.list() {
		return s.key, splitList(value)
	}
	return s.key, value
}

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
