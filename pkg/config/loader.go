package config

import (
	_ "embed"
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	herrors "github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/paths"
)

//go:embed embedded/histofy.toml
var defaultConfig []byte

// EnvPrefix is the prefix for environment overrides, e.g.
// HISTOFY_MIGRATION_START_TIME maps to migration.start_time.
const EnvPrefix = "HISTOFY_"

// rawBytesProvider implements koanf provider for raw bytes
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Load builds the effective configuration for the repository described by p.
func Load(p paths.Paths) (*Config, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, herrors.Wrap(err, herrors.ErrConfiguration, "failed to load defaults")
	}

	// 2. User config file if it exists
	if err := loadFileIfPresent(k, p.ConfigFilePath()); err != nil {
		return nil, err
	}

	// 3. Repository-local config if it exists
	if err := loadFileIfPresent(k, p.RepoConfigPath()); err != nil {
		return nil, err
	}

	// 4. Environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyToPath), nil); err != nil {
		return nil, herrors.Wrap(err, herrors.ErrConfiguration, "failed to load env vars")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, herrors.Wrap(err, herrors.ErrConfiguration, "failed to unmarshal configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadFileIfPresent merges a TOML file into k when the file exists.
// A missing file is not an error; a malformed one is.
func loadFileIfPresent(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return herrors.Wrapf(err, herrors.ErrConfiguration, "failed to stat config at %s", path)
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return herrors.Wrapf(err, herrors.ErrConfiguration, "failed to load config from %s", path)
	}
	return nil
}

// envKeyToPath maps HISTOFY_SECTION_SOME_KEY to section.some_key. The first
// underscore separates the section; the rest stay underscores because the
// key names themselves contain them.
func envKeyToPath(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults parses only the embedded defaults
func loadDefaults() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
