package config

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/paths"
)

// kind describes how a recognized key's value is parsed
type kind int

const (
	kindString kind = iota
	kindInt
	kindBool
)

// recognizedKeys is the set of dotted keys `histofy config` accepts.
// Anything else is rejected rather than silently written.
var recognizedKeys = map[string]kind{
	"commit.default_time":           kindString,
	"commit.auto_add":               kindBool,
	"migration.start_time":          kindString,
	"migration.spacing_minutes":     kindInt,
	"migration.spread_days":         kindInt,
	"migration.create_backup":       kindBool,
	"migration.rollback_on_failure": kindBool,
	"push.retries":                  kindInt,
	"push.backoff_ms":               kindInt,
	"history.max_entries":           kindInt,
}

// RecognizedKeys returns the sorted list of keys `histofy config` accepts.
func RecognizedKeys() []string {
	keys := make([]string, 0, len(recognizedKeys))
	for k := range recognizedKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the effective value of a recognized key as a display string.
func Get(p paths.Paths, key string) (string, error) {
	if _, ok := recognizedKeys[key]; !ok {
		return "", errors.NewValidationError("key", "unknown configuration key %q", key)
	}

	cfg, err := Load(p)
	if err != nil {
		return "", err
	}

	switch key {
	case "commit.default_time":
		return cfg.Commit.DefaultTime, nil
	case "commit.auto_add":
		return strconv.FormatBool(cfg.Commit.AutoAdd), nil
	case "migration.start_time":
		return cfg.Migration.StartTime, nil
	case "migration.spacing_minutes":
		return strconv.Itoa(cfg.Migration.SpacingMinutes), nil
	case "migration.spread_days":
		return strconv.Itoa(cfg.Migration.SpreadDays), nil
	case "migration.create_backup":
		return strconv.FormatBool(cfg.Migration.CreateBackup), nil
	case "migration.rollback_on_failure":
		return strconv.FormatBool(cfg.Migration.RollbackOnFailure), nil
	case "push.retries":
		return strconv.Itoa(cfg.Push.Retries), nil
	case "push.backoff_ms":
		return strconv.Itoa(cfg.Push.BackoffMs), nil
	case "history.max_entries":
		return strconv.Itoa(cfg.History.MaxEntries), nil
	}
	return "", errors.Newf(errors.ErrInternal, "unhandled key %q", key)
}

// Set writes a recognized key to the user config file, creating the file
// if needed. The write is atomic: a temp file is renamed over the target.
func Set(p paths.Paths, key, value string) error {
	k, ok := recognizedKeys[key]
	if !ok {
		return errors.NewValidationError("key", "unknown configuration key %q", key)
	}

	parsed, err := parseValue(k, key, value)
	if err != nil {
		return err
	}

	doc, err := readUserConfig(p.ConfigFilePath())
	if err != nil {
		return err
	}

	setDotted(doc, key, parsed)

	// Round-trip through the typed config to validate the new value in
	// context before persisting it.
	if err := validateDocument(doc); err != nil {
		return err
	}

	return writeUserConfig(p.ConfigFilePath(), doc)
}

func parseValue(k kind, key, value string) (interface{}, error) {
	switch k {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, errors.NewValidationError(key, "value %q is not an integer", value)
		}
		return n, nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, errors.NewValidationError(key, "value %q is not a boolean", value)
		}
		return b, nil
	default:
		return value, nil
	}
}

func readUserConfig(path string) (map[string]interface{}, error) {
	doc := make(map[string]interface{})
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, errors.Wrapf(err, errors.ErrConfiguration, "failed to read config at %s", path)
	}
	if err := gotoml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfiguration, "failed to parse config at %s", path)
	}
	return doc, nil
}

func writeUserConfig(path string, doc map[string]interface{}) error {
	data, err := gotoml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfiguration, "failed to encode config")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrConfiguration, "failed to create config directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return errors.Wrap(err, errors.ErrConfiguration, "failed to create temp config")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrConfiguration, "failed to write temp config")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrConfiguration, "failed to close temp config")
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, errors.ErrConfiguration, "failed to replace config at %s", path)
	}
	return nil
}

// setDotted sets a section.key path in a nested map, creating the section
// table if needed.
func setDotted(doc map[string]interface{}, key string, value interface{}) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) == 1 {
		doc[key] = value
		return
	}
	section, ok := doc[parts[0]].(map[string]interface{})
	if !ok {
		section = make(map[string]interface{})
		doc[parts[0]] = section
	}
	section[parts[1]] = value
}

// validateDocument layers the would-be file contents over the embedded
// defaults and runs Validate, so a bad value is rejected before it is
// persisted.
func validateDocument(doc map[string]interface{}) error {
	data, err := gotoml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfiguration, "failed to encode config")
	}

	k := koanf.New(".")
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return errors.Wrap(err, errors.ErrConfiguration, "failed to load defaults")
	}
	if err := k.Load(&rawBytesProvider{bytes: data}, toml.Parser()); err != nil {
		return errors.Wrap(err, errors.ErrConfiguration, "new value does not parse")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return errors.Wrap(err, errors.ErrConfiguration, "new value does not parse")
	}
	return cfg.Validate()
}
