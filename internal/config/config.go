package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"keyswitch/internal/action"
	"keyswitch/internal/binding"
	"keyswitch/internal/keys"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	// Windows file lock releases (antivirus/indexing) typically settle quickly.
	// Use a short linear backoff: baseDelay * (1..maxRenameRetry).
	renameRetryBaseDelay = 10 * time.Millisecond

	appDirName     = "keyswitch"
	configFileName = "config.yaml"
)

// defaultConfigDirFn is a test seam; tests override it to simulate
// directory-resolution failures in validateConfigPath.
var defaultConfigDirFn = defaultConfigDir
var userHomeDirFn = os.UserHomeDir
var yamlUnmarshalConfigMetadataFn = func(raw []byte, out *map[string]any) error {
	return yaml.Unmarshal(raw, out)
}
var defaultPathWarningState struct {
	mu       sync.Mutex
	messages []string
}

// knownFields lists the top-level keys Load understands. Anything else is
// reported once per load so typos do not go unnoticed.
var knownFields = map[string]struct{}{
	"log_level":    {},
	"watch_config": {},
	"bindings":     {},
}

func recordDefaultPathWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	defaultPathWarningState.mu.Lock()
	defaultPathWarningState.messages = append(defaultPathWarningState.messages, trimmed)
	defaultPathWarningState.mu.Unlock()
}

// ConsumeDefaultPathWarnings returns and clears path-resolution warnings
// accumulated during DefaultPath() calls.
func ConsumeDefaultPathWarnings() []string {
	defaultPathWarningState.mu.Lock()
	defer defaultPathWarningState.mu.Unlock()
	if len(defaultPathWarningState.messages) == 0 {
		return nil
	}
	out := make([]string, len(defaultPathWarningState.messages))
	copy(out, defaultPathWarningState.messages)
	defaultPathWarningState.messages = nil
	return out
}

// Config is the keyswitch runtime configuration.
type Config struct {
	// LogLevel is any level accepted by slog.Level.UnmarshalText
	// ("debug", "info", "warn", "error", optionally with an offset).
	LogLevel string `yaml:"log_level" json:"log_level"`
	// WatchConfig reloads the bindings whenever the file changes.
	WatchConfig bool            `yaml:"watch_config" json:"watch_config"`
	Bindings    []BindingConfig `yaml:"bindings" json:"bindings"`
}

// BindingConfig is one entry of the bindings list.
type BindingConfig struct {
	Keys   string `yaml:"keys" json:"keys"`     // e.g. "CapsLock+Shift"
	Action string `yaml:"action" json:"action"` // see action.Names()
	// Key is the target of press-key.
	Key string `yaml:"key,omitempty" json:"key,omitempty"`
	// Message, WParam and LParam are the post-message payload.
	Message uint32 `yaml:"message,omitempty" json:"message,omitempty"`
	WParam  uint64 `yaml:"wparam,omitempty" json:"wparam,omitempty"`
	LParam  int64  `yaml:"lparam,omitempty" json:"lparam,omitempty"`
	// BlockDefault suppresses the keystroke that triggered the binding.
	// nil means true.
	BlockDefault       *bool `yaml:"block_default,omitempty" json:"block_default,omitempty"`
	BlockOriginalCombo bool  `yaml:"block_original_combo,omitempty" json:"block_original_combo,omitempty"`
}

// DefaultConfig returns the configuration written on first start: CapsLock
// switches the keyboard layout (and the stock layout hotkey is blocked),
// Shift+CapsLock toggles caps lock.
func DefaultConfig() Config {
	return Config{
		LogLevel:    "info",
		WatchConfig: true,
		Bindings: []BindingConfig{
			{Keys: "CapsLock", Action: action.SwitchLanguage.String(), BlockOriginalCombo: true},
			{Keys: "CapsLock+Shift", Action: action.ToggleCapsLock.String()},
		},
	}
}

// DefaultPath resolves the config file path, preferring LOCALAPPDATA over
// APPDATA, falling back to ~/.config when both are unset, and then to
// os.TempDir() if the home directory cannot be resolved.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			recordDefaultPathWarning(
				"Config path fallback: failed to resolve LOCALAPPDATA/APPDATA/home directory. Using temp directory.",
			)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, appDirName, configFileName)
}

// Load reads the config file. If the file does not exist or is empty,
// defaults are returned. Every binding is validated; the first invalid one
// is reported as an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("[DEBUG-CONFIG] config file not found, using defaults", "path", path)
			return cfg, nil
		}
		return cfg, err
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}

	if rawMap, metadataErr := parseRawConfigMetadata(raw); metadataErr != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config metadata", "error", metadataErr)
	} else {
		warnUnknownFields(rawMap)
	}

	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// EnsureFile writes the default config if missing and returns the loaded
// config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
		slog.Info("[config] wrote default config", "path", path)
	}
	return cfg, nil
}

// Clone returns a deep copy of src.
func Clone(src Config) Config {
	dst := src
	if src.Bindings != nil {
		dst.Bindings = make([]BindingConfig, len(src.Bindings))
		for i, b := range src.Bindings {
			dst.Bindings[i] = b
			if b.BlockDefault != nil {
				v := *b.BlockDefault
				dst.Bindings[i].BlockDefault = &v
			}
		}
	}
	return dst
}

// Save validates cfg, fills defaults, and atomically writes to path.
// Returns the normalized config that was actually written to disk.
func Save(path string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path)
	if err != nil {
		return cfg, err
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, fmt.Errorf("save config: %w", err)
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(normalizedPath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", path)
	return cfg, nil
}

// ParseLogLevel converts a log_level value into a slog level.
func ParseLogLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", value, err)
	}
	return level, nil
}

// Build converts the entry into a binding.
func (b BindingConfig) Build() (binding.Binding, error) {
	combo, err := keys.ParseCombination(b.Keys)
	if err != nil {
		return binding.Binding{}, err
	}
	act, err := action.Parse(action.Spec{
		Name:   b.Action,
		Key:    b.Key,
		Msg:    b.Message,
		WParam: b.WParam,
		LParam: b.LParam,
	})
	if err != nil {
		return binding.Binding{}, err
	}

	out := binding.New(combo, act).WithBlockOriginalCombo(b.BlockOriginalCombo)
	if b.BlockDefault != nil {
		out = out.WithBlockDefault(*b.BlockDefault)
	}
	return out, nil
}

// BuildTable registers every configured binding, in file order, into a new
// table. lookup supplies the system combinations for block_original_combo.
func BuildTable(cfg Config, lookup action.ComboLookup) (*binding.Table, error) {
	table := binding.NewTable()
	for i, entry := range cfg.Bindings {
		b, err := entry.Build()
		if err != nil {
			return nil, fmt.Errorf("bindings[%d]: %w", i, err)
		}
		table.Add(b, lookup)
	}
	return table, nil
}

// atomicWrite writes config data using temp-file + rename to avoid partial
// writes and retries rename on Windows to tolerate transient file locks.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-CONFIG] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-CONFIG] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save config: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}

	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

// validateConfigPath normalizes path and enforces that config writes stay
// inside the default config directory.
func validateConfigPath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}

	expectedDir, err := defaultConfigDirFn()
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	absoluteExpectedDir, err := filepath.Abs(expectedDir)
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	if !pathWithinDir(absolutePath, absoluteExpectedDir) {
		return "", fmt.Errorf("save config: path outside config directory: %q", absolutePath)
	}

	return absolutePath, nil
}

func defaultConfigDir() (string, error) {
	return filepath.Dir(DefaultPath()), nil
}

// pathWithinDir blocks directory traversal by ensuring path is under dir.
// It also rejects Windows cross-drive escapes because filepath.Rel returns
// an absolute path when roots differ.
func pathWithinDir(path string, dir string) bool {
	relativePath, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if relativePath == "." {
		return true
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(relativePath)
}

// applyDefaultsAndValidate fills missing defaults and validates cfg in-place.
// MUTATES: cfg is directly modified.
// Used by both Load and Save to ensure consistent normalization.
func applyDefaultsAndValidate(cfg *Config) error {
	defaults := DefaultConfig()
	if isZeroConfig(*cfg) {
		*cfg = defaults
		return nil
	}

	cfg.LogLevel = strings.TrimSpace(cfg.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.Bindings == nil {
		cfg.Bindings = defaults.Bindings
	}
	return validateBindings(cfg.Bindings)
}

// validateBindings trims every entry in place and checks that it builds.
// Duplicate combinations are legal but only the first can ever fire, so
// they are reported as warnings.
func validateBindings(entries []BindingConfig) error {
	seen := make([]keys.Combination, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		entry.Keys = strings.TrimSpace(entry.Keys)
		entry.Action = strings.TrimSpace(entry.Action)
		entry.Key = strings.TrimSpace(entry.Key)

		b, err := entry.Build()
		if err != nil {
			return fmt.Errorf("bindings[%d]: %w", i, err)
		}
		for _, prev := range seen {
			if prev.Equal(b.Combination) {
				slog.Warn("[WARN-CONFIG] duplicate key combination, later binding never fires",
					"index", i, "keys", b.Combination.String())
				break
			}
		}
		seen = append(seen, b.Combination)
	}
	return nil
}

// parseRawConfigMetadata unmarshals raw YAML into a generic map used only
// for metadata checks.
func parseRawConfigMetadata(raw []byte) (map[string]any, error) {
	var rawMap map[string]any
	if err := yamlUnmarshalConfigMetadataFn(raw, &rawMap); err != nil {
		return nil, err
	}
	return rawMap, nil
}

func warnUnknownFields(rawMap map[string]any) {
	var unknown []string
	for field := range rawMap {
		if _, ok := knownFields[field]; !ok {
			unknown = append(unknown, field)
		}
	}
	if len(unknown) == 0 {
		return
	}
	sort.Strings(unknown)
	slog.Warn("[WARN-CONFIG] unknown fields ignored", "fields", strings.Join(unknown, ","))
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	limited := io.LimitReader(file, maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func isZeroConfig(cfg Config) bool {
	// reflect.DeepEqual guards against field-addition drift that manual checks miss.
	return reflect.DeepEqual(cfg, Config{})
}

func renameFileWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := os.Rename(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
