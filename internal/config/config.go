package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultDBFileName   = "classdrop.db"
	DefaultBlobDirName  = "blobs"
	DefaultRosterName   = "roster.yaml"
	DefaultSessionName  = "session"
	DefaultDataDirName  = ".classdrop"
	DefaultSessionHours = 24

	DefaultUploadMaxBytes   int64 = 256 * 1024 * 1024
	DefaultUploadGCBatch          = 500
	DefaultLogLevel               = "info"
	configFileName                = ".classdrop.toml"
	configDirEnvKey               = "CLASSDROP_CONFIG_DIR"
	trustProjectConfigEnvKey      = "CLASSDROP_TRUST_PROJECT_CONFIG"

	uploadAllowedExtensionsEnvKey = "CLASSDROP_UPLOAD_ALLOWED_EXTENSIONS"
)

// UploadConfig defines runtime limits for shared-file uploads.
type UploadConfig struct {
	MaxUploadBytes    int64    `toml:"max_upload_bytes"`
	AllowedExtensions []string `toml:"allowed_extensions"`
	GCBatchSize       int      `toml:"gc_batch_size"`
}

// Config defines runtime configuration for classdrop.
type Config struct {
	DataDir                  string       `toml:"data_dir"`
	DBPath                   string       `toml:"db_path"`
	BlobRoot                 string       `toml:"blob_root"`
	RosterPath               string       `toml:"roster_path"`
	SessionFile              string       `toml:"session_file"`
	SessionTTLHours          int          `toml:"session_ttl_hours"`
	LogLevel                 string       `toml:"log_level"`
	Uploads                  UploadConfig `toml:"uploads"`
	TrustedProjectConfigPath string       `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		SessionTTLHours: DefaultSessionHours,
		LogLevel:        DefaultLogLevel,
		Uploads: UploadConfig{
			MaxUploadBytes: DefaultUploadMaxBytes,
			GCBatchSize:    DefaultUploadGCBatch,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"data_dir",
	"db_path",
	"blob_root",
	"roster_path",
	"session_file",
	"session_ttl_hours",
	"log_level",
	"uploads.max_upload_bytes",
	"uploads.allowed_extensions",
	"uploads.gc_batch_size",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "data_dir":
		return c.DataDir, nil
	case "db_path":
		return c.DBPath, nil
	case "blob_root":
		return c.BlobRoot, nil
	case "roster_path":
		return c.RosterPath, nil
	case "session_file":
		return c.SessionFile, nil
	case "session_ttl_hours":
		return strconv.Itoa(c.SessionTTLHours), nil
	case "log_level":
		return c.LogLevel, nil
	case "uploads.max_upload_bytes":
		return strconv.FormatInt(c.Uploads.MaxUploadBytes, 10), nil
	case "uploads.allowed_extensions":
		return strings.Join(c.Uploads.AllowedExtensions, ","), nil
	case "uploads.gc_batch_size":
		return strconv.Itoa(c.Uploads.GCBatchSize), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files, applies env overrides, and fills
// path defaults relative to the data directory.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if dataDir := os.Getenv("CLASSDROP_DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if cfg.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.DataDir = filepath.Join(home, DefaultDataDirName)
		}
	}

	if dbPath := os.Getenv("CLASSDROP_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if rosterPath := os.Getenv("CLASSDROP_ROSTER"); rosterPath != "" {
		cfg.RosterPath = rosterPath
	}
	if raw := strings.TrimSpace(os.Getenv(uploadAllowedExtensionsEnvKey)); raw != "" {
		cfg.Uploads.AllowedExtensions = splitCSV(raw)
	}

	cfg.fillPathDefaults()
	cfg.normalizeDefaults()

	return &cfg, nil
}

func (c *Config) fillPathDefaults() {
	if c.DataDir == "" {
		return
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, DefaultDBFileName)
	}
	if c.BlobRoot == "" {
		c.BlobRoot = filepath.Join(c.DataDir, DefaultBlobDirName)
	}
	if c.RosterPath == "" {
		c.RosterPath = filepath.Join(c.DataDir, DefaultRosterName)
	}
	if c.SessionFile == "" {
		c.SessionFile = filepath.Join(c.DataDir, DefaultSessionName)
	}
}

func (c *Config) normalizeDefaults() {
	if c.SessionTTLHours <= 0 {
		c.SessionTTLHours = DefaultSessionHours
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Uploads.MaxUploadBytes <= 0 {
		c.Uploads.MaxUploadBytes = DefaultUploadMaxBytes
	}
	if c.Uploads.GCBatchSize <= 0 {
		c.Uploads.GCBatchSize = DefaultUploadGCBatch
	}
	c.Uploads.AllowedExtensions = normalizeExtensions(c.Uploads.AllowedExtensions)
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "uploads.max_upload_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "uploads.gc_batch_size", "session_ttl_hours":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "uploads.allowed_extensions":
		return splitCSV(value), nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func normalizeExtensions(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		ext := strings.ToLower(strings.TrimSpace(raw))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
