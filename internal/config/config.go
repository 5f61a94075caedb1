package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/intake/pkg/access"
	"github.com/aretw0/intake/pkg/adapters/process"
	"github.com/aretw0/intake/pkg/catalog"
	"github.com/aretw0/intake/pkg/persistence/middleware"
	"github.com/aretw0/intake/pkg/schema"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g. INTAKE_DRAFTS_DRIVER.
const EnvPrefix = "INTAKE_"

// Config is the runtime configuration of the intake service.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Drafts     DraftsConfig     `mapstructure:"drafts"`
	Records    RecordsConfig    `mapstructure:"records"`
	Encryption EncryptionConfig `mapstructure:"encryption"`
	PII        PIIConfig        `mapstructure:"pii"`
	Users      []access.Profile `mapstructure:"users"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Metrics         bool          `mapstructure:"metrics"`
}

// DraftsConfig selects the draft store.
type DraftsConfig struct {
	Driver string        `mapstructure:"driver"` // memory, file, redis, sqlite, postgres
	Path   string        `mapstructure:"path"`
	DSN    string        `mapstructure:"dsn"`
	Redis  RedisConfig   `mapstructure:"redis"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
	// Lock enables cross-replica session locking on the same server.
	Lock bool `mapstructure:"lock"`
}

// RecordsConfig selects the submission gateway.
type RecordsConfig struct {
	Driver  string         `mapstructure:"driver"` // memory, sqlite, postgres, process
	DSN     string         `mapstructure:"dsn"`
	Process process.Config `mapstructure:"process"`
}

// EncryptionConfig holds base64 encoded AES keys. An empty ActiveKey
// disables draft encryption.
type EncryptionConfig struct {
	ActiveKey    string   `mapstructure:"active_key"`
	FallbackKeys []string `mapstructure:"fallback_keys"`
}

// PIIConfig lists regular expressions over field names whose values are
// masked before a draft is stored. Masked values are not restored on resume,
// so a pattern may only match fields whose step accepts the mask: free text
// or optional fields. Patterns matching any other catalog field are rejected.
type PIIConfig struct {
	Patterns []string `mapstructure:"patterns"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info", Format: "text"},
		Server:  ServerConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second, Metrics: true},
		Drafts:  DraftsConfig{Driver: "memory", Path: ".intake/drafts", Redis: RedisConfig{Addr: "localhost:6379", Prefix: "intake:"}},
		Records: RecordsConfig{Driver: "memory"},
	}
}

// Load reads path (when not empty), applies INTAKE_* overrides from the
// environment and validates the result.
func Load(path string) (Config, error) {
	return load(path, os.Environ())
}

func load(path string, environ []string) (Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}
	applyEnv(raw, environ)

	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKeys maps INTAKE_* variables to config paths. Only scalar settings
// are exposed; users come from the file.
var envKeys = map[string][]string{
	"LOG_LEVEL":                {"log", "level"},
	"LOG_FORMAT":               {"log", "format"},
	"SERVER_ADDR":              {"server", "addr"},
	"SERVER_SHUTDOWN_TIMEOUT":  {"server", "shutdown_timeout"},
	"SERVER_METRICS":           {"server", "metrics"},
	"DRAFTS_DRIVER":            {"drafts", "driver"},
	"DRAFTS_PATH":              {"drafts", "path"},
	"DRAFTS_DSN":               {"drafts", "dsn"},
	"DRAFTS_TTL":               {"drafts", "ttl"},
	"DRAFTS_REDIS_ADDR":        {"drafts", "redis", "addr"},
	"DRAFTS_REDIS_PASSWORD":    {"drafts", "redis", "password"},
	"DRAFTS_REDIS_DB":          {"drafts", "redis", "db"},
	"DRAFTS_REDIS_PREFIX":      {"drafts", "redis", "prefix"},
	"DRAFTS_REDIS_LOCK":        {"drafts", "redis", "lock"},
	"RECORDS_DRIVER":           {"records", "driver"},
	"RECORDS_DSN":              {"records", "dsn"},
	"RECORDS_PROCESS_COMMAND":  {"records", "process", "command"},
	"RECORDS_PROCESS_TIMEOUT":  {"records", "process", "timeout"},
	"ENCRYPTION_ACTIVE_KEY":    {"encryption", "active_key"},
	"ENCRYPTION_FALLBACK_KEYS": {"encryption", "fallback_keys"},
	"PII_PATTERNS":             {"pii", "patterns"},
}

func applyEnv(raw map[string]any, environ []string) {
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, EnvPrefix) {
			continue
		}
		path, known := envKeys[strings.TrimPrefix(k, EnvPrefix)]
		if !known {
			continue
		}
		setPath(raw, path, v)
	}
}

func setPath(m map[string]any, path []string, v any) {
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = v
}

var (
	draftDrivers  = []string{"memory", "file", "redis", "sqlite", "postgres"}
	recordDrivers = []string{"memory", "sqlite", "postgres", "process"}
)

// Validate checks driver names and the settings each driver needs.
func (c Config) Validate() error {
	if !contains(draftDrivers, c.Drafts.Driver) {
		return fmt.Errorf("drafts.driver: unknown driver %q (want one of %s)", c.Drafts.Driver, strings.Join(draftDrivers, ", "))
	}
	if !contains(recordDrivers, c.Records.Driver) {
		return fmt.Errorf("records.driver: unknown driver %q (want one of %s)", c.Records.Driver, strings.Join(recordDrivers, ", "))
	}
	switch c.Drafts.Driver {
	case "file":
		if c.Drafts.Path == "" {
			return fmt.Errorf("drafts.path is required for the file driver")
		}
	case "sqlite", "postgres":
		if c.Drafts.DSN == "" {
			return fmt.Errorf("drafts.dsn is required for the %s driver", c.Drafts.Driver)
		}
	}
	switch c.Records.Driver {
	case "sqlite", "postgres":
		if c.Records.DSN == "" {
			return fmt.Errorf("records.dsn is required for the %s driver", c.Records.Driver)
		}
	case "process":
		if c.Records.Process.Command == "" {
			return fmt.Errorf("records.process.command is required for the process driver")
		}
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format: want text or json, got %q", c.Log.Format)
	}
	for i, u := range c.Users {
		if !u.Role.Valid() {
			return fmt.Errorf("users[%d]: unknown role %q", i, u.Role)
		}
	}
	return checkPII(c.PII.Patterns)
}

// checkPII rejects patterns that would mask a catalog field with a value the
// field's schema refuses. A draft saved that way fails validation on resume.
func checkPII(patterns []string) error {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("pii.patterns[%d]: %w", i, err)
		}
		res[i] = re
	}
	if len(res) == 0 {
		return nil
	}

	schemas := catalog.Schemas()
	for _, step := range catalog.StepIDs() {
		err := schema.Walk(schemas[step], func(path []string, t schema.Type) error {
			name := path[len(path)-1]
			for i, re := range res {
				if re.MatchString(name) && t.Validate(middleware.Mask) != nil {
					return fmt.Errorf("pii.patterns[%d]: %q masks %s.%s, which would fail validation when the draft is resumed",
						i, patterns[i], step, strings.Join(path, "."))
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
