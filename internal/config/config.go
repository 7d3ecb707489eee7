package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/carlosrabelo/terminalnator/internal/logging"
)

const (
	appName  = "terminalnator"
	fileName = "terminalnator.yaml"

	BackendFile  = "file"
	BackendRedis = "redis"
)

// ErrNotFound is returned by Find when no config file exists.
var ErrNotFound = errors.New("no terminalnator.yaml found")

// Duration accepts "30s" style strings or plain seconds.
type Duration time.Duration

// UnmarshalYAML parses a duration string or a number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		*d = 0
		return nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", value.Line, raw)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// RedisConfig points at a shared profile inventory
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// SSHConfig tunes the SSH transport
type SSHConfig struct {
	KnownHosts            string   `yaml:"known_hosts"`
	InsecureIgnoreHostKey bool     `yaml:"insecure_ignore_host_key"`
	LegacyAlgorithms      bool     `yaml:"legacy_algorithms"`
	KeepAlive             Duration `yaml:"keepalive"`
}

// SNMPConfig is used by platform detection over SNMP
type SNMPConfig struct {
	Community string   `yaml:"community"`
	Port      int      `yaml:"port"`
	Timeout   Duration `yaml:"timeout"`
}

// Config defines the application configuration
type Config struct {
	ProfilesFile   string      `yaml:"profiles_file"`
	ProfileBackend string      `yaml:"profile_backend"`
	Redis          RedisConfig `yaml:"redis"`
	AuditFile      string      `yaml:"audit_file"`
	LogLevel       string      `yaml:"log_level"`
	LogFile        string      `yaml:"log_file"`
	MaxSessions    int         `yaml:"max_sessions"`
	ConnectTimeout Duration    `yaml:"connect_timeout"`
	CommandTimeout Duration    `yaml:"command_timeout"`
	IdleTimeout    Duration    `yaml:"idle_timeout"`
	MaxBuffer      int         `yaml:"max_buffer"`
	Strict         bool        `yaml:"strict"`
	DisablePaging  *bool       `yaml:"disable_paging"`
	SSH            SSHConfig   `yaml:"ssh"`
	SNMP           SNMPConfig  `yaml:"snmp"`
	MetricsAddr    string      `yaml:"metrics_addr"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	dir := userDir()
	return &Config{
		ProfilesFile:   filepath.Join(dir, "profiles.yaml"),
		ProfileBackend: BackendFile,
		Redis:          RedisConfig{Prefix: appName + ":"},
		LogLevel:       "info",
		MaxSessions:    16,
		ConnectTimeout: Duration(30 * time.Second),
		CommandTimeout: Duration(60 * time.Second),
		IdleTimeout:    Duration(15 * time.Minute),
		MaxBuffer:      1 << 20,
		SSH: SSHConfig{
			KnownHosts: filepath.Join(dir, "known_hosts"),
			KeepAlive:  Duration(30 * time.Second),
		},
		SNMP: SNMPConfig{
			Community: "public",
			Port:      161,
			Timeout:   Duration(2 * time.Second),
		},
	}
}

// PagingDisabled reports whether paging should be turned off after login.
// It defaults to true.
func (c *Config) PagingDisabled() bool {
	return c.DisablePaging == nil || *c.DisablePaging
}

// SearchPaths lists where the config file is looked for, in order.
func SearchPaths() []string {
	paths := []string{filepath.Join(".", fileName)}
	if runtime.GOOS == "windows" {
		if appDataDir := os.Getenv("APPDATA"); appDataDir != "" {
			paths = append(paths, filepath.Join(appDataDir, appName, fileName))
		}
		if programDataDir := os.Getenv("ProgramData"); programDataDir != "" {
			paths = append(paths, filepath.Join(programDataDir, appName, fileName))
		}
		return paths
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(userConfigDir, appName, fileName))
	}
	return append(paths, filepath.Join("/etc", appName, fileName))
}

// Find returns the first existing file from paths.
func Find(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNotFound, strings.Join(paths, ", "))
}

// Resolve loads explicit when set. Otherwise it loads the first file found in
// SearchPaths, or returns the defaults when there is none. The path used is
// returned, empty for defaults.
func Resolve(explicit string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}
	path, err := Find(SearchPaths())
	if err != nil {
		cfg := Default()
		return cfg, "", cfg.Validate()
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Load loads and validates the configuration from a YAML file. Keys missing
// from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.ProfilesFile = expandHome(cfg.ProfilesFile)
	cfg.SSH.KnownHosts = expandHome(cfg.SSH.KnownHosts)
	cfg.AuditFile = expandHome(cfg.AuditFile)
	cfg.LogFile = expandHome(cfg.LogFile)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges. Errors name the offending key.
func (c *Config) Validate() error {
	c.ProfileBackend = strings.ToLower(strings.TrimSpace(c.ProfileBackend))
	switch c.ProfileBackend {
	case "":
		c.ProfileBackend = BackendFile
	case BackendFile, BackendRedis:
	default:
		return fmt.Errorf("profile_backend %s is invalid, must be 'file' or 'redis'", c.ProfileBackend)
	}
	if c.ProfileBackend == BackendFile && c.ProfilesFile == "" {
		return fmt.Errorf("profiles_file is required for the file backend")
	}
	if c.ProfileBackend == BackendRedis && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for the redis backend")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("max_sessions must not be negative")
	}
	if c.MaxBuffer < 0 {
		return fmt.Errorf("max_buffer must not be negative")
	}
	for key, d := range map[string]Duration{
		"connect_timeout": c.ConnectTimeout,
		"command_timeout": c.CommandTimeout,
		"idle_timeout":    c.IdleTimeout,
		"ssh.keepalive":   c.SSH.KeepAlive,
		"snmp.timeout":    c.SNMP.Timeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	if c.SNMP.Port < 1 || c.SNMP.Port > 65535 {
		return fmt.Errorf("snmp.port %d out of range 1-65535", c.SNMP.Port)
	}
	if !c.SSH.InsecureIgnoreHostKey && c.SSH.KnownHosts == "" {
		return fmt.Errorf("ssh.known_hosts is required unless ssh.insecure_ignore_host_key is set")
	}
	return nil
}

func userDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appName)
	}
	return "." + appName
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
