// Package config loads harness settings from defaults, an optional YAML
// file, MCP_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/explore"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/fileutil"
)

const (
	configDir  = ".config/mcpfuzz"
	configFile = "config.yaml"

	// EnvPrefix prefixes every environment override, e.g. MCP_EXPLORE_ROUNDS.
	EnvPrefix = "MCP"
)

// Auth modes.
const (
	AuthNone    = "none"
	AuthBearer  = "bearer"
	AuthOAuth2  = "oauth2" // alias of bearer
	AuthKeyring = "keyring"
	AuthFile    = "file"
	AuthVault   = "vault"
)

// Config is the full harness configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Explore   ExploreConfig   `mapstructure:"explore" yaml:"explore"`
	Rate      RateConfig      `mapstructure:"rate" yaml:"rate"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

// ServerConfig locates the MCP service.
type ServerConfig struct {
	Host           string        `mapstructure:"host" yaml:"host"`
	Port           int           `mapstructure:"port" yaml:"port"`
	Scheme         string        `mapstructure:"scheme" yaml:"scheme"`
	InitializePath string        `mapstructure:"initialize_path" yaml:"initialize_path"`
	RequestPath    string        `mapstructure:"request_path" yaml:"request_path"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"-"`
}

// MarshalYAML writes Timeout as a duration string.
func (s ServerConfig) MarshalYAML() (any, error) {
	type plain ServerConfig
	return struct {
		Plain   plain  `yaml:",inline"`
		Timeout string `yaml:"timeout"`
	}{plain(s), s.Timeout.String()}, nil
}

// AuthConfig selects where the bearer token comes from.
type AuthConfig struct {
	Mode        string `mapstructure:"mode" yaml:"mode"`
	AccessToken string `mapstructure:"access_token" yaml:"access_token,omitempty"`

	// TokenFile overrides the file store location for mode "file".
	TokenFile    string `mapstructure:"token_file" yaml:"token_file,omitempty"`
	VaultAddress string `mapstructure:"vault_address" yaml:"vault_address,omitempty"`
	VaultPath    string `mapstructure:"vault_path" yaml:"vault_path,omitempty"`
}

// ExploreConfig parameterizes the fuzz run.
type ExploreConfig struct {
	Rounds  int `mapstructure:"rounds" yaml:"rounds"`
	Workers int `mapstructure:"workers" yaml:"workers"`

	// Seed of 0 means derive one from the clock.
	Seed uint64 `mapstructure:"seed" yaml:"seed"`

	PredefinedBias        float64 `mapstructure:"predefined_bias" yaml:"predefined_bias"`
	PredefinedProbability float64 `mapstructure:"predefined_probability" yaml:"predefined_probability"`
	MaxItemsMin           int     `mapstructure:"max_items_min" yaml:"max_items_min"`
	MaxItemsMax           int     `mapstructure:"max_items_max" yaml:"max_items_max"`
	DetailMin             int     `mapstructure:"detail_min" yaml:"detail_min"`
	DetailMax             int     `mapstructure:"detail_max" yaml:"detail_max"`

	NameMasks       []string `mapstructure:"name_masks" yaml:"name_masks"`
	PredefinedMasks []string `mapstructure:"predefined_masks" yaml:"predefined_masks"`
	MetaTypes       []string `mapstructure:"meta_types" yaml:"meta_types"`
	PredefinedTypes []string `mapstructure:"predefined_types" yaml:"predefined_types"`
	ErrorKeywords   []string `mapstructure:"error_keywords" yaml:"error_keywords,omitempty"`
}

// RateConfig paces tool calls. RPS of 0 disables pacing.
type RateConfig struct {
	RPS   float64 `mapstructure:"rps" yaml:"rps"`
	Burst int     `mapstructure:"burst" yaml:"burst"`
}

// OutputConfig names the run's artifacts.
type OutputConfig struct {
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	SummaryFile string `mapstructure:"summary_file" yaml:"summary_file,omitempty"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file,omitempty"`
	TUI         bool   `mapstructure:"tui" yaml:"tui"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file,omitempty"`
}

// TelemetryConfig enables OTLP trace export when Endpoint is set.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint,omitempty"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure" yaml:"otlp_insecure,omitempty"`
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"host":          "server.host",
	"port":          "server.port",
	"timeout":       "server.timeout",
	"auth-mode":     "auth.mode",
	"token":         "auth.access_token",
	"rounds":        "explore.rounds",
	"workers":       "explore.workers",
	"seed":          "explore.seed",
	"rps":           "rate.rps",
	"burst":         "rate.burst",
	"log-file":      "output.log_file",
	"summary-file":  "output.summary_file",
	"metrics-file":  "output.metrics_file",
	"tui":           "output.tui",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"otlp-endpoint": "telemetry.otlp_endpoint",
}

// envAliases are the short variable names the service's own tooling uses.
var envAliases = map[string]string{
	"server.host":       "MCP_HOST",
	"server.port":       "MCP_PORT",
	"auth.mode":         "MCP_AUTH_MODE",
	"auth.access_token": "MCP_ACCESS_TOKEN",
}

// Default returns the built-in configuration.
func Default() *Config {
	ex := explore.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8000,
			Scheme:         "http",
			InitializePath: "/mcp/initialize",
			RequestPath:    "/mcp/request",
			Timeout:        30 * time.Second,
		},
		Auth: AuthConfig{Mode: AuthNone},
		Explore: ExploreConfig{
			Rounds:                200,
			Workers:               1,
			PredefinedBias:        ex.PredefinedBias,
			PredefinedProbability: ex.PredefinedProbability,
			MaxItemsMin:           ex.MaxItemsMin,
			MaxItemsMax:           ex.MaxItemsMax,
			DetailMin:             ex.DetailMin,
			DetailMax:             ex.DetailMax,
			NameMasks:             ex.NameMasks,
			PredefinedMasks:       ex.PredefinedMasks,
			MetaTypes:             ex.MetaTypes,
			PredefinedTypes:       ex.PredefinedTypes,
		},
		Rate:   RateConfig{Burst: 1},
		Output: OutputConfig{LogFile: "testMCP.md"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// ConfigPath returns the default config file location.
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, configDir, configFile), nil
}

// Load resolves the configuration. An empty path means the default
// location, which may be absent; an explicit path must exist. flags may
// be nil; only flags named in FlagKeys are bound.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = ConfigPath(); err != nil {
			return nil, err
		}
	}
	path, err := fileutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if explicit || !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	defaults := map[string]any{
		"server.host":            d.Server.Host,
		"server.port":            d.Server.Port,
		"server.scheme":          d.Server.Scheme,
		"server.initialize_path": d.Server.InitializePath,
		"server.request_path":    d.Server.RequestPath,
		"server.timeout":         d.Server.Timeout,

		"auth.mode":          d.Auth.Mode,
		"auth.access_token":  "",
		"auth.token_file":    "",
		"auth.vault_address": "",
		"auth.vault_path":    "",

		"explore.rounds":                 d.Explore.Rounds,
		"explore.workers":                d.Explore.Workers,
		"explore.seed":                   0,
		"explore.predefined_bias":        d.Explore.PredefinedBias,
		"explore.predefined_probability": d.Explore.PredefinedProbability,
		"explore.max_items_min":          d.Explore.MaxItemsMin,
		"explore.max_items_max":          d.Explore.MaxItemsMax,
		"explore.detail_min":             d.Explore.DetailMin,
		"explore.detail_max":             d.Explore.DetailMax,
		"explore.name_masks":             d.Explore.NameMasks,
		"explore.predefined_masks":       d.Explore.PredefinedMasks,
		"explore.meta_types":             d.Explore.MetaTypes,
		"explore.predefined_types":       d.Explore.PredefinedTypes,
		"explore.error_keywords":         []string{},

		"rate.rps":   d.Rate.RPS,
		"rate.burst": d.Rate.Burst,

		"output.log_file":     d.Output.LogFile,
		"output.summary_file": "",
		"output.metrics_file": "",
		"output.tui":          false,

		"log.level":  d.Log.Level,
		"log.format": d.Log.Format,
		"log.file":   "",

		"telemetry.otlp_endpoint": "",
		"telemetry.otlp_insecure": false,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Validate rejects settings the harness cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Host == "" {
		errs = append(errs, errors.New("server.host is required"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.Timeout <= 0 {
		errs = append(errs, errors.New("server.timeout must be positive"))
	}
	switch c.Auth.Mode {
	case AuthNone, AuthBearer, AuthOAuth2, AuthKeyring, AuthFile:
	case AuthVault:
		if c.Auth.VaultPath == "" {
			errs = append(errs, errors.New("auth.vault_path is required for vault mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown auth mode %q", c.Auth.Mode))
	}

	e := c.Explore
	if e.Rounds < 0 {
		errs = append(errs, fmt.Errorf("explore.rounds must not be negative, got %d", e.Rounds))
	}
	if e.Workers < 1 {
		errs = append(errs, fmt.Errorf("explore.workers must be at least 1, got %d", e.Workers))
	}
	if e.PredefinedBias < 0 || e.PredefinedBias > 1 {
		errs = append(errs, fmt.Errorf("explore.predefined_bias %v outside [0,1]", e.PredefinedBias))
	}
	if e.PredefinedProbability < 0 || e.PredefinedProbability > 1 {
		errs = append(errs, fmt.Errorf("explore.predefined_probability %v outside [0,1]", e.PredefinedProbability))
	}
	if e.MaxItemsMin > e.MaxItemsMax {
		errs = append(errs, fmt.Errorf("explore.max_items_min %d exceeds max_items_max %d", e.MaxItemsMin, e.MaxItemsMax))
	}
	if e.DetailMin < 1 || e.DetailMin > e.DetailMax {
		errs = append(errs, fmt.Errorf("explore.detail_min %d must be in [1, detail_max %d]", e.DetailMin, e.DetailMax))
	}
	if len(e.MetaTypes) == 0 {
		errs = append(errs, errors.New("explore.meta_types must not be empty"))
	}
	if len(e.NameMasks) == 0 || len(e.PredefinedMasks) == 0 {
		errs = append(errs, errors.New("explore name masks must not be empty"))
	}
	if c.Rate.RPS < 0 {
		errs = append(errs, fmt.Errorf("rate.rps must not be negative, got %v", c.Rate.RPS))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// BaseURL returns scheme://host:port.
func (c *Config) BaseURL() string {
	return c.Server.Scheme + "://" + net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// DriverConfig converts the explore section for the driver.
func (c *Config) DriverConfig() explore.Config {
	e := c.Explore
	return explore.Config{
		MetaTypes:             e.MetaTypes,
		PredefinedTypes:       e.PredefinedTypes,
		NameMasks:             e.NameMasks,
		PredefinedMasks:       e.PredefinedMasks,
		PredefinedBias:        e.PredefinedBias,
		PredefinedProbability: e.PredefinedProbability,
		MaxItemsMin:           e.MaxItemsMin,
		MaxItemsMax:           e.MaxItemsMax,
		DetailMin:             e.DetailMin,
		DetailMax:             e.DetailMax,
	}
}

// Save writes the configuration to the default path atomically.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the configuration as YAML to path atomically. The access
// token is never written; use a token store instead.
func SaveTo(cfg *Config, path string) error {
	out := *cfg
	out.Auth.AccessToken = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := fileutil.WriteAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
