// Package config loads the settings of the leodocs command and server using
// Viper: a YAML file (.leodocs.yaml by default), LEODOCS_* environment
// variables and command-line flags, in increasing order of precedence.
//
// Environment variables follow the LEODOCS_<SECTION>_<OPTION> pattern, for
// example LEODOCS_SERVER_PORT or LEODOCS_ENGINE_CACHE_TTL.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/leoforge/go-leodocs/pkg/leodocs"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LEODOCS"

// DefaultFileName is the config file searched for in the working directory.
const DefaultFileName = ".leodocs.yaml"

type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Templates TemplatesConfig `mapstructure:"templates" yaml:"templates"`
	Engine    EngineConfig    `mapstructure:"engine" yaml:"engine"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// RateLimit is the sustained number of render requests per second; 0 disables limiting.
	RateLimit    float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst        int     `mapstructure:"burst" yaml:"burst"`
	MaxBodyBytes int64   `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

type TemplatesConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
	// Watch evicts cached templates when their files change.
	Watch bool `mapstructure:"watch" yaml:"watch"`
	// Routes maps a meeting modality to a template file under Dir.
	Routes   map[string]string `mapstructure:"routes" yaml:"routes"`
	Fallback string            `mapstructure:"fallback" yaml:"fallback"`
}

type EngineConfig struct {
	CacheMaxSize   int           `mapstructure:"cache_max_size" yaml:"cache_max_size"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level"`
	StartDelimiter string        `mapstructure:"start_delimiter" yaml:"start_delimiter"`
	EndDelimiter   string        `mapstructure:"end_delimiter" yaml:"end_delimiter"`
	DateLayout     string        `mapstructure:"date_layout" yaml:"date_layout"`
	ParagraphLoops bool          `mapstructure:"paragraph_loops" yaml:"paragraph_loops"`
	MaxImageBytes  int64         `mapstructure:"max_image_bytes" yaml:"max_image_bytes"`
}

// SetDefaults registers the default of every key, which also makes every key
// reachable through its environment variable.
func SetDefaults(v *viper.Viper) {
	engine := leodocs.DefaultConfig()

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.burst", 20)
	v.SetDefault("server.max_body_bytes", int64(32<<20))

	v.SetDefault("templates.dir", "templates")
	v.SetDefault("templates.watch", false)
	v.SetDefault("templates.routes", map[string]string{})
	v.SetDefault("templates.fallback", "")

	v.SetDefault("engine.cache_max_size", engine.CacheMaxSize)
	v.SetDefault("engine.cache_ttl", engine.CacheTTL)
	v.SetDefault("engine.log_level", engine.LogLevel)
	v.SetDefault("engine.start_delimiter", engine.StartDelimiter)
	v.SetDefault("engine.end_delimiter", engine.EndDelimiter)
	v.SetDefault("engine.date_layout", engine.DateLayout)
	v.SetDefault("engine.paragraph_loops", engine.ParagraphLoops)
	v.SetDefault("engine.max_image_bytes", engine.MaxImageBytes)
}

// NewViper returns a Viper instance with defaults, environment binding and,
// when present, the config file applied.
//
// The file is chosen in this order:
//  1. cfgFile, when not empty
//  2. the LEODOCS_CONFIG_FILE environment variable
//  3. .leodocs.yaml in the working directory, if it exists
//
// An explicitly named file that cannot be read is an error.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	explicit := true
	switch {
	case cfgFile != "":
		v.SetConfigFile(cfgFile)
	case os.Getenv(EnvPrefix+"_CONFIG_FILE") != "":
		v.SetConfigFile(os.Getenv(EnvPrefix + "_CONFIG_FILE"))
	default:
		explicit = false
		v.AddConfigPath(".")
		v.SetConfigName(strings.TrimSuffix(DefaultFileName, ".yaml"))
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if cfg.Templates.Routes == nil {
		cfg.Templates.Routes = map[string]string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the server and template sections and the engine settings.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return errors.New("server rate limit cannot be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.Burst < 1 {
		return errors.New("server burst must be at least 1 when rate limiting")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server max body bytes must be positive")
	}
	if strings.TrimSpace(c.Templates.Dir) == "" {
		return errors.New("templates dir cannot be empty")
	}
	for modality, id := range c.Templates.Routes {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("route %q has no template", modality)
		}
	}
	if err := c.Leodocs().Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// Leodocs converts the engine section into engine options.
func (c *Config) Leodocs() *leodocs.Config {
	return &leodocs.Config{
		CacheMaxSize:   c.Engine.CacheMaxSize,
		CacheTTL:       c.Engine.CacheTTL,
		LogLevel:       c.Engine.LogLevel,
		StartDelimiter: c.Engine.StartDelimiter,
		EndDelimiter:   c.Engine.EndDelimiter,
		DateLayout:     c.Engine.DateLayout,
		ParagraphLoops: c.Engine.ParagraphLoops,
		MaxImageBytes:  c.Engine.MaxImageBytes,
	}
}

// Router returns the modality router, or nil when no routes or fallback are configured.
func (c *Config) Router() *leodocs.Router {
	if len(c.Templates.Routes) == 0 && c.Templates.Fallback == "" {
		return nil
	}
	return leodocs.NewRouter(c.Templates.Routes, c.Templates.Fallback)
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
