// Package config loads SKMF configuration from multiple sources.
//
// Configuration is loaded in the following order (later sources override earlier ones):
//  1. Default values (set via SetConfigDefaults)
//  2. Configuration files (./config.yaml, ./configs/config.yaml, ~/.skmf/config.yaml, /etc/skmf/config.yaml)
//  3. .env files
//  4. Environment variables (prefix SKMF_)
//
// # Usage Example
//
//	cfg, err := config.LoadConfig("SKMF", "config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.QueryURL(), cfg.UpdateURL())
//
// # Environment Variables
//
// Use the prefix and underscores for nested keys:
//   - SKMF_SPARQL_HOST=fuseki
//   - SKMF_SPARQL_PORT=3030
//   - SKMF_SECURITY_JWT_SECRET=changeme
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix for every key.
const EnvPrefix = "SKMF"

// DefaultNamespace is the base IRI local names are minted under.
const DefaultNamespace = "http://localhost/skmf"

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Debug enables debug logging and request dumps
	Debug bool `mapstructure:"debug"`
}

// Address returns host:port for the listener.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SPARQLConfig locates the query and update endpoints of the triple store.
type SPARQLConfig struct {
	Scheme     string        `mapstructure:"scheme"`
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	QueryPath  string        `mapstructure:"query_path"`
	UpdatePath string        `mapstructure:"update_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error)
	Level string `mapstructure:"level"`

	// Format is the log format (json, text)
	Format string `mapstructure:"format"`
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	// RateLimit is the maximum requests per second per client
	RateLimit int `mapstructure:"rate_limit"`

	// AllowedOrigins are the CORS allowed origins
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// JWTSecret is the secret key for signing JWT tokens
	JWTSecret string `mapstructure:"jwt_secret"`

	// JWTExpiration is the JWT token expiration duration (default: 24h)
	JWTExpiration time.Duration `mapstructure:"jwt_expiration"`

	MinPasswordLength int `mapstructure:"min_password_length"`
}

// RedisConfig locates the token revocation store. An empty address keeps
// revocations in memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuditConfig holds the audit log location. An empty path disables it.
type AuditConfig struct {
	Path string `mapstructure:"path"`
}

// ServiceConfig contains service-specific metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// Config is the complete SKMF configuration.
type Config struct {
	Service   ServiceConfig  `mapstructure:"service"`
	Server    ServerConfig   `mapstructure:"server"`
	Namespace string         `mapstructure:"namespace"`
	SPARQL    SPARQLConfig   `mapstructure:"sparql"`
	Logging   LoggingConfig  `mapstructure:"logging"`
	Security  SecurityConfig `mapstructure:"security"`
	Redis     RedisConfig    `mapstructure:"redis"`
	Audit     AuditConfig    `mapstructure:"audit"`
}

// QueryURL returns the full SPARQL query endpoint URL.
func (c *Config) QueryURL() string {
	return c.SPARQL.endpoint(c.SPARQL.QueryPath)
}

// UpdateURL returns the full SPARQL update endpoint URL.
func (c *Config) UpdateURL() string {
	return c.SPARQL.endpoint(c.SPARQL.UpdatePath)
}

func (s SPARQLConfig) endpoint(path string) string {
	scheme := s.Scheme
	if scheme == "" {
		scheme = "http"
	}
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		Path:   path,
	}
	return u.String()
}

// Loader provides configuration loading functionality.
type Loader struct {
	v      *viper.Viper
	prefix string
}

// NewLoader creates a new configuration loader with the given environment prefix.
func NewLoader(envPrefix string) *Loader {
	return &Loader{
		v:      viper.New(),
		prefix: envPrefix,
	}
}

// Viper exposes the underlying instance so that command line flags can be bound to keys.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// SetDefaults sets default configuration values.
// This should be called before Load().
func (l *Loader) SetDefaults(defaults map[string]interface{}) {
	for key, value := range defaults {
		l.v.SetDefault(key, value)
	}
}

// SetConfigDefaults sets the standard SKMF defaults.
func (l *Loader) SetConfigDefaults() {
	l.v.SetDefault("service.name", "skmf")
	l.v.SetDefault("service.environment", "development")

	l.v.SetDefault("server.host", "0.0.0.0")
	l.v.SetDefault("server.port", 8080)
	l.v.SetDefault("server.read_timeout", "30s")
	l.v.SetDefault("server.write_timeout", "30s")
	l.v.SetDefault("server.shutdown_timeout", "10s")
	l.v.SetDefault("server.debug", false)

	l.v.SetDefault("namespace", DefaultNamespace)

	l.v.SetDefault("sparql.scheme", "http")
	l.v.SetDefault("sparql.host", "localhost")
	l.v.SetDefault("sparql.port", 9000)
	l.v.SetDefault("sparql.query_path", "/sparql/")
	l.v.SetDefault("sparql.update_path", "/update/")
	l.v.SetDefault("sparql.timeout", "30s")
	l.v.SetDefault("sparql.username", "")
	l.v.SetDefault("sparql.password", "")

	l.v.SetDefault("logging.level", "info")
	l.v.SetDefault("logging.format", "text")

	l.v.SetDefault("security.rate_limit", 100)
	l.v.SetDefault("security.allowed_origins", []string{"*"})
	l.v.SetDefault("security.jwt_secret", "")
	l.v.SetDefault("security.jwt_expiration", "24h")
	l.v.SetDefault("security.min_password_length", 8)

	l.v.SetDefault("redis.addr", "")
	l.v.SetDefault("redis.password", "")
	l.v.SetDefault("redis.db", 0)

	l.v.SetDefault("audit.path", "")
}

// Load reads configuration from file, .env, and environment variables.
// If cfgFile is empty, searches for config.yaml in standard locations.
func (l *Loader) Load(cfgFile string, target interface{}) error {
	if cfgFile != "" {
		l.v.SetConfigFile(cfgFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("./configs")
		l.v.AddConfigPath("$HOME/.skmf")
		l.v.AddConfigPath("/etc/skmf")
	}

	if err := l.v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Merge .env file if present
	if _, err := os.Stat(".env"); err == nil {
		l.v.SetConfigFile(".env")
		l.v.SetConfigType("env")
		if err := l.v.MergeInConfig(); err != nil {
			return fmt.Errorf("error reading .env: %w", err)
		}
	}

	if l.prefix != "" {
		l.v.SetEnvPrefix(l.prefix)
	}
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.v.Unmarshal(target); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}
	return nil
}

// LoadConfig loads configuration with standard defaults and validates it.
func LoadConfig(envPrefix, cfgFile string) (*Config, error) {
	loader := NewLoader(envPrefix)
	loader.SetConfigDefaults()
	return loader.LoadConfig(cfgFile)
}

// LoadConfig loads into a new Config and validates it.
func (l *Loader) LoadConfig(cfgFile string) (*Config, error) {
	cfg := &Config{}
	if err := l.Load(cfgFile, cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ValidateConfig validates the loaded configuration.
func ValidateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.SPARQL.Port < 1 || cfg.SPARQL.Port > 65535 {
		return fmt.Errorf("invalid sparql port: %d", cfg.SPARQL.Port)
	}
	if cfg.SPARQL.Host == "" {
		return errors.New("sparql host is required")
	}

	ns, err := url.Parse(cfg.Namespace)
	if err != nil || ns.Scheme == "" || ns.Host == "" {
		return fmt.Errorf("invalid namespace: %q", cfg.Namespace)
	}
	if strings.ContainsAny(cfg.Namespace, "#<> ") {
		return fmt.Errorf("namespace must not contain '#', '<', '>' or spaces: %q", cfg.Namespace)
	}

	for name, raw := range map[string]string{"query": cfg.QueryURL(), "update": cfg.UpdateURL()} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("invalid sparql %s url: %q", name, raw)
		}
	}
	return nil
}

// ValidateServe adds the checks that only apply when running the HTTP server.
func ValidateServe(cfg *Config) error {
	if cfg.Security.JWTSecret == "" {
		return errors.New("security.jwt_secret is required to serve the API")
	}
	if cfg.Security.JWTExpiration <= 0 {
		return fmt.Errorf("invalid jwt expiration: %s", cfg.Security.JWTExpiration)
	}
	return nil
}
