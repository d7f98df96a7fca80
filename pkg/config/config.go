// Package config loads reader settings from an optional config file, a .env
// file and TWITTER_READER_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/Sternrassler/twitter-reader/pkg/auth"
	"github.com/Sternrassler/twitter-reader/pkg/client"
	"github.com/Sternrassler/twitter-reader/pkg/logging"
	"github.com/Sternrassler/twitter-reader/pkg/ratelimit"
	"github.com/Sternrassler/twitter-reader/pkg/transport"
)

// EnvPrefix prefixes every environment variable, e.g.
// TWITTER_READER_CONSUMER_KEY.
const EnvPrefix = "TWITTER_READER"

// DefaultEnvFile is loaded when present and no other env file is given.
const DefaultEnvFile = ".env"

// Config keys. The credential keys match the credentials JSON file of the
// collectors.
const (
	KeyAppName           = "app_name"
	KeyConsumerKey       = "consumer_key"
	KeyConsumerSecret    = "consumer_secret"
	KeyAccessToken       = "access_token"
	KeyAccessSecret      = "access_token_secret"
	KeyBaseURL           = "base_url"
	KeyLogLevel          = "log_level"
	KeyLogPretty         = "log_pretty"
	KeyRedisAddr         = "redis_addr"
	KeyRedisPassword     = "redis_password"
	KeyRedisDB           = "redis_db"
	KeyCacheTTL          = "cache_ttl"
	KeyQuotaPollInterval = "quota_poll_interval"
	KeyRequestTimeout    = "request_timeout"
	KeyTransportRetries  = "transport_retries"
	KeyDebug             = "debug"
)

// Config is the flattened reader configuration.
type Config struct {
	Credentials auth.Credentials

	BaseURL           string
	RequestTimeout    time.Duration
	TransportRetries  int
	QuotaPollInterval time.Duration
	Debug             bool

	LogLevel  string
	LogPretty bool

	// RedisAddr enables the profile cache when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
}

func defaults(v *viper.Viper) {
	v.SetDefault(KeyAppName, "")
	v.SetDefault(KeyConsumerKey, "")
	v.SetDefault(KeyConsumerSecret, "")
	v.SetDefault(KeyAccessToken, "")
	v.SetDefault(KeyAccessSecret, "")
	v.SetDefault(KeyBaseURL, transport.DefaultBaseURL)
	v.SetDefault(KeyLogLevel, string(logging.LevelInfo))
	v.SetDefault(KeyLogPretty, false)
	v.SetDefault(KeyRedisAddr, "")
	v.SetDefault(KeyRedisPassword, "")
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeyCacheTTL, 24*time.Hour)
	v.SetDefault(KeyQuotaPollInterval, ratelimit.DefaultPollInterval)
	v.SetDefault(KeyRequestTimeout, 30*time.Second)
	v.SetDefault(KeyTransportRetries, 2)
	v.SetDefault(KeyDebug, false)
}

// Load reads configFile (JSON or YAML, optional when empty) and the given
// env files. Without env files, DefaultEnvFile is loaded if it exists.
// Variables already set in the environment are never overridden by env
// files.
func Load(configFile string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", DefaultEnvFile, err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	v := viper.New()
	defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Credentials: auth.Credentials{
			AppName:        v.GetString(KeyAppName),
			ConsumerKey:    v.GetString(KeyConsumerKey),
			ConsumerSecret: v.GetString(KeyConsumerSecret),
			AccessToken:    v.GetString(KeyAccessToken),
			AccessSecret:   v.GetString(KeyAccessSecret),
		},
		BaseURL:           v.GetString(KeyBaseURL),
		RequestTimeout:    v.GetDuration(KeyRequestTimeout),
		TransportRetries:  v.GetInt(KeyTransportRetries),
		QuotaPollInterval: v.GetDuration(KeyQuotaPollInterval),
		Debug:             v.GetBool(KeyDebug),
		LogLevel:          v.GetString(KeyLogLevel),
		LogPretty:         v.GetBool(KeyLogPretty),
		RedisAddr:         v.GetString(KeyRedisAddr),
		RedisPassword:     v.GetString(KeyRedisPassword),
		RedisDB:           v.GetInt(KeyRedisDB),
		CacheTTL:          v.GetDuration(KeyCacheTTL),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks credentials and numeric settings.
func (c *Config) Validate() error {
	if err := c.Credentials.Validate(); err != nil {
		return fmt.Errorf("invalid credentials: %w", err)
	}
	if c.TransportRetries < 0 {
		return fmt.Errorf("%s must not be negative (got %d)", KeyTransportRetries, c.TransportRetries)
	}
	if c.QuotaPollInterval <= 0 {
		return fmt.Errorf("%s must be positive (got %s)", KeyQuotaPollInterval, c.QuotaPollInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s must be positive (got %s)", KeyRequestTimeout, c.RequestTimeout)
	}
	if c.RedisAddr != "" && c.CacheTTL <= 0 {
		return fmt.Errorf("%s must be positive when %s is set (got %s)", KeyCacheTTL, KeyRedisAddr, c.CacheTTL)
	}
	return nil
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(strings.ToLower(c.LogLevel))
	cfg.Pretty = c.LogPretty
	return cfg
}

// RedisOptions returns the profile cache connection, or nil when no cache
// is configured.
func (c *Config) RedisOptions() *redis.Options {
	if c.RedisAddr == "" {
		return nil
	}
	return &redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// Client returns the client configuration. The cache is left unset; callers
// attach a cache.Manager built from RedisOptions.
func (c *Config) Client() client.Config {
	cfg := client.DefaultConfig(c.Credentials)
	cfg.BaseURL = c.BaseURL
	cfg.Timeout = c.RequestTimeout
	cfg.TransportRetries = c.TransportRetries
	cfg.QuotaPollInterval = c.QuotaPollInterval
	cfg.Debug = c.Debug
	cfg.CacheTTL = c.CacheTTL
	return cfg
}
