// Package config loads application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envFile = ".env"

var (
	storageDrivers = []string{"memory", "json", "postgres", "sqlite"}
	sessionDrivers = []string{"memory", "redis"}
)

// Config holds application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Session   SessionConfig   `mapstructure:"session"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Client    ClientConfig    `mapstructure:"client"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Domain          string        `mapstructure:"domain"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	AutoRegister bool          `mapstructure:"auto_register"`
	// LoginRate is the sustained number of login attempts per second per client IP.
	LoginRate  float64 `mapstructure:"login_rate"`
	LoginBurst int     `mapstructure:"login_burst"`
}

type StorageConfig struct {
	Driver  string `mapstructure:"driver"`
	DataDir string `mapstructure:"data_dir"`
	DSN     string `mapstructure:"dsn"`
	SeedDir string `mapstructure:"seed_dir"`
}

type SessionConfig struct {
	Driver string `mapstructure:"driver"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SchedulerConfig struct {
	// SessionSweep is a cron spec for purging expired sessions.
	SessionSweep string `mapstructure:"session_sweep"`
}

type ClientConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// NewConfig loads configuration from the environment and an optional .env file.
func NewConfig() (*Config, error) {
	return Load(envFile)
}

// Load is NewConfig with an explicit .env path. Values already present in the
// environment win over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		if envMap, err := godotenv.Read(path); err == nil {
			for k, val := range envMap {
				if _, exists := os.LookupEnv(k); !exists {
					_ = os.Setenv(k, val)
				}
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.domain", "")
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.session_ttl", 7*24*time.Hour)
	v.SetDefault("auth.auto_register", true)
	v.SetDefault("auth.login_rate", 1.0)
	v.SetDefault("auth.login_burst", 5)

	v.SetDefault("storage.driver", "json")
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.seed_dir", "data/seed")

	v.SetDefault("session.driver", "memory")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("scheduler.session_sweep", "@every 15m")

	v.SetDefault("client.base_url", "http://localhost:3000")
}

func bindEnvs(v *viper.Viper) {
	keys := []string{
		"logging.level",
		"server.host",
		"server.port",
		"server.shutdown_timeout",
		"server.domain",
		"server.secure_cookies",
		"server.allowed_origins",
		"auth.jwt_secret",
		"auth.session_ttl",
		"auth.auto_register",
		"auth.login_rate",
		"auth.login_burst",
		"storage.driver",
		"storage.data_dir",
		"storage.dsn",
		"storage.seed_dir",
		"session.driver",
		"redis.addr",
		"redis.password",
		"redis.db",
		"scheduler.session_sweep",
		"client.base_url",
	}

	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

// splitList accepts both a real list and a single comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// Validate ensures required fields are present.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if !contains(storageDrivers, c.Storage.Driver) {
		return fmt.Errorf("storage.driver must be one of %s", strings.Join(storageDrivers, ", "))
	}
	if (c.Storage.Driver == "postgres" || c.Storage.Driver == "sqlite") && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for the %s driver", c.Storage.Driver)
	}
	if c.Storage.Driver == "json" && c.Storage.DataDir == "" {
		return errors.New("storage.data_dir is required for the json driver")
	}
	if !contains(sessionDrivers, c.Session.Driver) {
		return fmt.Errorf("session.driver must be one of %s", strings.Join(sessionDrivers, ", "))
	}
	if c.Session.Driver == "redis" && c.Redis.Addr == "" {
		return errors.New("redis.addr is required for the redis session driver")
	}
	if c.Auth.LoginRate <= 0 || c.Auth.LoginBurst <= 0 {
		return errors.New("auth.login_rate and auth.login_burst must be positive")
	}
	return nil
}

// ValidateServer adds the checks only the API server needs.
func (c Config) ValidateServer() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	return nil
}

// ServerAddr returns host:port for HTTP server binding.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
