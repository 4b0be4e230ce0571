package global

import (
	"fmt"
	"os"

	"github.com/go-redis/redis_rate/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Conf global config
var Conf Config

// Global rate limiter
var RateLimiter *redis_rate.Limiter

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Crypto     CryptoConfig     `yaml:"crypto"`
	Cache      CacheConfig      `yaml:"cache"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
	Audit      AuditConfig      `yaml:"audit"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type PrometheusConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type CryptoConfig struct {
	// AES key size in bits: 128, 192 or 256
	SymmetricKeySize int `yaml:"symmetricKeySize"`
}

type CacheConfig struct {
	// maximum number of parsed public keys kept in memory
	PublicKeysCapacity int `yaml:"publicKeysCapacity"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerSecond int  `yaml:"requestsPerSecond"`
}

type AuditConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// cron spec for the access summary job, e.g. "@every 24h"
	SummarySchedule string `yaml:"summarySchedule"`
}

// LoadConfig reads the YAML configuration file and applies CREDSTORE_*
// environment variable overrides on top of it.
func LoadConfig(path string, conf *Config) error {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(fileBytes, conf); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := envconfig.Process("credstore", conf); err != nil {
		return fmt.Errorf("failed to process environment overrides: %w", err)
	}
	if conf.Crypto.SymmetricKeySize == 0 {
		conf.Crypto.SymmetricKeySize = 128
	}
	if conf.Cache.PublicKeysCapacity == 0 {
		conf.Cache.PublicKeysCapacity = 1024
	}
	return nil
}
