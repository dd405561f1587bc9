package main

import (
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	AccessToken string        `yaml:"access_token" env:"GYAZO_ACCESS_TOKEN"`
	PageSize    int           `yaml:"page_size" env:"GYAZO_PAGE_SIZE" env-default:"20"`
	CacheTTL    time.Duration `yaml:"cache_ttl" env:"GYAZO_CACHE_TTL" env-default:"15m"`
	LogLevel    string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

// LoadConfig reads the optional YAML file, then the environment. A missing
// file is fine (env-only runs are the common case); a missing token is not
// an error here, it surfaces as the configure notice on the first fetch.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			err := cleanenv.ReadConfig(path, &cfg)
			return cfg, err
		}
	}
	err := cleanenv.ReadEnv(&cfg)
	return cfg, err
}

func (c *Config) HasToken() bool {
	return strings.TrimSpace(c.AccessToken) != ""
}
