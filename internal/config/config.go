package config

import (
	"fmt"
	"os"
	"strconv"

	yaml "gopkg.in/yaml.v3"
)

// Config is the process configuration, loaded from an optional YAML file and
// overridden by environment variables.
type Config struct {
	Provider struct {
		Kind       string `yaml:"kind"`
		BaseURL    string `yaml:"baseUrl"`
		APIKey     string `yaml:"apiKey"`
		Mode       string `yaml:"mode"`
		TimeoutSec int    `yaml:"timeoutSec"`
	} `yaml:"provider"`
	RateLimit struct {
		MatrixPerSec   float64 `yaml:"matrixPerSec"`
		MatrixBurst    int     `yaml:"matrixBurst"`
		MatrixDailyMax int     `yaml:"matrixDailyMax"`
		MaxWaitMs      int     `yaml:"maxWaitMs"`
	} `yaml:"rateLimit"`
	Breaker struct {
		FailureThreshold int `yaml:"failureThreshold"`
		CooldownSec      int `yaml:"cooldownSec"`
		MaxCooldownSec   int `yaml:"maxCooldownSec"`
	} `yaml:"breaker"`
	Budget struct {
		CostPerCall float64 `yaml:"costPerCall"`
		DailyLimit  float64 `yaml:"dailyLimit"`
	} `yaml:"budget"`
	Cache struct {
		TTLMin   int    `yaml:"ttlMin"`
		RedisURL string `yaml:"redisUrl"`
	} `yaml:"cache"`
	Optimizer struct {
		MaxIterations int     `yaml:"maxIterations"`
		TimeBudgetMs  int     `yaml:"timeBudgetMs"`
		AvgSpeedKph   float64 `yaml:"avgSpeedKph"`
	} `yaml:"optimizer"`
	DatabaseURL string `yaml:"databaseUrl"`
}

// Defaults returns a config with conservative production defaults.
func Defaults() Config {
	var c Config
	c.Provider.Kind = "none"
	c.Provider.Mode = "driving"
	c.Provider.TimeoutSec = 10
	c.RateLimit.MatrixPerSec = 10
	c.RateLimit.MatrixBurst = 10
	c.RateLimit.MaxWaitMs = 500
	c.Breaker.FailureThreshold = 5
	c.Breaker.CooldownSec = 60
	c.Breaker.MaxCooldownSec = 600
	c.Budget.CostPerCall = 0.005
	c.Cache.TTLMin = 30
	c.Optimizer.MaxIterations = 50
	c.Optimizer.TimeBudgetMs = 5000
	c.Optimizer.AvgSpeedKph = 40
	return c
}

// Load reads the YAML file at path when it exists, then applies env
// overrides. A missing file is not an error; env-only deployments are the
// common case.
func Load(path string) (Config, error) {
	c := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &c); err != nil {
				return c, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return c, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PROVIDER_KIND"); v != "" {
		c.Provider.Kind = v
	}
	if v := os.Getenv("PROVIDER_BASE_URL"); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv("MAPS_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("MATRIX_DAILY_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.RateLimit.MatrixDailyMax = n
		}
	}
	if v := os.Getenv("BUDGET_DAILY_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.Budget.DailyLimit = f
		}
	}
}
