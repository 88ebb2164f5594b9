package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Redis result cache, disabled when empty
	RedisURL string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	// Solver limits
	SolverMaxNodes  int           `mapstructure:"SOLVER_MAX_NODES"`
	SolverTimeLimit time.Duration `mapstructure:"SOLVER_TIME_LIMIT"`

	// Optimization
	DefaultBudget   float64 `mapstructure:"DEFAULT_BUDGET"`
	ModelExportPath string  `mapstructure:"MODEL_EXPORT_PATH"`
	MaxBatchSize    int     `mapstructure:"MAX_BATCH_SIZE"`

	// Player pool served when a request carries no players
	CatalogPath    string `mapstructure:"CATALOG_PATH"`
	CatalogGWStart int    `mapstructure:"CATALOG_GW_START"`
	CatalogGWEnd   int    `mapstructure:"CATALOG_GW_END"`
}

func LoadConfig() (*Config, error) {
	return load(viper.New(), ".", "..")
}

func load(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetConfigName(".env")
	v.SetConfigType("env")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetDefault("PORT", "8082")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CACHE_TTL", "24h")
	// Zero disables the limit
	v.SetDefault("SOLVER_MAX_NODES", 0)
	v.SetDefault("SOLVER_TIME_LIMIT", "60s")
	v.SetDefault("DEFAULT_BUDGET", 100.0)
	// Empty disables LP export
	v.SetDefault("MODEL_EXPORT_PATH", "")
	v.SetDefault("MAX_BATCH_SIZE", 16)
	v.SetDefault("CATALOG_PATH", "")
	v.SetDefault("CATALOG_GW_START", 1)
	v.SetDefault("CATALOG_GW_END", 1)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if config.DefaultBudget < 0 {
		return nil, fmt.Errorf("DEFAULT_BUDGET must be non-negative, got %v", config.DefaultBudget)
	}
	if config.SolverMaxNodes < 0 {
		return nil, fmt.Errorf("SOLVER_MAX_NODES must be non-negative, got %d", config.SolverMaxNodes)
	}
	if config.SolverTimeLimit < 0 {
		return nil, fmt.Errorf("SOLVER_TIME_LIMIT must be non-negative, got %s", config.SolverTimeLimit)
	}

	if config.CatalogGWEnd < config.CatalogGWStart {
		return nil, fmt.Errorf("CATALOG_GW_END (%d) is before CATALOG_GW_START (%d)", config.CatalogGWEnd, config.CatalogGWStart)
	}

	return &config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
