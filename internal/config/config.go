package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Reference  ReferenceConfig  `yaml:"reference" mapstructure:"reference"`
	Road       RoadConfig       `yaml:"road" mapstructure:"road"`
	Impact     ImpactConfig     `yaml:"impact" mapstructure:"impact"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit" mapstructure:"ratelimit"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	ReadTimeoutSecs  int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
	CORSOrigins      []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// StoreConfig configures the project store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ReferenceConfig configures the reference-data store holding postcodes,
// bus stops and road segments.
type ReferenceConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// RoadConfig selects the road-network provider.
type RoadConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	OverpassURL string `yaml:"overpass_url" mapstructure:"overpass_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxParallel int    `yaml:"max_parallel" mapstructure:"max_parallel"`
}

// ImpactConfig holds the calculation parameters.
type ImpactConfig struct {
	RadiusMeters  float64 `yaml:"radius_meters" mapstructure:"radius_meters"`
	WellbeingRate float64 `yaml:"wellbeing_rate" mapstructure:"wellbeing_rate"`
	Currency      string  `yaml:"currency" mapstructure:"currency"`
	Version       string  `yaml:"version" mapstructure:"version"`
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	Requests   int `yaml:"requests" mapstructure:"requests"`
	WindowSecs int `yaml:"window_secs" mapstructure:"window_secs"`
}

// ResilienceConfig configures retries and circuit breakers around
// reference sources.
type ResilienceConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
	RetryAttempts    int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs   int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("IMPACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 30)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("reference.driver", "postgres")
	v.SetDefault("reference.database_url", "")
	v.SetDefault("reference.schema", "ref")
	v.SetDefault("reference.max_conns", 10)
	v.SetDefault("road.provider", "reference")
	v.SetDefault("road.overpass_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("road.timeout_secs", 25)
	v.SetDefault("road.max_parallel", 2)
	v.SetDefault("impact.radius_meters", 500.0)
	v.SetDefault("impact.wellbeing_rate", 1.61)
	v.SetDefault("impact.currency", "GBP")
	v.SetDefault("impact.version", "1.0.0")
	v.SetDefault("ratelimit.requests", 60)
	v.SetDefault("ratelimit.window_secs", 30)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("resilience.retry_attempts", 3)
	v.SetDefault("resilience.retry_backoff_ms", 200)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings needed by mode: "serve", "calculate",
// "project" or "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	needStore := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required")
			}
		case "sqlite":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required (sqlite file path)")
			}
		default:
			errs = append(errs, "store.driver must be postgres or sqlite")
		}
	}
	needReference := func() {
		switch c.Reference.Driver {
		case "postgres", "sqlite":
			if c.Reference.DatabaseURL == "" {
				errs = append(errs, "reference.database_url is required")
			}
		default:
			errs = append(errs, "reference.driver must be postgres or sqlite")
		}
		switch c.Road.Provider {
		case "reference":
		case "overpass":
			if c.Road.OverpassURL == "" {
				errs = append(errs, "road.overpass_url is required")
			}
		default:
			errs = append(errs, "road.provider must be reference or overpass")
		}
		if c.Impact.RadiusMeters <= 0 {
			errs = append(errs, "impact.radius_meters must be > 0")
		}
		if c.Impact.WellbeingRate < 0 {
			errs = append(errs, "impact.wellbeing_rate must be >= 0")
		}
		if c.Resilience.FailureThreshold < 1 {
			errs = append(errs, "resilience.failure_threshold must be >= 1")
		}
		if c.Resilience.RetryAttempts < 1 {
			errs = append(errs, "resilience.retry_attempts must be >= 1")
		}
	}

	switch mode {
	case "serve":
		needStore()
		needReference()
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.RateLimit.Requests < 0 || c.RateLimit.WindowSecs < 0 {
			errs = append(errs, "ratelimit values must be >= 0")
		}
	case "calculate":
		needStore()
		needReference()
	case "project", "migrate":
		needStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
