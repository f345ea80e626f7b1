package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
	Status StatusConfig `yaml:"status" mapstructure:"status"`
	Serve  ServeConfig  `yaml:"serve" mapstructure:"serve"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// EngineConfig points the client at the scraping engine API.
type EngineConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// StatusConfig tunes the status channel.
type StatusConfig struct {
	PollIntervalSecs int  `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	TimeoutSecs      int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	HistoryLimit     int  `yaml:"history_limit" mapstructure:"history_limit"`
	ZeroOnError      bool `yaml:"zero_progress_on_error" mapstructure:"zero_progress_on_error"`
}

// PollInterval returns the poll interval as a duration.
func (c StatusConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// Timeout returns the polling ceiling as a duration.
func (c StatusConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ServeConfig configures the local stub engine server.
type ServeConfig struct {
	Port      int    `yaml:"port" mapstructure:"port"`
	UploadDir string `yaml:"upload_dir" mapstructure:"upload_dir"`
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
	v.SetEnvPrefix("SCRAPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("engine.base_url", "http://localhost:10000")
	v.SetDefault("status.poll_interval_secs", 2)
	v.SetDefault("status.timeout_secs", 300)
	v.SetDefault("status.history_limit", 5)
	v.SetDefault("status.zero_progress_on_error", true)
	v.SetDefault("serve.port", 10000)
	v.SetDefault("serve.upload_dir", "uploads")
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

// Validate checks bounds the rest of the client assumes.
func (c *Config) Validate() error {
	var problems []string
	if c.Engine.BaseURL == "" {
		problems = append(problems, "engine.base_url is required")
	}
	if c.Status.PollIntervalSecs < 1 {
		problems = append(problems, "status.poll_interval_secs must be >= 1")
	}
	if c.Status.TimeoutSecs <= c.Status.PollIntervalSecs {
		problems = append(problems, "status.timeout_secs must exceed status.poll_interval_secs")
	}
	if c.Status.HistoryLimit < 1 || c.Status.HistoryLimit > 50 {
		problems = append(problems, "status.history_limit must be between 1 and 50")
	}
	if c.Serve.Port <= 0 {
		problems = append(problems, "serve.port must be > 0")
	}
	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
