package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Weather   WeatherConfig    `mapstructure:"weather"`
	Satellite SatelliteConfig  `mapstructure:"satellite"`
	Pipeline  PipelineConfig   `mapstructure:"pipeline"`
	Schedule  ScheduleConfig   `mapstructure:"schedule"`
	Telegram  TelegramConfig   `mapstructure:"telegram"`
	SMS       SMSConfig        `mapstructure:"sms"`
	Storage   StorageConfig    `mapstructure:"storage"`
	Redis     RedisConfig      `mapstructure:"redis"`
	Kafka     KafkaConfig      `mapstructure:"kafka"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Locations []LocationConfig `mapstructure:"locations"`
}

// WeatherConfig holds the weather provider configuration
type WeatherConfig struct {
	APIBaseURL     string        `mapstructure:"api_base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// SatelliteConfig holds the NDVI statistics service configuration
type SatelliteConfig struct {
	APIBaseURL      string        `mapstructure:"api_base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Collection      string        `mapstructure:"collection"`
	MaxCloudPercent float64       `mapstructure:"max_cloud_percent"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryDelayBase  time.Duration `mapstructure:"retry_delay_base"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// PipelineConfig holds evaluation window and pass behaviour configuration
type PipelineConfig struct {
	LookbackDays     int    `mapstructure:"lookback_days"`
	CurrentDays      int    `mapstructure:"current_days"`
	BaselineNearDays int    `mapstructure:"baseline_near_days"`
	BaselineFarDays  int    `mapstructure:"baseline_far_days"`
	SkipPolicy       string `mapstructure:"skip_policy"` // "advance" or "hold"
	RecordSignals    bool   `mapstructure:"record_signals"`
}

// ScheduleConfig controls when passes run. An empty Cron runs a single pass.
type ScheduleConfig struct {
	Cron       string `mapstructure:"cron"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// SMSConfig holds the SMS sender configuration
type SMSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sender  string `mapstructure:"sender"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// RedisConfig holds the weather cache configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig holds the assessment publisher configuration
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// MetricsConfig holds the Prometheus listener configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LocationConfig is a kebele registered at startup
type LocationConfig struct {
	Name      string  `mapstructure:"name"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory, if present, is loaded first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	// RISKWATCH_WEATHER_API_KEY overrides weather.api_key
	v.SetEnvPrefix("RISKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Keys without a useful default are still registered so that
	// AutomaticEnv can override them during Unmarshal.
	v.SetDefault("weather.api_key", "")
	v.SetDefault("satellite.api_base_url", "")
	v.SetDefault("satellite.api_key", "")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("redis.password", "")

	v.SetDefault("weather.api_base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.timeout", "10s")
	v.SetDefault("weather.max_retries", 3)
	v.SetDefault("weather.retry_delay_base", "1s")
	v.SetDefault("weather.breaker_timeout", "1m")
	v.SetDefault("weather.cache_ttl", "30m")

	v.SetDefault("satellite.collection", "COPERNICUS/S2")
	v.SetDefault("satellite.max_cloud_percent", 20.0)
	v.SetDefault("satellite.timeout", "60s")
	v.SetDefault("satellite.max_retries", 3)
	v.SetDefault("satellite.retry_delay_base", "2s")
	v.SetDefault("satellite.breaker_timeout", "2m")

	v.SetDefault("pipeline.lookback_days", 14)
	v.SetDefault("pipeline.current_days", 7)
	v.SetDefault("pipeline.baseline_near_days", 14)
	v.SetDefault("pipeline.baseline_far_days", 21)
	v.SetDefault("pipeline.skip_policy", "advance")
	v.SetDefault("pipeline.record_signals", true)

	v.SetDefault("schedule.cron", "")
	v.SetDefault("schedule.run_on_start", true)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("sms.enabled", true)
	v.SetDefault("sms.sender", "+251912345678")

	v.SetDefault("storage.db_path", "./data/riskwatch.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "riskwatch.assessments")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Weather.APIBaseURL == "" {
		return fmt.Errorf("weather.api_base_url is required")
	}
	if c.Weather.Timeout <= 0 {
		return fmt.Errorf("weather.timeout must be positive")
	}
	if c.Weather.MaxRetries < 1 {
		return fmt.Errorf("weather.max_retries must be at least 1")
	}

	if c.Satellite.APIBaseURL == "" {
		return fmt.Errorf("satellite.api_base_url is required")
	}
	if c.Satellite.MaxCloudPercent <= 0 || c.Satellite.MaxCloudPercent > 100 {
		return fmt.Errorf("satellite.max_cloud_percent must be in (0, 100]")
	}
	if c.Satellite.Timeout <= 0 {
		return fmt.Errorf("satellite.timeout must be positive")
	}

	if c.Pipeline.LookbackDays < 1 {
		return fmt.Errorf("pipeline.lookback_days must be at least 1")
	}
	if c.Pipeline.CurrentDays < 1 {
		return fmt.Errorf("pipeline.current_days must be at least 1")
	}
	if c.Pipeline.BaselineNearDays < c.Pipeline.CurrentDays {
		return fmt.Errorf("pipeline.baseline_near_days must not overlap the current window")
	}
	if c.Pipeline.BaselineFarDays <= c.Pipeline.BaselineNearDays {
		return fmt.Errorf("pipeline.baseline_far_days must be greater than pipeline.baseline_near_days")
	}
	if c.Pipeline.SkipPolicy != "advance" && c.Pipeline.SkipPolicy != "hold" {
		return fmt.Errorf("pipeline.skip_policy must be one of: advance, hold")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is enabled")
		}
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}

	for i, loc := range c.Locations {
		if loc.Name == "" {
			return fmt.Errorf("locations[%d].name is required", i)
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// HoldWatermarkOnSkip reports whether a pass with skipped kebeles should
// leave the watermark in place.
func (c *Config) HoldWatermarkOnSkip() bool {
	return c.Pipeline.SkipPolicy == "hold"
}
