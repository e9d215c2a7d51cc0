// Package config provides configuration loading and validation for the
// announcement bot. Values come from defaults, an optional config.yaml,
// and BOT_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration parameters.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Announce  AnnounceConfig  `mapstructure:"announce"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls log output level and format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds transport credentials and routing identities.
//
// TargetChannel may be an @handle or a numeric chat id. It is deliberately
// not marked required: its absence degrades to a configuration-error reply
// at message time rather than refusing to start.
type TelegramConfig struct {
	Token          string  `mapstructure:"token" validate:"required"`
	AllowedUserIDs []int64 `mapstructure:"allowed_user_ids"`
	TargetChannel  string  `mapstructure:"target_channel"`
}

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// AnnounceConfig holds the timing windows of the correlation logic.
type AnnounceConfig struct {
	RecordTTL  time.Duration `mapstructure:"record_ttl" validate:"min=1m,max=24h"`
	PollMaxAge time.Duration `mapstructure:"poll_max_age" validate:"min=1m,max=48h"`
}

// SchedulerConfig holds schedules for background maintenance jobs.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a single scheduled task with a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// LoadConfig loads and validates configuration from defaults, the YAML file
// at the given path (optional), and BOT_* environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing config file is fine, defaults plus env cover it.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// IsAllowed reports whether the given user id is on the allow-list.
func (c *TelegramConfig) IsAllowed(userID int64) bool {
	for _, id := range c.AllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", true)

	// Registering empty defaults makes these keys visible to Unmarshal
	// when they are provided only through BOT_* environment variables.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.allowed_user_ids", []int64{})
	v.SetDefault("telegram.target_channel", "")

	v.SetDefault("database.path", "storage.db")

	v.SetDefault("announce.record_ttl", 10*time.Minute)
	v.SetDefault("announce.poll_max_age", time.Hour)

	v.SetDefault("scheduler.tasks.purge_expired.enabled", true)
	v.SetDefault("scheduler.tasks.purge_expired.schedule", "0 */10 * * * *")
}
