package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Archiver  ArchiverConfig  `mapstructure:"archiver"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	HTTPPort int    `mapstructure:"http_port"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	LogSQL   bool   `mapstructure:"log_sql"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SchedulerConfig holds the spaced-repetition algorithm knobs. All values
// have working defaults; override them only for experimentation.
type SchedulerConfig struct {
	LearningSteps           []int32 `mapstructure:"learning_steps"`
	InitialEase             float64 `mapstructure:"initial_ease"`
	MinEase                 float64 `mapstructure:"min_ease"`
	MaxEase                 float64 `mapstructure:"max_ease"`
	EaseBonus               float64 `mapstructure:"ease_bonus"`
	EasePenalty             float64 `mapstructure:"ease_penalty"`
	GraduationThresholdDays int32   `mapstructure:"graduation_threshold_days"`
	MaxIntervalDays         int32   `mapstructure:"max_interval_days"`
	// Timezone anchors the day boundary for due-date arithmetic.
	Timezone string `mapstructure:"timezone"`
}

// ArchiverConfig controls the overdue sweep.
type ArchiverConfig struct {
	RetentionDays int   `mapstructure:"retention_days"`
	BatchSize     int32 `mapstructure:"batch_size"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	setDefaults()

	// Enable reading from environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read configuration file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.http_port", 8080)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "mistbook")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.log_sql", false)

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	// Scheduler defaults
	viper.SetDefault("scheduler.learning_steps", []int32{1, 3})
	viper.SetDefault("scheduler.initial_ease", 2.5)
	viper.SetDefault("scheduler.min_ease", 1.3)
	viper.SetDefault("scheduler.max_ease", 2.8)
	viper.SetDefault("scheduler.ease_bonus", 0.1)
	viper.SetDefault("scheduler.ease_penalty", 0.2)
	viper.SetDefault("scheduler.graduation_threshold_days", 30)
	viper.SetDefault("scheduler.max_interval_days", 365)
	viper.SetDefault("scheduler.timezone", "UTC")

	// Archiver defaults
	viper.SetDefault("archiver.retention_days", 14)
	viper.SetDefault("archiver.batch_size", 100)
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
