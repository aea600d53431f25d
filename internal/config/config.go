// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Log         LogConfig         `mapstructure:"log"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Calendar    CalendarConfig    `mapstructure:"calendar"`
	Sources     SourcesConfig     `mapstructure:"sources"`
	Aggregation AggregationConfig `mapstructure:"aggregation"`
	Sync        SyncConfig        `mapstructure:"sync"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// TelegramConfig holds Telegram bot configuration. An empty token disables the bot.
type TelegramConfig struct {
	Token        string  `mapstructure:"token"`
	Debug        bool    `mapstructure:"debug"`
	AllowedChats []int64 `mapstructure:"allowed_chats"` // empty = everyone
}

// CalendarConfig holds Google Calendar configuration.
type CalendarConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	TokenFile       string `mapstructure:"token_file"`
	CalendarID      string `mapstructure:"calendar_id"`
}

// SourceConfig configures one contest source.
type SourceConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Proxy   string        `mapstructure:"proxy"`
}

// SourcesConfig holds per-platform source configuration.
type SourcesConfig struct {
	Codeforces SourceConfig `mapstructure:"codeforces"`
	LeetCode   SourceConfig `mapstructure:"leetcode"`
	CodeChef   SourceConfig `mapstructure:"codechef"`
}

// AggregationConfig controls the scheduled refresh.
type AggregationConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Cron       string `mapstructure:"cron"`
	RunOnStart bool   `mapstructure:"run_on_start"`
	DaysAhead  int    `mapstructure:"days_ahead"`
}

// SyncConfig controls calendar booking.
type SyncConfig struct {
	DefaultReminders     []int `mapstructure:"default_reminders"` // minutes before start
	PurgeMappingOnDelete bool  `mapstructure:"purge_mapping_on_delete"`
}

// Load reads configuration from a .env file, the config file and
// environment variables, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Read environment variables
	v.SetEnvPrefix("CONTESTCAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "./data/contests.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.debug", false)
	v.SetDefault("calendar.credentials_file", "./data/credentials.json")
	v.SetDefault("calendar.token_file", "./data/token.json")
	v.SetDefault("calendar.calendar_id", "primary")

	v.SetDefault("sources.codeforces.enabled", true)
	v.SetDefault("sources.codeforces.base_url", "https://codeforces.com")
	v.SetDefault("sources.codeforces.timeout", 15*time.Second)
	v.SetDefault("sources.leetcode.enabled", true)
	v.SetDefault("sources.leetcode.base_url", "https://leetcode.com")
	v.SetDefault("sources.leetcode.timeout", 15*time.Second)
	v.SetDefault("sources.codechef.enabled", true)
	v.SetDefault("sources.codechef.base_url", "https://www.codechef.com")
	v.SetDefault("sources.codechef.timeout", 15*time.Second)

	v.SetDefault("aggregation.enabled", true)
	v.SetDefault("aggregation.cron", "0 */6 * * *")
	v.SetDefault("aggregation.run_on_start", true)
	v.SetDefault("aggregation.days_ahead", 30)

	v.SetDefault("sync.default_reminders", []int{30, 10})
	v.SetDefault("sync.purge_mapping_on_delete", false)
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Aggregation.Enabled && strings.TrimSpace(c.Aggregation.Cron) == "" {
		return fmt.Errorf("aggregation cron is required when aggregation is enabled")
	}
	if c.Aggregation.DaysAhead <= 0 {
		return fmt.Errorf("aggregation days_ahead must be positive")
	}
	if len(c.Sync.DefaultReminders) == 0 {
		return fmt.Errorf("sync default_reminders must not be empty")
	}
	for _, m := range c.Sync.DefaultReminders {
		if m < 0 {
			return fmt.Errorf("sync default_reminders: negative value %d", m)
		}
	}
	return nil
}

// ServerAddress returns the full server address.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DaysAhead returns the default query horizon.
func (c *Config) DaysAhead() time.Duration {
	return time.Duration(c.Aggregation.DaysAhead) * 24 * time.Hour
}

// ChatAllowed reports whether a Telegram chat may use the bot.
func (t TelegramConfig) ChatAllowed(chatID int64) bool {
	if len(t.AllowedChats) == 0 {
		return true
	}
	for _, id := range t.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}
