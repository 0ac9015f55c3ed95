// Package config provides configuration management using viper.
// It supports loading from YAML files, a .env file and environment variable overrides.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Ops       OpsConfig       `mapstructure:"ops"`
	Game      GameConfig      `mapstructure:"game"`
	Backup    BackupConfig    `mapstructure:"backup"`
	Log       LogConfig       `mapstructure:"log"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	Name             string        `mapstructure:"name"`
	PoolSize         int           `mapstructure:"pool_size"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// AdminConfig holds the static administrator allow-list.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// RedisConfig holds the Redis connection used by the rate limiter.
// An empty Addr disables rate limiting.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig holds the per-player fixed-window limit.
type RateLimitConfig struct {
	MaxActions int           `mapstructure:"max_actions"`
	Window     time.Duration `mapstructure:"window"`
}

// OpsConfig holds the health and metrics HTTP listener.
type OpsConfig struct {
	Addr    string `mapstructure:"addr"`
	Version string `mapstructure:"version"`
}

// GameConfig holds the tunable rules that are not part of the fixed catalog.
type GameConfig struct {
	StartInventory    map[string]int `mapstructure:"start_inventory"`
	LevelUpThreshold  int64          `mapstructure:"level_up_threshold"`
	LevelUpCoinBonus  int64          `mapstructure:"level_up_coin_bonus"`
	LevelUpGemBonus   int64          `mapstructure:"level_up_gem_bonus"`
	RetaliationWindow time.Duration  `mapstructure:"retaliation_window"`
	SessionTTL        time.Duration  `mapstructure:"session_ttl"`
}

// BackupConfig holds where admin snapshots are written.
type BackupConfig struct {
	Dir string `mapstructure:"dir"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in configPath, the working directory and ./config.
func Load(configPath string) (*Config, error) {
	// A .env file is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_HOST, REDIS_ADDR, GAME_RETALIATION_WINDOW
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.poll_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "warzone")
	v.SetDefault("database.name", "warzone")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.statement_timeout", "5s")

	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.max_actions", 20)
	v.SetDefault("ratelimit.window", "1m")

	v.SetDefault("ops.addr", ":8080")
	v.SetDefault("ops.version", "dev")

	v.SetDefault("game.start_inventory", map[string]int{"meteor": 1})
	v.SetDefault("game.level_up_threshold", 100)
	v.SetDefault("game.level_up_coin_bonus", 500)
	v.SetDefault("game.level_up_gem_bonus", 1)
	v.SetDefault("game.retaliation_window", "1h")
	v.SetDefault("game.session_ttl", "2m")

	v.SetDefault("backup.dir", "backups")
	v.SetDefault("log.level", "info")
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Admin.IDs, userID)
}

// IsChatAllowed checks if a chat ID is in the whitelist.
// An empty whitelist allows every chat.
func (c *Config) IsChatAllowed(chatID int64) bool {
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	return slices.Contains(c.Whitelist.Chats, chatID)
}
