// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"time"
)

// Config holds the full runtime configuration for the bingo bot.
type Config struct {
	AppEnv string `mapstructure:"-"`

	Server    ServerConfig    `mapstructure:"server"`
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Deposit   DepositConfig   `mapstructure:"deposit"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	LeaderboardMax  int           `mapstructure:"leaderboard_max"`
}

type BotConfig struct {
	Token         string        `mapstructure:"token" validate:"required"`
	Mode          string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	Timeout       time.Duration `mapstructure:"timeout"`
	SupportChatID int64         `mapstructure:"support_chat_id"`
	SupportHandle string        `mapstructure:"support_handle"`
	SupportPhone  string        `mapstructure:"support_phone"`
	WebAppURL     string        `mapstructure:"webapp_url"`
	PlayURL       string        `mapstructure:"play_url"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslmode,
	)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=text json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type SentryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// RateLimitRule is a count-per-window limit expressed as e.g. {limit: 5, window: "1m"}.
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	PerUser   RateLimitRule `mapstructure:"per_user"`
	Claims    RateLimitRule `mapstructure:"claims"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

type DepositConfig struct {
	MinAmountETB int64 `mapstructure:"min_amount_etb"`
}

// MinAmountCents converts the configured minimum into minor units.
func (c DepositConfig) MinAmountCents() int64 {
	return c.MinAmountETB * 100
}

type AdminConfig struct {
	Token string `mapstructure:"token" validate:"required"`
}

type JobsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BioSchedule string `mapstructure:"bio_schedule"`
	Concurrency int    `mapstructure:"concurrency"`
}
