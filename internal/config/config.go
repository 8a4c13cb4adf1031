// Package config loads the daemon's identity configuration from the
// environment. Tunables (poll interval, debounce, addresses) stay flags on
// the binary; secrets and identities live in env so they never land in
// process listings or unit files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables. All four are required.
const (
	EnvBotToken    = "POWERWATCH_BOT_TOKEN"
	EnvChatID      = "POWERWATCH_CHAT_ID"
	EnvAdminUserID = "POWERWATCH_ADMIN_USER_ID"
	EnvRedisAddr   = "POWERWATCH_REDIS_ADDR"
)

// Config is the environment-derived part of the daemon configuration.
type Config struct {
	BotToken    string
	ChatID      int64
	AdminUserID int64
	RedisAddr   string
}

// Load reads a .env file if present (existing env wins), then builds the
// Config from the process environment. Any missing or malformed value is an
// error; the caller treats that as fatal.
func Load() (Config, error) {
	// Best effort; a missing .env just means everything comes from the
	// real environment.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config using the given lookup function. Split out so
// tests can feed a map instead of mutating the process environment.
func FromEnv(getenv func(string) string) (Config, error) {
	var cfg Config
	var errs []error

	cfg.BotToken = getenv(EnvBotToken)
	if cfg.BotToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvBotToken))
	}

	if raw := getenv(EnvChatID); raw == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvChatID))
	} else if id, err := strconv.ParseInt(raw, 10, 64); err != nil {
		errs = append(errs, fmt.Errorf("%s: %q is not a chat id", EnvChatID, raw))
	} else {
		cfg.ChatID = id
	}

	if raw := getenv(EnvAdminUserID); raw == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvAdminUserID))
	} else if id, err := strconv.ParseInt(raw, 10, 64); err != nil || id <= 0 {
		errs = append(errs, fmt.Errorf("%s: %q is not a user id", EnvAdminUserID, raw))
	} else {
		cfg.AdminUserID = id
	}

	cfg.RedisAddr = getenv(EnvRedisAddr)
	if cfg.RedisAddr == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvRedisAddr))
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}
