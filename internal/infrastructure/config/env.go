package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envBybitKey       = "SPREADWATCH_BYBIT_API_KEY"
	envBybitSecret    = "SPREADWATCH_BYBIT_API_SECRET"
	envTelegramToken  = "SPREADWATCH_TELEGRAM_TOKEN"
	envTelegramChatID = "SPREADWATCH_TELEGRAM_CHAT_ID"
	envDiscordWebhook = "SPREADWATCH_DISCORD_WEBHOOK"
	envRedisPassword  = "SPREADWATCH_REDIS_PASSWORD"
)

// applyEnv overlays an optional .env file onto the process environment and
// copies credential material into the config. Secrets never live in the
// config file.
func applyEnv(cfg *Config) {
	_ = godotenv.Load()

	setStr(&cfg.Venues.Bybit.APIKey, envBybitKey)
	setStr(&cfg.Venues.Bybit.APISecret, envBybitSecret)
	setStr(&cfg.Notify.Telegram.Token, envTelegramToken)
	setStr(&cfg.Notify.Telegram.ChatID, envTelegramChatID)
	setStr(&cfg.Notify.Discord.WebhookURL, envDiscordWebhook)
	setStr(&cfg.Storage.Redis.Password, envRedisPassword)
}

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
}
