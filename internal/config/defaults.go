package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

func DefaultConfig() map[string]any {
	return map[string]any{
		"http.addr":                 "0.0.0.0:8080",
		"log.level":                 "info",
		"log.format":                "json",
		"timezone":                  "Asia/Seoul",
		"reminder.interval":         "24h",
		"reminder.claim_timeout":    "15m",
		"reminder.notify_timeout":   "30s",
		"reminder.workers":          4,
		"reminder.auto_retry_limit": 3,
		"reminder.default_offsets":  "30,7,1",
		"smtp.port":                 587,
		"ai.provider":               "openai",
		"ai.base_url":               "https://openrouter.ai/api/v1",
		"ai.model":                  "openai/gpt-4o-mini",
		"ai.timeout":                "60s",
		"s3.region":                 "us-east-1",
		"s3.presign_expiry":         "15m",
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

// envKeys maps environment variables onto config keys. Variables not listed
// here are ignored.
var envKeys = map[string]string{
	"DATABASE_URI":       "database.uri",
	"HTTP_ADDR":          "http.addr",
	"JWT_SECRET":         "auth.jwt_secret",
	"LOG_LEVEL":          "log.level",
	"LOG_FORMAT":         "log.format",
	"TIMEZONE":           "timezone",
	"SCHEDULER_INTERVAL": "reminder.interval",
	"CLAIM_TIMEOUT":      "reminder.claim_timeout",
	"NOTIFY_TIMEOUT":     "reminder.notify_timeout",
	"DISPATCH_WORKERS":   "reminder.workers",
	"AUTO_RETRY_LIMIT":   "reminder.auto_retry_limit",
	"DEFAULT_OFFSETS":    "reminder.default_offsets",
	"SMTP_HOST":          "smtp.host",
	"SMTP_PORT":          "smtp.port",
	"SMTP_USERNAME":      "smtp.username",
	"SMTP_PASSWORD":      "smtp.password",
	"SMTP_FROM":          "smtp.from",
	"SMS_ENDPOINT":       "sms.endpoint",
	"SMS_API_KEY":        "sms.api_key",
	"SMS_SENDER":         "sms.sender",
	"TELEGRAM_TOKEN":     "telegram.token",
	"AI_PROVIDER":        "ai.provider",
	"AI_API_KEY":         "ai.api_key",
	"AI_BASE_URL":        "ai.base_url",
	"AI_MODEL":           "ai.model",
	"AI_TIMEOUT":         "ai.timeout",
	"S3_REGION":          "s3.region",
	"S3_ACCESS_KEY":      "s3.access_key",
	"S3_SECRET_KEY":      "s3.secret_key",
	"S3_ENDPOINT":        "s3.endpoint",
	"S3_BUCKET":          "s3.bucket",
	"S3_PRESIGN_EXPIRY":  "s3.presign_expiry",
}
