package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI        string
	DBName          string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	OTPTTL          time.Duration
	CacheTTL        time.Duration

	// RedisAddr empty selects the in-memory cache.
	RedisAddr     string
	RedisPassword string

	// SMTPHost empty selects the logging mailer.
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string
}

// Load reads the environment (plus .env when present) into a Config.
// It fails hard on a missing JWT secret: a service that cannot sign
// tokens must not start.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}

	cfg := Config{
		MongoURI:        getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		DBName:          getEnvOrDefault("DB_NAME", "deliveryhub"),
		JWTSecret:       getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL_DAYS", 7, 24*time.Hour),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL_DAYS", 30, 24*time.Hour),
		OTPTTL:          getDurationEnv("OTP_TTL_MINUTES", 10, time.Minute),
		CacheTTL:        getDurationEnv("CACHE_TTL_MINUTES", 60, time.Minute),
		RedisAddr:       getEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword:   getEnvOrDefault("REDIS_PASSWORD", ""),
		SMTPHost:        getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:        getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser:        getEnvOrDefault("SMTP_USER", ""),
		SMTPPass:        getEnvOrDefault("SMTP_PASS", ""),
		MailFrom:        getEnvOrDefault("MAIL_FROM", "no-reply@deliveryhub.local"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, ErrMissingJWTSecret
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}
