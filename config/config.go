package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds everything read from the environment at startup. It is
// constructed once in main and handed to the components that need it;
// nothing reads env vars after boot.
type Config struct {
	Port     string
	MongoURI string
	DBName   string

	JWTSecret []byte
	TokenTTL  time.Duration

	RedisAddr     string
	RedisPassword string

	GoogleClientID string
	CloudinaryURL  string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	// StrictStatusFlow makes Completed and Cancelled terminal order states.
	// Off by default: the status machine allows any transition.
	StrictStatusFlow bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:           getenv("PORT", "8080"),
		MongoURI:       getenv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:         getenv("MONGO_DB", "storedb"),
		TokenTTL:       time.Hour,
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		CloudinaryURL:  os.Getenv("CLOUDINARY_URL"),
		SMTPHost:       os.Getenv("SMTP_HOST"),
		SMTPUser:       os.Getenv("SMTP_USER"),
		SMTPPass:       os.Getenv("SMTP_PASS"),
		MailFrom:       getenv("MAIL_FROM", "noreply@merx.local"),
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	cfg.JWTSecret = []byte(secret)

	if ttl := os.Getenv("TOKEN_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_TTL %q: %w", ttl, err)
		}
		cfg.TokenTTL = d
	}

	if port := os.Getenv("SMTP_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT %q: %w", port, err)
		}
		cfg.SMTPPort = p
	} else {
		cfg.SMTPPort = 2525
	}

	cfg.StrictStatusFlow = os.Getenv("ORDER_STATUS_STRICT") == "true"

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
