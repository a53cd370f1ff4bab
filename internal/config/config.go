// Package config reads settings from the environment, after loading a .env
// file when one is present.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/mpesa"
	"github.com/jimmygitz3/final-project/internal/notify"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	Port            string
	StorageDriver   string
	MongoURI        string
	MongoDatabase   string
	DatabaseURL     string
	RedisURL        string
	JWTSecret       string
	CORSOrigins     []string
	CleanupInterval time.Duration
	Pricing         model.Pricing
	Mpesa           mpesa.Config
	SMTP            notify.SMTPConfig
}

// Load reads .env (a missing file is only logged) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, using environment")
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	defaults := model.DefaultPricing()
	cfg := &Config{
		Port:          getEnv("PORT", "8083"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverMongo)),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "kejah"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		Mpesa: mpesa.Config{
			ConsumerKey:       os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret:    os.Getenv("MPESA_CONSUMER_SECRET"),
			BusinessShortCode: os.Getenv("MPESA_BUSINESS_SHORTCODE"),
			Passkey:           os.Getenv("MPESA_PASSKEY"),
			CallbackURL:       os.Getenv("MPESA_CALLBACK_URL"),
			Environment:       getEnv("MPESA_ENVIRONMENT", mpesa.EnvSandbox),
		},
		SMTP: notify.SMTPConfig{
			Host:   os.Getenv("SMTP_HOST"),
			User:   os.Getenv("SMTP_USER"),
			Pass:   os.Getenv("SMTP_PASS"),
			Sender: os.Getenv("SMTP_SENDER"),
		},
	}

	var err error
	if cfg.CleanupInterval, err = getDuration("CLEANUP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.Pricing.ListingFee, err = getInt("LISTING_FEE", defaults.ListingFee); err != nil {
		return nil, err
	}
	if cfg.Pricing.ConnectionFee, err = getInt("CONNECTION_FEE", defaults.ConnectionFee); err != nil {
		return nil, err
	}
	if cfg.Pricing.SubscriptionFee, err = getInt("SUBSCRIPTION_FEE", defaults.SubscriptionFee); err != nil {
		return nil, err
	}
	if cfg.SMTP.Port, err = getInt("SMTP_PORT", 465); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	switch cfg.StorageDriver {
	case DriverMongo, DriverMemory:
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverMongo, DriverMemory, cfg.StorageDriver)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
