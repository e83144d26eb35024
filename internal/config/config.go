package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogPretty bool

	Database Database
	Redis    Redis
	Notify   Notify
	Auth     Auth

	QueueCeiling   int
	RateLimitRPS   float64
	RateLimitBurst int
}

type Database struct {
	Driver     string // postgres|sqlite
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SQLitePath string
}

func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Notify struct {
	Buffer      int
	Timeout     time.Duration
	Retries     int
	RabbitMQURL string
	KafkaBroker string
	KafkaTopic  string
}

type Auth struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Load reads .env unless ENV_CHEK is set (containers pass real env vars) and
// then the environment.
func Load() *Config {
	if os.Getenv("ENV_CHEK") == "" {
		if err := godotenv.Load(); err != nil {
			log.Info().Msg("no .env file found, using environment variables")
		}
	}

	return &Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		LogLevel:  strings.TrimSpace(getEnv("LOG_LEVEL", "info")),
		LogPretty: getEnvBool("LOG_PRETTY", false),
		Database: Database{
			Driver:     strings.TrimSpace(getEnv("DB_DRIVER", "postgres")),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   os.Getenv("DB_PASSWORD"),
			Name:       getEnv("DB_NAME", "lab_booking"),
			SQLitePath: getEnv("SQLITE_PATH", "lab_booking.db"),
		},
		Redis: Redis{
			Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Notify: Notify{
			Buffer:      getEnvInt("NOTIFY_BUFFER", 1024),
			Timeout:     getEnvDuration("NOTIFY_TIMEOUT", 3*time.Second),
			Retries:     getEnvInt("NOTIFY_RETRIES", 3),
			RabbitMQURL: strings.TrimSpace(os.Getenv("RABBITMQ_URL")),
			KafkaBroker: strings.TrimSpace(os.Getenv("KAFKA_BROKER_URL")),
			KafkaTopic:  getEnv("KAFKA_TOPIC", "booking.notifications"),
		},
		Auth: Auth{
			AccessSecret:  []byte(os.Getenv("JWT_ACCESS_SECRET")),
			RefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
			AccessTTL:     getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTTL:    getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		},
		QueueCeiling:   getEnvInt("QUEUE_CEILING", 5),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 5),
	}
}

// Redacted returns a view safe for logging
func (c *Config) Redacted() map[string]any {
	return map[string]any{
		"httpAddr":       c.HTTPAddr,
		"dbDriver":       c.Database.Driver,
		"dbHost":         c.Database.Host,
		"dbName":         c.Database.Name,
		"redisAddr":      c.Redis.Addr,
		"rabbitmq":       c.Notify.RabbitMQURL != "",
		"kafkaBroker":    c.Notify.KafkaBroker,
		"queueCeiling":   c.QueueCeiling,
		"logLevel":       c.LogLevel,
		"jwtConfigured":  len(c.Auth.AccessSecret) > 0 && len(c.Auth.RefreshSecret) > 0,
		"rateLimitRPS":   c.RateLimitRPS,
		"rateLimitBurst": c.RateLimitBurst,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		iv, err := strconv.Atoi(v)
		if err == nil {
			return iv
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid int in environment, using default")
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		fv, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return fv
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid float in environment, using default")
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		bv, err := strconv.ParseBool(v)
		if err == nil {
			return bv
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid bool in environment, using default")
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		dv, err := time.ParseDuration(v)
		if err == nil {
			return dv
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid duration in environment, using default")
	}
	return def
}
