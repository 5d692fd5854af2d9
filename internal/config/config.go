package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppName     string
	Env         string
	Host        string
	Port        int
	DatabaseURL string

	JWTSecret          string
	SessionTTLDays     int
	CodeExpiresMinutes int
	BcryptCost         int

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	AdminEmail    string
	AdminPassword string

	CORSOrigins    []string
	AuthRateLimit  float64
	AuthRateBurst  int
	RequestTimeout int
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbHost := getEnv("PG_HOST", "localhost")
		dbPort := getEnv("PG_PORT", "5432")
		dbUser := getEnv("PG_USER", "kocmoc")
		dbPass := getEnv("PG_PASSWORD", "kocmoc")
		dbName := getEnv("PG_DATABASE", "kocmoc")

		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(dbUser, dbPass),
			Host:     fmt.Sprintf("%s:%s", dbHost, dbPort),
			Path:     dbName,
			RawQuery: "sslmode=disable",
		}
		dbURL = u.String()
	}

	cfg := &Config{
		AppName:     getEnv("APP_NAME", "kocmoc"),
		Env:         getEnv("APP_ENV", "development"),
		Host:        getEnv("HTTP_HOST", "0.0.0.0"),
		Port:        getEnvAsInt("HTTP_PORT", 8000),
		DatabaseURL: dbURL,

		JWTSecret:          os.Getenv("JWT_SECRET"),
		SessionTTLDays:     getEnvAsInt("SESSION_TTL_DAYS", 30),
		CodeExpiresMinutes: getEnvAsInt("VERIFICATION_CODE_EXPIRES_MINUTES", 15),
		BcryptCost:         getEnvAsInt("BCRYPT_COST", 12),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnv("SMTP_FROM", os.Getenv("SMTP_USER")),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		AuthRateLimit:  getEnvAsFloat("AUTH_RATE_LIMIT", 5),
		AuthRateBurst:  getEnvAsInt("AUTH_RATE_BURST", 10),
		RequestTimeout: getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 60),
	}

	cors := getEnv("CORS_ORIGINS", "")
	if cors != "" {
		parts := strings.Split(cors, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.CORSOrigins = parts
	} else {
		cfg.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// MailConfigured reports whether SMTP credentials are present. Without them
// the mail collaborator is a no-op and codes are only reachable out of band.
func (c *Config) MailConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPassword != ""
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
