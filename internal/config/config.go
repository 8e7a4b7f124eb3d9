package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the process reads from the environment, loaded
// once at startup.
type Config struct {
	Env         string // "production" gates the query-param fallbacks
	Port        string
	DatabaseDSN string

	// Token signing material. When both paths are empty a throwaway dev key
	// is generated and tokens do not survive a restart.
	JWTIssuer       string
	JWTAudience     string
	PrivateKeyPath  string
	RetiredKeyPaths []string // "kid=path" entries for recently rotated keys
	SigningKeyID    string

	RedisAddr     string
	RedisPassword string

	CORSOrigins []string
}

// Load reads configs/.env when present, then the process environment.
func Load() *Config {
	// Running without an env file is normal in containers.
	_ = godotenv.Load("configs/.env")

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		JWTIssuer:      getEnv("JWT_ISSUER", "pharmacy-api"),
		JWTAudience:    getEnv("JWT_AUDIENCE", "pharmacy"),
		PrivateKeyPath: os.Getenv("JWT_PRIVATE_KEY_PATH"),
		SigningKeyID:   os.Getenv("JWT_KEY_ID"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
	}

	if retired := os.Getenv("JWT_RETIRED_KEYS"); retired != "" {
		cfg.RetiredKeyPaths = strings.Split(retired, ",")
	}

	origins := getEnv("CORS_ORIGINS", "http://localhost:5173")
	cfg.CORSOrigins = strings.Split(origins, ",")

	cfg.DatabaseDSN = buildDSN()
	return cfg
}

// IsProduction gates the testing-only fallbacks (tenant id and access token
// from query parameters).
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func buildDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	name := getEnv("DB_NAME", "pharmacy")
	sslMode := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + password + "@" + host + ":" + port + "/" + name + "?sslmode=" + sslMode
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
