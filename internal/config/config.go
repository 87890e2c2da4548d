// internal/config/config.go
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config carries server wiring read from the environment. A .env file in
// the working directory is loaded first when present; real environment
// variables win.
type Config struct {
	ListenAddr string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresDSN string

	JWTSecret string

	TurnSeconds  int
	RoundSeconds int
	AutoStart    bool
}

// Load reads configuration from the environment with sane defaults. Empty
// RedisAddr or PostgresDSN disables the corresponding subsystem.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("could not load .env file")
	}

	return &Config{
		ListenAddr:    getenv("LISTEN_ADDR", ":8080"),
		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getint("REDIS_DB", 0),
		PostgresDSN:   getenv("POSTGRES_DSN", ""),
		JWTSecret:     getenv("JWT_SECRET", "dev-secret-change-me"),
		TurnSeconds:   getint("TURN_SECONDS", 30),
		RoundSeconds:  getint("ROUND_SECONDS", 300),
		AutoStart:     getbool("AUTO_START", false),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("key", key).WithError(err).Warn("invalid integer env var, using default")
		return fallback
	}
	return n
}

func getbool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logrus.WithField("key", key).WithError(err).Warn("invalid boolean env var, using default")
		return fallback
	}
	return b
}
