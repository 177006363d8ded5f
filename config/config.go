package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the console reads from the environment.
type Config struct {
	Env        string
	ServerPort int

	// APIBaseURL is the root of the remote platform API,
	// e.g. https://api.claritel.example.
	APIBaseURL string
	APITimeout time.Duration

	// SessionSecret signs the session and challenge cookies. The console
	// refuses to start without one outside dev.
	SessionSecret string
	SessionTTL    time.Duration
	ChallengeTTL  time.Duration

	LoginRatePerMinute int
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	return Config{
		Env:                getEnv("ENV", "dev"),
		ServerPort:         getEnvInt("SERVER_PORT", 8080),
		APIBaseURL:         getEnv("API_BASE_URL", "http://localhost:3000"),
		APITimeout:         time.Duration(getEnvInt("API_TIMEOUT_SECONDS", 10)) * time.Second,
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionTTL:         time.Duration(getEnvInt("SESSION_TTL_MINUTES", 480)) * time.Minute,
		ChallengeTTL:       time.Duration(getEnvInt("MFA_CHALLENGE_TTL_MINUTES", 5)) * time.Minute,
		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MIN", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}
