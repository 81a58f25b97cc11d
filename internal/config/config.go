package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	AulaUsername string
	AulaPassword string
	ServerPort   string

	AWSRegion      string
	SESFromEmail   string
	SESFromName    string
	DigestToEmail  string
	DigestInterval time.Duration
}

// Load reads configuration from environment variables, honoring a local
// .env file when one exists
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}
	return &Config{
		AulaUsername:   os.Getenv("AULA_USERNAME"),
		AulaPassword:   os.Getenv("AULA_PASSWORD"),
		ServerPort:     getEnv("PORT", "8080"),
		AWSRegion:      getEnv("AWS_REGION", "eu-west-1"),
		SESFromEmail:   os.Getenv("SES_FROM_EMAIL"),
		SESFromName:    getEnv("SES_FROM_NAME", "Aulabot"),
		DigestToEmail:  os.Getenv("DIGEST_TO_EMAIL"),
		DigestInterval: getEnvDuration("DIGEST_INTERVAL", 24*time.Hour),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		log.Printf("Invalid duration for %s, using default %s", key, defaultValue)
	}
	return defaultValue
}
