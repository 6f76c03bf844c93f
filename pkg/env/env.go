package env

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv pulls a .env file into the process environment if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system envs")
	}
}

// GetEnv reads an environment variable with a fallback.
func GetEnv(key string, fallback string) string {
	if value, exist := os.LookupEnv(key); exist {
		return value
	}
	return fallback
}
