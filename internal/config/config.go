package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	VerifyToken    string
	GraphBaseURL   string
	AppUploadToken string

	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	StorageDir    string
	PublicBaseURL string

	RedisAddr string

	TemplatePollInterval time.Duration
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		VerifyToken:    getEnv("VERIFY_TOKEN", ""),
		GraphBaseURL:   getEnv("GRAPH_BASE_URL", "https://graph.facebook.com/v19.0"),
		AppUploadToken: getEnv("APP_UPLOAD_TOKEN", ""),

		DBPath:     getEnv("DB_PATH", "./messaging.db"),
		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "messaging"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		StorageDir:    getEnv("STORAGE_DIR", "./storage"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		TemplatePollInterval: getDuration("TEMPLATE_POLL_INTERVAL", 60*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Warning: invalid duration for %s, using fallback", key)
	}
	return fallback
}
