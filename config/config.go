package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

const (
	// MaxFileSize is the byte-size ceiling for uploaded images (60MB).
	MaxFileSize = 60 * 1024 * 1024
	// LargeFileThreshold flags files that get a slow-upload warning in clients (10MB).
	LargeFileThreshold = 10 * 1024 * 1024
	// MaxAltLength bounds alt text.
	MaxAltLength = 500
	// DefaultUploadConcurrency bounds simultaneous transfers in the
	// client upload manager.
	DefaultUploadConcurrency = 3
	// DefaultUploadRetries is how many times a failed transfer is
	// re-attempted before giving up.
	DefaultUploadRetries = 2
)

const defaultPresignTTLSeconds = 3600

type Config struct {
	// database path
	DatabasePath string

	// object storage (S3-compatible, e.g. Cloudflare R2)
	StorageEndpoint  string
	StorageRegion    string
	StorageBucket    string
	StorageAccessKey string
	StorageSecretKey string
	StoragePathStyle bool

	// public base URL assets are served from
	PublicBaseURL string

	// presigned upload URL lifetime in seconds
	PresignTTLSeconds int

	// auth
	JWTSecret string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	cfg := Config{
		DatabasePath:      getEnvOrDefault("DATABASE_PATH", "gallery.db"),
		StorageEndpoint:   os.Getenv("STORAGE_ENDPOINT"),
		StorageRegion:     getEnvOrDefault("STORAGE_REGION", "auto"),
		StorageBucket:     os.Getenv("STORAGE_BUCKET"),
		StorageAccessKey:  os.Getenv("STORAGE_ACCESS_KEY_ID"),
		StorageSecretKey:  os.Getenv("STORAGE_SECRET_ACCESS_KEY"),
		StoragePathStyle:  getEnvOrDefault("STORAGE_PATH_STYLE", "false") == "true",
		PublicBaseURL:     os.Getenv("PUBLIC_BASE_URL"),
		PresignTTLSeconds: getEnvIntOrDefault("PRESIGN_TTL_SECONDS", defaultPresignTTLSeconds),
		JWTSecret:         os.Getenv("JWT_SECRET"),
	}

	if cfg.StorageBucket == "" {
		return Config{}, fmt.Errorf("STORAGE_BUCKET must be set")
	}
	if cfg.PublicBaseURL == "" {
		return Config{}, fmt.Errorf("PUBLIC_BASE_URL must be set")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}

	return cfg, nil
}
