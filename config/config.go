package config

import (
	"fmt"
	"os"
	"strconv"
)

// Store mode selects the persistence backend.
const (
	StoreLocal  = "local"
	StoreRemote = "remote"
)

type Config struct {
	// StoreMode is "local" (SQLite, single user) or "remote" (MongoDB,
	// shared). The remote mode still opens the local database to run the
	// one-time migration and keep its marker.
	StoreMode string
	DBPath    string
	MongoURI  string
	DBName    string
	// WebAddr enables the read-only widget API when non-empty, e.g. ":8990".
	WebAddr     string
	LogLevel    string
	EventWindow int
}

func Load() (*Config, error) {
	eventWindow := 200
	if v := getEnv("EVENT_WINDOW", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid EVENT_WINDOW %q", v)
		}
		eventWindow = n
	}

	mode := getEnv("STORE_MODE", StoreLocal)
	if mode != StoreLocal && mode != StoreRemote {
		return nil, fmt.Errorf("invalid STORE_MODE %q (use local or remote)", mode)
	}

	return &Config{
		StoreMode:   mode,
		DBPath:      getEnv("DB_PATH", "reading-console.db"),
		MongoURI:    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("MONGODB_DB", "reading_console"),
		WebAddr:     getEnv("WEB_ADDR", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		EventWindow: eventWindow,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
