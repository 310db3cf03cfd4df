// Package config builds the explicit configuration object passed to every
// entry point. All environment reads happen here; nothing else in the
// module consults process-wide state.
package config

import (
	"os"
	"strconv"
	"strings"

	"aml-monitor/internal/datastore"
)

// Config carries everything the CLI and web server need.
type Config struct {
	Store datastore.Config

	// APIKey authenticates the Gemini agent; empty disables agent commands.
	APIKey string

	// ScoreFields are the transaction columns searched by the keyword
	// scorer; nil selects the scorer's defaults.
	ScoreFields []string

	// FlagColumn and FlagThreshold control the suspicion flag step.
	FlagColumn    string
	FlagThreshold float64
}

// Load assembles a Config from the environment with defaults suitable for
// local development.
func Load() Config {
	return Config{
		Store:         storeConfig(),
		APIKey:        apiKey(),
		ScoreFields:   scoreFields(),
		FlagColumn:    getEnv("AML_FLAG_COLUMN", "suspicion_confidence"),
		FlagThreshold: getFloatEnv("AML_FLAG_THRESHOLD", 0.7),
	}
}

// IsMockMode reports whether the store runs on JSON files.
func (c Config) IsMockMode() bool {
	return c.Store.Type == datastore.MockStore
}

func storeConfig() datastore.Config {
	cfg := datastore.Config{}
	switch strings.ToLower(os.Getenv("AML_STORE_TYPE")) {
	case "mock":
		cfg.Type = datastore.MockStore
		cfg.MockDataPath = getEnv("AML_MOCK_DATA_PATH", "data/mocks")
	default:
		// PostgreSQL unless mock is asked for explicitly.
		cfg.Type = datastore.PostgreSQLStore
		cfg.ConnectionString = getEnv("DB_CONN_STRING", "postgres://localhost:5432/postgres?sslmode=disable")
	}
	return cfg
}

// apiKey looks for GEMINI_API_KEY first, then falls back to GOOGLE_API_KEY.
func apiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("GOOGLE_API_KEY")
}

func scoreFields() []string {
	raw := os.Getenv("AML_SCORE_FIELDS")
	if raw == "" {
		return nil
	}
	var fields []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
