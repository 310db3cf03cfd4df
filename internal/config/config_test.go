package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"aml-monitor/internal/datastore"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AML_STORE_TYPE", "AML_MOCK_DATA_PATH", "DB_CONN_STRING",
		"GEMINI_API_KEY", "GOOGLE_API_KEY",
		"AML_SCORE_FIELDS", "AML_FLAG_COLUMN", "AML_FLAG_THRESHOLD",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	assert.Equal(t, datastore.PostgreSQLStore, cfg.Store.Type)
	assert.Equal(t, "postgres://localhost:5432/postgres?sslmode=disable", cfg.Store.ConnectionString)
	assert.False(t, cfg.IsMockMode())
	assert.Empty(t, cfg.APIKey)
	assert.Nil(t, cfg.ScoreFields)
	assert.Equal(t, "suspicion_confidence", cfg.FlagColumn)
	assert.Equal(t, 0.7, cfg.FlagThreshold)
}

func TestLoadMockMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("AML_STORE_TYPE", "mock")
	t.Setenv("AML_MOCK_DATA_PATH", "/tmp/aml-mocks")

	cfg := Load()
	assert.Equal(t, datastore.MockStore, cfg.Store.Type)
	assert.Equal(t, "/tmp/aml-mocks", cfg.Store.MockDataPath)
	assert.True(t, cfg.IsMockMode())
}

func TestLoadMockModeDefaultPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("AML_STORE_TYPE", "MOCK")

	cfg := Load()
	assert.Equal(t, datastore.MockStore, cfg.Store.Type)
	assert.Equal(t, "data/mocks", cfg.Store.MockDataPath)
}

func TestLoadAPIKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")
	assert.Equal(t, "google-key", Load().APIKey)

	t.Setenv("GEMINI_API_KEY", "gemini-key")
	assert.Equal(t, "gemini-key", Load().APIKey)
}

func TestLoadScoreFields(t *testing.T) {
	clearEnv(t)
	t.Setenv("AML_SCORE_FIELDS", "description, memo , notes,")

	cfg := Load()
	assert.Equal(t, []string{"description", "memo", "notes"}, cfg.ScoreFields)
}

func TestLoadFlagThreshold(t *testing.T) {
	clearEnv(t)
	t.Setenv("AML_FLAG_THRESHOLD", "0.9")
	assert.Equal(t, 0.9, Load().FlagThreshold)

	t.Setenv("AML_FLAG_THRESHOLD", "not a number")
	assert.Equal(t, 0.7, Load().FlagThreshold)
}
