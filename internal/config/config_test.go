package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Store)
	assert.Equal(t, 24, cfg.Auth.TokenHours)
	assert.Equal(t, "rent", cfg.Rules.RentalMarker)
	assert.Empty(t, cfg.Kafka.BrokerList())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "ledger")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("STORE", "memory")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.BrokerList())
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t,
		"host=db.internal port=5432 user=postgres password=password dbname=ledger sslmode=disable",
		cfg.Database.GetDSN(),
	)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rentledger.yaml")
	content := `
server:
  port: 7000
rules:
  file: rules.yaml
  rental_marker: lease
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// environment wins over the file
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "rules.yaml", cfg.Rules.File)
	assert.Equal(t, "lease", cfg.Rules.RentalMarker)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := LoadConfig("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"store", func(c *Config) { c.Store = "redis" }},
		{"secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"token hours", func(c *Config) { c.Auth.TokenHours = 0 }},
		{"kafka topic", func(c *Config) { c.Kafka.Brokers = "k1:9092"; c.Kafka.Topic = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
