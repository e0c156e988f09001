package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchastel/referendum-rollup/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/regions.csv", cfg.RegionsPath)
	assert.Equal(t, "data/departments.csv", cfg.DepartmentsPath)
	assert.Equal(t, "data/referendum.csv", cfg.ReferendumPath)
	assert.Empty(t, cfg.GeoJSONPath)
	assert.Equal(t, domain.ScopeMainland, cfg.Scope)
	assert.False(t, cfg.IncludeEmptyRegions)
	assert.Equal(t, domain.RatioNilWhenUndefined, cfg.RatioPolicy)
	assert.Equal(t, ';', cfg.ReferendumDelimiter)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, "region-results", cfg.KafkaSinkTopic)
	assert.Empty(t, cfg.SQLitePath)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("REGIONS_CSV", "/srv/ref/regions.csv")
	t.Setenv("DEPARTMENTS_CSV", "/srv/ref/departments.csv")
	t.Setenv("REFERENDUM_CSV", "/srv/ref/referendum.csv")
	t.Setenv("REGIONS_GEOJSON", "/srv/ref/regions.geojson")
	t.Setenv("ROLLUP_SCOPE", "all")
	t.Setenv("INCLUDE_EMPTY_REGIONS", "true")
	t.Setenv("RATIO_POLICY", "zero")
	t.Setenv("REFERENDUM_DELIMITER", ",")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "map-results")
	t.Setenv("SQLITE_PATH", "/var/lib/rollup.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/ref/regions.csv", cfg.RegionsPath)
	assert.Equal(t, "/srv/ref/regions.geojson", cfg.GeoJSONPath)
	assert.Equal(t, domain.ScopeAll, cfg.Scope)
	assert.True(t, cfg.IncludeEmptyRegions)
	assert.Equal(t, domain.RatioZeroWhenUndefined, cfg.RatioPolicy)
	assert.Equal(t, ',', cfg.ReferendumDelimiter)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "map-results", cfg.KafkaSinkTopic)
	assert.Equal(t, "/var/lib/rollup.db", cfg.SQLitePath)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad scope", "ROLLUP_SCOPE", "europe"},
		{"bad ratio policy", "RATIO_POLICY", "nan"},
		{"bad delimiter", "REFERENDUM_DELIMITER", "|"},
		{"bad shutdown timeout", "SHUTDOWN_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestDefaultColumnMapping(t *testing.T) {
	m := DefaultColumnMapping()
	assert.Equal(t, "Department code", m.Referendum.DepartmentCode)
	assert.Equal(t, "Null", m.Referendum.NullVotes)
	assert.Equal(t, "Choice B", m.Referendum.ChoiceB)
	require.NoError(t, m.validate())
}

func TestLoadColumnMapping_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.yaml")
	content := "referendum:\n  choice_a: \"Oui\"\n  choice_b: \"Non\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	m, err := LoadColumnMapping(path)
	require.NoError(t, err)

	assert.Equal(t, "Oui", m.Referendum.ChoiceA)
	assert.Equal(t, "Non", m.Referendum.ChoiceB)
	// Unmentioned columns keep their defaults.
	assert.Equal(t, "Department code", m.Referendum.DepartmentCode)
	assert.Equal(t, "Registered", m.Referendum.Registered)
}

func TestLoadColumnMapping_Invalid(t *testing.T) {
	t.Run("duplicate headers", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "columns.yaml")
		content := "referendum:\n  choice_a: \"Votes\"\n  choice_b: \"Votes\"\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		_, err := LoadColumnMapping(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadColumnMapping(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("empty path uses defaults", func(t *testing.T) {
		m, err := LoadColumnMapping("")
		require.NoError(t, err)
		assert.Equal(t, DefaultColumnMapping(), m)
	})
}
