package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mchastel/referendum-rollup/internal/domain"
)

// Config holds all service settings, populated from environment variables.
// CLI flags may override individual fields after Load.
type Config struct {
	RegionsPath     string
	DepartmentsPath string
	ReferendumPath  string
	GeoJSONPath     string
	ColumnMapPath   string

	Scope               domain.ScopePolicy
	IncludeEmptyRegions bool
	RatioPolicy         domain.RatioPolicy

	// ReferendumDelimiter is the referendum CSV field separator. The
	// interior-ministry export is semicolon-delimited; the reference
	// tables are plain comma CSV.
	ReferendumDelimiter rune

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string

	SQLitePath string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	delimiter, err := parseDelimiter(envOrDefault("REFERENDUM_DELIMITER", ";"))
	if err != nil {
		return nil, err
	}

	scope := domain.ScopePolicy(envOrDefault("ROLLUP_SCOPE", string(domain.ScopeMainland)))
	if !scope.Valid() {
		return nil, fmt.Errorf("invalid ROLLUP_SCOPE %q (want %q or %q)",
			scope, domain.ScopeMainland, domain.ScopeAll)
	}

	ratio := domain.RatioPolicy(envOrDefault("RATIO_POLICY", string(domain.RatioNilWhenUndefined)))
	if ratio != domain.RatioNilWhenUndefined && ratio != domain.RatioZeroWhenUndefined {
		return nil, fmt.Errorf("invalid RATIO_POLICY %q (want %q or %q)",
			ratio, domain.RatioNilWhenUndefined, domain.RatioZeroWhenUndefined)
	}

	kafkaSinkTopic := envOrDefault("KAFKA_SINK_TOPIC", "region-results")
	kafkaBrokers := parseBrokers(envOrDefault("KAFKA_BROKERS", ""))
	kafkaEnabled := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		RegionsPath:     envOrDefault("REGIONS_CSV", "data/regions.csv"),
		DepartmentsPath: envOrDefault("DEPARTMENTS_CSV", "data/departments.csv"),
		ReferendumPath:  envOrDefault("REFERENDUM_CSV", "data/referendum.csv"),
		GeoJSONPath:     os.Getenv("REGIONS_GEOJSON"),
		ColumnMapPath:   os.Getenv("COLUMN_MAP_FILE"),

		Scope:               scope,
		IncludeEmptyRegions: os.Getenv("INCLUDE_EMPTY_REGIONS") == "true",
		RatioPolicy:         ratio,
		ReferendumDelimiter: delimiter,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:   kafkaEnabled,
		KafkaBrokers:   kafkaBrokers,
		KafkaSinkTopic: kafkaSinkTopic,

		SQLitePath: os.Getenv("SQLITE_PATH"),
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when Kafka publishing is enabled")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := envOrDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}

func parseBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDelimiter(raw string) (rune, error) {
	switch raw {
	case ";":
		return ';', nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	default:
		return 0, fmt.Errorf("invalid REFERENDUM_DELIMITER %q (want \";\", \",\" or \"tab\")", raw)
	}
}

// ParseDelimiterFlag converts a CLI-provided delimiter value. Exposed for
// the command layer so flag and env parsing agree.
func ParseDelimiterFlag(raw string) (rune, error) {
	return parseDelimiter(raw)
}
