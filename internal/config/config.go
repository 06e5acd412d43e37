package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all tool settings, populated from environment variables.
type Config struct {
	// Default file locations, overridable per run with flags.
	DatasetPath   string
	ErrorJSONPath string
	ErrorXLSXPath string

	LogLevel  string
	LogFormat string

	// Spatial store connection.
	DBHost         string
	DBPort         int
	DBName         string
	DBUser         string
	DBPassword     string
	DBSSLMode      string
	DBMaxOpenConns int
	QueryTimeout   time.Duration

	// Audit publishing configuration. Setting KAFKA_BROKERS implies
	// publishing unless AUDIT_ENABLED overrides it.
	KafkaBrokers []string
	KafkaTopic   string
	AuditEnabled bool

	// Optional Pushgateway endpoint for run metrics.
	PushgatewayURL string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	dbPort, err := parsePort()
	if err != nil {
		return nil, err
	}

	queryTimeout, err := parseQueryTimeout()
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	auditEnabled := len(brokers) > 0
	if v := os.Getenv("AUDIT_ENABLED"); v != "" {
		auditEnabled = v == "true"
	}

	cfg := &Config{
		DatasetPath:   envOrDefault("DATASET_PATH", "data/facilities.json"),
		ErrorJSONPath: envOrDefault("ERROR_JSON_PATH", "data/facility_errors.json"),
		ErrorXLSXPath: envOrDefault("ERROR_XLSX_PATH", "data/facility_errors.xlsx"),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),

		DBHost:         envOrDefault("DB_HOST", "localhost"),
		DBPort:         dbPort,
		DBName:         envOrDefault("DB_NAME", "facility_registry"),
		DBUser:         envOrDefault("DB_USER", "registry"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBSSLMode:      envOrDefault("DB_SSLMODE", "disable"),
		DBMaxOpenConns: parseMaxOpenConns(),
		QueryTimeout:   queryTimeout,

		KafkaBrokers: brokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "facility-repair-events"),
		AuditEnabled: auditEnabled,

		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
	}

	if cfg.AuditEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("AUDIT_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// DSN returns the key/value connection string database/sql opens with.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL returns the URL-form connection string the migration driver expects.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.User(c.DBUser),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	if c.DBPassword != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	}
	return u.String()
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parsePort() (int, error) {
	s := envOrDefault("DB_PORT", "5432")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 65535 {
		return 0, errors.New("invalid DB_PORT")
	}
	return n, nil
}

func parseQueryTimeout() (time.Duration, error) {
	s := envOrDefault("DB_QUERY_TIMEOUT", "5s")
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid DB_QUERY_TIMEOUT")
	}
	return d, nil
}

func parseMaxOpenConns() int {
	if s := os.Getenv("DB_MAX_OPEN_CONNS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 4
}
