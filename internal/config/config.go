// Package config handles loading and parsing of configuration files
// for the application: the job file, the credentials file and the source
// mapping.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/BartekS5/lake-etl/pkg/lake"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingCredential  = errors.New("missing credential")
	ErrUnsupportedBackend = errors.New("unsupported ledger backend")
)

const (
	LedgerBadger   = "badger"
	LedgerDynamoDB = "dynamodb"
	LedgerNone     = "none"
)

// Config holds all configuration for a job run. Values come from defaults,
// then the optional YAML file, then environment variables.
type Config struct {
	CatalogInput   string       `yaml:"catalogInput"`
	EventInput     string       `yaml:"eventInput"`
	OutputRoot     string       `yaml:"outputRoot"`
	Tables         TablePaths   `yaml:"tables"`
	Timezone       string       `yaml:"timezone"`
	Workers        int          `yaml:"workers"`
	MaxRowsPerFile int          `yaml:"maxRowsPerFile"`
	Compression    string       `yaml:"compression"`
	BatchSize      int          `yaml:"batchSize"`
	AWS            AWSConfig    `yaml:"aws"`
	Ledger         LedgerConfig `yaml:"ledger"`
	Join           JoinConfig   `yaml:"join"`
	MongoDatabase  string       `yaml:"mongoDatabase"`

	SQLConnString   string `yaml:"-"`
	MongoConnString string `yaml:"-"`
}

// TablePaths are output locations relative to OutputRoot.
type TablePaths struct {
	Songs     string `yaml:"songs"`
	Artists   string `yaml:"artists"`
	Users     string `yaml:"users"`
	Time      string `yaml:"time"`
	Songplays string `yaml:"songplays"`
}

type AWSConfig struct {
	Region            string `yaml:"region"`
	Endpoint          string `yaml:"endpoint"`
	VerifyCredentials bool   `yaml:"verifyCredentials"`
}

type LedgerConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Table   string `yaml:"table"`
}

type JoinConfig struct {
	NormalizeTitles bool `yaml:"normalizeTitles"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		CatalogInput: "s3a://udacity-dend/song_data/*/*/*/*.json",
		EventInput:   "s3a://udacity-dend/log_data/*.json",
		OutputRoot:   "data",
		Tables: TablePaths{
			Songs:     "song_data/song.parquet",
			Artists:   "song_data/artist.parquet",
			Users:     "log_data/users.parquet",
			Time:      "log_data/time.parquet",
			Songplays: "log_data/plays.parquet",
		},
		Timezone:    "UTC",
		Workers:     runtime.NumCPU(),
		Compression: "snappy",
		BatchSize:   1000,
		AWS:         AWSConfig{Region: "us-west-2"},
		Ledger: LedgerConfig{
			Backend: LedgerBadger,
			Path:    "data/.runs",
			Table:   "lake-etl-runs",
		},
		MongoDatabase: "sparkify",
	}
}

// LoadConfig builds the configuration. path may be empty.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.CatalogInput, "ETL_CATALOG_INPUT")
	setString(&c.EventInput, "ETL_EVENT_INPUT")
	setString(&c.OutputRoot, "ETL_OUTPUT_ROOT")
	setString(&c.Timezone, "ETL_TIMEZONE")
	setString(&c.AWS.Region, "AWS_REGION")
	setString(&c.SQLConnString, "SQL_CONNECTION_STRING")
	setString(&c.MongoConnString, "MONGO_CONNECTION_STRING")

	if v := os.Getenv("ETL_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: ETL_WORKERS=%q is not a number", ErrInvalidConfig, v)
		}
		c.Workers = n
	}
	return nil
}

// Validate checks values that would otherwise fail late in the run.
func (c *Config) Validate() error {
	if c.CatalogInput == "" || c.EventInput == "" {
		return fmt.Errorf("%w: catalogInput and eventInput are required", ErrInvalidConfig)
	}
	if c.OutputRoot == "" {
		return fmt.Errorf("%w: outputRoot is required", ErrInvalidConfig)
	}
	for name, p := range c.Tables.ByDataset() {
		if p == "" {
			return fmt.Errorf("%w: tables.%s is empty", ErrInvalidConfig, name)
		}
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.MaxRowsPerFile < 0 {
		return fmt.Errorf("%w: maxRowsPerFile must not be negative", ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batchSize must be positive", ErrInvalidConfig)
	}
	if _, _, err := lake.ParseCompression(c.Compression); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	switch c.Ledger.Backend {
	case LedgerBadger, LedgerNone:
	case LedgerDynamoDB:
		if c.Ledger.Table == "" {
			return fmt.Errorf("%w: ledger.table is required for dynamodb", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedBackend, c.Ledger.Backend)
	}
	return nil
}

// Location resolves the time zone used for calendar fields.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ByDataset maps dataset names to their relative output paths.
func (t TablePaths) ByDataset() map[string]string {
	return map[string]string{
		"songs":     t.Songs,
		"artists":   t.Artists,
		"users":     t.Users,
		"time":      t.Time,
		"songplays": t.Songplays,
	}
}
