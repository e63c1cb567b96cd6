// Package config loads the tracker configuration from YAML with SCHMERZ_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"schmerzverlauf/internal/blob"
	"schmerzverlauf/internal/storage"
	"schmerzverlauf/internal/table"
)

// Config holds every tracker setting.
type Config struct {
	Listen  string        `yaml:"listen"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Blob    BlobConfig    `yaml:"blob"`
	Filter  FilterConfig  `yaml:"filter"`
	Export  ExportConfig  `yaml:"export"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// AuthConfig holds the shared login secret. An empty secret rejects every login.
type AuthConfig struct {
	Secret string `yaml:"secret"`
}

// StorageConfig selects where the two tables live and how they are encoded.
type StorageConfig struct {
	Driver      string `yaml:"driver"` // file, blob, sqlite, postgres, memory
	DataDir     string `yaml:"data_dir"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	// Delimiter is ",", ";" or "tab"; empty writes commas and sniffs on read.
	Delimiter string `yaml:"delimiter"`
	WriteBOM  bool   `yaml:"write_bom"`
}

// BlobConfig configures the object store used for archived exports and the
// blob table driver.
type BlobConfig struct {
	Driver string   `yaml:"driver"` // fs, s3, memory
	Root   string   `yaml:"root"`
	S3     S3Config `yaml:"s3"`
}

// S3Config holds S3 or MinIO connection settings.
type S3Config struct {
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
}

// FilterConfig sets the default name matching.
type FilterConfig struct {
	Match string `yaml:"match"` // exact, contains
}

// ExportConfig tunes the printable report.
type ExportConfig struct {
	RowsPerPage int `yaml:"rows_per_page"`
}

// MetricsConfig controls the Prometheus endpoint of the server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Storage: StorageConfig{
			Driver:     string(storage.DriverFile),
			DataDir:    "data",
			SQLitePath: "data/schmerzverlauf.db",
		},
		Blob: BlobConfig{
			Driver: string(blob.DriverFilesystem),
			Root:   "data/blobs",
			S3:     S3Config{Region: "eu-central-1"},
		},
		Filter:  FilterConfig{Match: string(table.MatchExact)},
		Export:  ExportConfig{RowsPerPage: 30},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file, or an empty path, yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// EnvPrefix prefixes every override variable.
const EnvPrefix = "SCHMERZ_"

func (c *Config) applyEnvOverrides() {
	strs := map[string]*string{
		"LISTEN":               &c.Listen,
		"SECRET":               &c.Auth.Secret,
		"STORAGE_DRIVER":       &c.Storage.Driver,
		"DATA_DIR":             &c.Storage.DataDir,
		"SQLITE_PATH":          &c.Storage.SQLitePath,
		"POSTGRES_DSN":         &c.Storage.PostgresDSN,
		"DELIMITER":            &c.Storage.Delimiter,
		"BLOB_DRIVER":          &c.Blob.Driver,
		"BLOB_ROOT":            &c.Blob.Root,
		"S3_REGION":            &c.Blob.S3.Region,
		"S3_BUCKET":            &c.Blob.S3.Bucket,
		"S3_ENDPOINT":          &c.Blob.S3.Endpoint,
		"S3_ACCESS_KEY_ID":     &c.Blob.S3.AccessKeyID,
		"S3_SECRET_ACCESS_KEY": &c.Blob.S3.SecretAccessKey,
		"MATCH":                &c.Filter.Match,
		"LOG_LEVEL":            &c.Logging.Level,
		"LOG_FORMAT":           &c.Logging.Format,
	}
	for key, dst := range strs {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	bools := map[string]*bool{
		"WRITE_BOM":       &c.Storage.WriteBOM,
		"S3_PATH_STYLE":   &c.Blob.S3.PathStyle,
		"METRICS_ENABLED": &c.Metrics.Enabled,
	}
	for key, dst := range bools {
		switch strings.ToLower(os.Getenv(EnvPrefix + key)) {
		case "1", "true", "yes":
			*dst = true
		case "0", "false", "no":
			*dst = false
		}
	}
}

// Validate checks driver names and driver-specific settings.
func (c *Config) Validate() error {
	var errs []error
	driver, err := storage.ParseDriver(c.Storage.Driver)
	if err != nil {
		errs = append(errs, err)
	}
	switch driver {
	case storage.DriverSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path required for sqlite driver"))
		}
	case storage.DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn required for postgres driver"))
		}
	}
	if _, err := c.TableFormat(); err != nil {
		errs = append(errs, err)
	}
	switch blob.Driver(c.Blob.Driver) {
	case "", blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket required for s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}
	if _, err := table.ParseMatchMode(c.Filter.Match); err != nil {
		errs = append(errs, err)
	}
	if c.Export.RowsPerPage < 0 {
		errs = append(errs, errors.New("export.rows_per_page must not be negative"))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// StorageOptions maps the storage section onto storage.Config.
func (c *Config) StorageOptions() storage.Config {
	return storage.Config{
		Driver:      storage.Driver(c.Storage.Driver),
		DataDir:     c.Storage.DataDir,
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
	}
}

// BlobOptions maps the blob section onto blob.Config.
func (c *Config) BlobOptions() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		FSRoot: c.Blob.Root,
		S3: blob.S3Config{
			Region:          c.Blob.S3.Region,
			Bucket:          c.Blob.S3.Bucket,
			Endpoint:        c.Blob.S3.Endpoint,
			AccessKeyID:     c.Blob.S3.AccessKeyID,
			SecretAccessKey: c.Blob.S3.SecretAccessKey,
			PathStyle:       c.Blob.S3.PathStyle,
		},
	}
}

// TableFormat returns the delimited encoding of the stored tables.
func (c *Config) TableFormat() (table.Format, error) {
	f := table.Format{WriteBOM: c.Storage.WriteBOM}
	switch d := c.Storage.Delimiter; strings.ToLower(d) {
	case "":
	case "tab", `\t`, "\t":
		f.Delimiter = '\t'
	case ",", ";":
		f.Delimiter, _ = utf8.DecodeRuneInString(d)
	default:
		return table.Format{}, fmt.Errorf("storage.delimiter %q must be ',', ';' or tab", d)
	}
	return f, nil
}

// MatchMode returns the configured default name matching.
func (c *Config) MatchMode() table.MatchMode {
	m, err := table.ParseMatchMode(c.Filter.Match)
	if err != nil {
		return table.MatchExact
	}
	return m
}
