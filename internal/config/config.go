package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	DriverSnowflake = "snowflake"
	DriverDuckDB    = "duckdb"
	DriverPostgres  = "postgres"
)

const (
	ArchiveTargetDir = "dir"
	ArchiveTargetS3  = "s3"

	ArchiveFormatCSV     = "csv"
	ArchiveFormatParquet = "parquet"
)

const defaultEnvFile = ".env"

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	Warehouse     WarehouseConfig
	Dune          DuneConfig
	Archive       ArchiveConfig
	Metrics       MetricsConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type WarehouseConfig struct {
	Driver       string
	DSN          string
	Account      string
	User         string
	Password     string
	Warehouse    string
	Database     string
	Schema       string
	Role         string
	LoginTimeout time.Duration
}

type DuneConfig struct {
	BaseURL   string
	APIKey    string
	Namespace string
	Private   bool
	Timeout   time.Duration
}

type ArchiveConfig struct {
	Enabled     bool
	Target      string
	Format      string
	Dir         string
	ObjectStore ObjectStoreConfig
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type MetricsConfig struct {
	TextfilePath string
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

// LoadFromEnv reads an optional dotenv file before resolving the process
// environment. Variables already set in the environment take precedence.
func LoadFromEnv(serviceName string) (Config, error) {
	envFile := defaultEnvFile
	if raw, ok := os.LookupEnv("CHAINPIPE_ENV_FILE"); ok && strings.TrimSpace(raw) != "" {
		envFile = strings.TrimSpace(raw)
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file %q: %w", envFile, err)
	}
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("CHAINPIPE_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid CHAINPIPE_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	appliers := []func() error{
		func() error { return applyString(lookup, "CHAINPIPE_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "CHAINPIPE_WAREHOUSE_DRIVER", &cfg.Warehouse.Driver) },
		func() error { return applyString(lookup, "CHAINPIPE_WAREHOUSE_DSN", &cfg.Warehouse.DSN) },
		func() error {
			return applyDuration(lookup, "CHAINPIPE_WAREHOUSE_LOGIN_TIMEOUT", &cfg.Warehouse.LoginTimeout)
		},
		func() error { return applyString(lookup, "SNOWFLAKE_ACCOUNT", &cfg.Warehouse.Account) },
		func() error { return applyString(lookup, "SNOWFLAKE_USER", &cfg.Warehouse.User) },
		func() error { return applyString(lookup, "SNOWFLAKE_PASSWORD", &cfg.Warehouse.Password) },
		func() error { return applyString(lookup, "SNOWFLAKE_WAREHOUSE", &cfg.Warehouse.Warehouse) },
		func() error { return applyString(lookup, "SNOWFLAKE_DATABASE", &cfg.Warehouse.Database) },
		func() error { return applyString(lookup, "SNOWFLAKE_SCHEMA", &cfg.Warehouse.Schema) },
		func() error { return applyString(lookup, "SNOWFLAKE_ROLE", &cfg.Warehouse.Role) },
		func() error { return applyString(lookup, "DUNE_API_BASE_URL", &cfg.Dune.BaseURL) },
		func() error { return applyString(lookup, "DUNE_API_KEY", &cfg.Dune.APIKey) },
		func() error { return applyString(lookup, "CHAINPIPE_DUNE_NAMESPACE", &cfg.Dune.Namespace) },
		func() error { return applyBool(lookup, "CHAINPIPE_DUNE_PRIVATE", &cfg.Dune.Private) },
		func() error { return applyDuration(lookup, "CHAINPIPE_DUNE_TIMEOUT", &cfg.Dune.Timeout) },
		func() error { return applyBool(lookup, "CHAINPIPE_ARCHIVE_ENABLED", &cfg.Archive.Enabled) },
		func() error { return applyString(lookup, "CHAINPIPE_ARCHIVE_TARGET", &cfg.Archive.Target) },
		func() error { return applyString(lookup, "CHAINPIPE_ARCHIVE_FORMAT", &cfg.Archive.Format) },
		func() error { return applyString(lookup, "CHAINPIPE_ARCHIVE_DIR", &cfg.Archive.Dir) },
		func() error {
			return applyString(lookup, "CHAINPIPE_ARCHIVE_S3_ENDPOINT", &cfg.Archive.ObjectStore.Endpoint)
		},
		func() error {
			return applyString(lookup, "CHAINPIPE_ARCHIVE_S3_REGION", &cfg.Archive.ObjectStore.Region)
		},
		func() error {
			return applyString(lookup, "CHAINPIPE_ARCHIVE_S3_BUCKET", &cfg.Archive.ObjectStore.Bucket)
		},
		func() error {
			return applyString(lookup, "CHAINPIPE_ARCHIVE_S3_ACCESS_KEY", &cfg.Archive.ObjectStore.AccessKeyID)
		},
		func() error {
			return applyString(lookup, "CHAINPIPE_ARCHIVE_S3_SECRET_KEY", &cfg.Archive.ObjectStore.SecretAccessKey)
		},
		func() error {
			return applyBool(lookup, "CHAINPIPE_ARCHIVE_S3_USE_SSL", &cfg.Archive.ObjectStore.UseSSL)
		},
		func() error {
			return applyString(lookup, "CHAINPIPE_ARCHIVE_S3_PREFIX", &cfg.Archive.ObjectStore.Prefix)
		},
		func() error {
			return applyBool(lookup, "CHAINPIPE_ARCHIVE_S3_AUTO_CREATE_BUCKET", &cfg.Archive.ObjectStore.AutoCreateBucket)
		},
		func() error { return applyString(lookup, "CHAINPIPE_METRICS_TEXTFILE", &cfg.Metrics.TextfilePath) },
		func() error { return applyBool(lookup, "CHAINPIPE_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "CHAINPIPE_LOG_LEVEL", &cfg.Observability.LogLevel) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	cfg.Warehouse.Driver = strings.ToLower(cfg.Warehouse.Driver)
	cfg.Archive.Target = strings.ToLower(cfg.Archive.Target)
	cfg.Archive.Format = strings.ToLower(cfg.Archive.Format)

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if err := validateDriver(cfg.Warehouse.Driver); err != nil {
		return Config{}, err
	}
	if cfg.Dune.Namespace == "" {
		return Config{}, fmt.Errorf("CHAINPIPE_DUNE_NAMESPACE must not be empty")
	}
	if cfg.Archive.Enabled {
		if err := validateArchive(cfg.Archive); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "chainpipe"},
		Warehouse: WarehouseConfig{
			Driver:       DriverSnowflake,
			LoginTimeout: 60 * time.Second,
		},
		Dune: DuneConfig{
			BaseURL:   "https://api.dune.com",
			Namespace: "uniswap_fnd",
			Private:   true,
			Timeout:   5 * time.Minute,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Target:  ArchiveTargetDir,
			Format:  ArchiveFormatCSV,
			Dir:     "snapshots",
			ObjectStore: ObjectStoreConfig{
				Endpoint:         "localhost:9000",
				Region:           "us-east-1",
				Bucket:           "chainpipe",
				AccessKeyID:      "minio",
				SecretAccessKey:  "miniostorage",
				UseSSL:           false,
				AutoCreateBucket: true,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  false,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Observability.LogJSON = true
		cfg.Archive.ObjectStore.UseSSL = true
		cfg.Archive.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func validateDriver(driver string) error {
	switch driver {
	case DriverSnowflake, DriverPostgres, DriverDuckDB:
		return nil
	default:
		return fmt.Errorf("invalid CHAINPIPE_WAREHOUSE_DRIVER: %q", driver)
	}
}

// Validate checks the connection settings of the selected driver. Load leaves
// this to the commands that open a connection.
func (cfg WarehouseConfig) Validate() error {
	if err := validateDriver(cfg.Driver); err != nil {
		return err
	}
	switch cfg.Driver {
	case DriverSnowflake:
		required := []struct {
			key   string
			value string
		}{
			{"SNOWFLAKE_USER", cfg.User},
			{"SNOWFLAKE_PASSWORD", cfg.Password},
			{"SNOWFLAKE_ACCOUNT", cfg.Account},
			{"SNOWFLAKE_WAREHOUSE", cfg.Warehouse},
			{"SNOWFLAKE_DATABASE", cfg.Database},
			{"SNOWFLAKE_SCHEMA", cfg.Schema},
		}
		for _, item := range required {
			if item.value == "" {
				return fmt.Errorf("%s is required", item.key)
			}
		}
	case DriverPostgres:
		if cfg.DSN == "" {
			return fmt.Errorf("CHAINPIPE_WAREHOUSE_DSN is required for driver %q", cfg.Driver)
		}
	}
	return nil
}

func validateArchive(cfg ArchiveConfig) error {
	switch cfg.Format {
	case ArchiveFormatCSV, ArchiveFormatParquet:
	default:
		return fmt.Errorf("invalid CHAINPIPE_ARCHIVE_FORMAT: %q", cfg.Format)
	}
	switch cfg.Target {
	case ArchiveTargetDir:
		if cfg.Dir == "" {
			return fmt.Errorf("CHAINPIPE_ARCHIVE_DIR is required for target %q", cfg.Target)
		}
	case ArchiveTargetS3:
		if cfg.ObjectStore.Bucket == "" {
			return fmt.Errorf("CHAINPIPE_ARCHIVE_S3_BUCKET is required for target %q", cfg.Target)
		}
	default:
		return fmt.Errorf("invalid CHAINPIPE_ARCHIVE_TARGET: %q", cfg.Target)
	}
	return nil
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
