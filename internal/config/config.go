// Package config loads the server's runtime configuration from an optional
// .env file, environment variables, and command-line flags, with flags
// taking precedence over the environment and the environment taking
// precedence over defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

// Config is the fully-resolved set of settings the server boots with.
type Config struct {
	Server  Server
	CORS    CORS
	Cache   Cache
	Tiles   Tiles
	Metrics Metrics
}

// Server holds the HTTP listener settings.
type Server struct {
	Host        string
	Port        string
	Environment string
}

// CORS holds the allowed-origins list for the public tile API.
type CORS struct {
	AllowedOrigins []string
}

// Cache holds the source-tile cache store settings (spec.md's db_name /
// factory_cache_ttl).
type Cache struct {
	DBName string
	TTL    time.Duration
}

// Tiles holds the on-disk/distributed terrain-tile store and dataset
// settings.
type Tiles struct {
	CachePath        string
	DatasetConfigPath string
	NoDynamic        bool
	Unsafe           bool
	RedisURL         string
	S3Bucket         string
	S3Prefix         string
}

// Metrics holds the admin surface (Prometheus + health) listener address,
// split from the public tile-serving port.
type Metrics struct {
	Addr string
}

// Load resolves a Config from, in increasing precedence: built-in
// defaults, a ".env" file in the working directory (if present), the
// process environment, then any flags in fs that were explicitly set.
// fs may be nil, in which case only defaults and the environment apply.
func Load(fs *flag.FlagSet) (*Config, error) {
	// A missing .env file is not an error; it's absent in production
	// where the environment is set directly.
	_ = godotenv.Load()

	ttlSeconds, err := intValue(fs, "factory-cache-ttl", "CTOD_FACTORY_CACHE_TTL", 15)
	if err != nil {
		return nil, fmt.Errorf("config: factory-cache-ttl: %w", err)
	}

	cfg := &Config{
		Server: Server{
			Host:        stringValue(fs, "host", "CTOD_HOST", "0.0.0.0"),
			Port:        stringValue(fs, "port", "CTOD_PORT", "5000"),
			Environment: stringValue(fs, "environment", "CTOD_ENVIRONMENT", "production"),
		},
		CORS: CORS{
			AllowedOrigins: splitCSV(stringValue(fs, "cors-allow-origins", "CTOD_CORS_ALLOW_ORIGINS", "*")),
		},
		Cache: Cache{
			DBName: stringValue(fs, "db-name", "CTOD_DB_NAME", "factory_cache.db"),
			TTL:    time.Duration(ttlSeconds) * time.Second,
		},
		Tiles: Tiles{
			CachePath:        stringValue(fs, "tile-cache-path", "CTOD_TILE_CACHE_PATH", ""),
			DatasetConfigPath: stringValue(fs, "dataset-config-path", "CTOD_DATASET_CONFIG_PATH", "./config/datasets.json"),
			RedisURL:         stringValue(fs, "redis-url", "CTOD_REDIS_URL", ""),
			S3Bucket:         stringValue(fs, "s3-bucket", "CTOD_S3_BUCKET", ""),
			S3Prefix:         stringValue(fs, "s3-prefix", "CTOD_S3_PREFIX", ""),
		},
		Metrics: Metrics{
			Addr: stringValue(fs, "metrics-addr", "CTOD_METRICS_ADDR", ":9090"),
		},
	}

	unsafe, err := boolValue(fs, "unsafe", "CTOD_UNSAFE")
	if err != nil {
		return nil, fmt.Errorf("config: unsafe: %w", err)
	}
	cfg.Tiles.Unsafe = unsafe

	noDynamic, err := boolValue(fs, "no-dynamic", "CTOD_NO_DYNAMIC")
	if err != nil {
		return nil, fmt.Errorf("config: no-dynamic: %w", err)
	}
	cfg.Tiles.NoDynamic = noDynamic

	return cfg, nil
}

// stringValue resolves one setting: flag (if set) > env var (if set) >
// fallback.
func stringValue(fs *flag.FlagSet, flagName, envName, fallback string) string {
	if fs != nil {
		if f := fs.Lookup(flagName); f != nil && f.Changed {
			return f.Value.String()
		}
	}
	if v, ok := lookupEnv(envName); ok {
		return v
	}
	return fallback
}

func intValue(fs *flag.FlagSet, flagName, envName string, fallback int) (int, error) {
	raw := stringValue(fs, flagName, envName, strconv.Itoa(fallback))
	return strconv.Atoi(raw)
}

// boolValue mirrors settings.py's permissive truthy-string parsing
// ("true"/"1"/"t") rather than strconv.ParseBool's stricter set, so
// CTOD_UNSAFE=1 behaves the same way the Python original's os.getenv
// check does.
func boolValue(fs *flag.FlagSet, flagName, envName string) (bool, error) {
	if fs != nil {
		if f := fs.Lookup(flagName); f != nil && f.Changed {
			return strconv.ParseBool(f.Value.String())
		}
	}
	if v, ok := lookupEnv(envName); ok {
		switch strings.ToLower(v) {
		case "true", "1", "t":
			return true, nil
		}
		return false, nil
	}
	return false, nil
}

func lookupEnv(name string) (string, bool) {
	return os.LookupEnv(name)
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
