// Command server runs the Cesium Terrain On-Demand HTTP service: the
// public tile-serving router on Server.Port, and a separate admin mux
// (Prometheus + health) on Metrics.Addr.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jcom-dev/ctod-go/internal/cog"
	"github.com/jcom-dev/ctod-go/internal/config"
	"github.com/jcom-dev/ctod-go/internal/datasetcfg"
	"github.com/jcom-dev/ctod-go/internal/factory"
	"github.com/jcom-dev/ctod-go/internal/generator"
	"github.com/jcom-dev/ctod-go/internal/httpapi"
	"github.com/jcom-dev/ctod-go/internal/sourcecache"
	"github.com/jcom-dev/ctod-go/internal/tilestore"
)

func main() {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve Cesium terrain tiles generated on demand from Cloud Optimized GeoTIFFs",
		RunE:  run,
	}

	fs := cmd.Flags()
	fs.String("host", "0.0.0.0", "listen host")
	fs.String("port", "5000", "listen port")
	fs.String("environment", "production", "deployment environment label")
	fs.String("cors-allow-origins", "*", "comma-separated list of allowed CORS origins")
	fs.String("db-name", "factory_cache.db", "source-tile cache store (\":memory:\" or a sqlite path)")
	fs.Int("factory-cache-ttl", 15, "source-tile cache entry TTL in seconds")
	fs.String("tile-cache-path", "", "on-disk terrain-tile cache root (empty disables the filesystem backend)")
	fs.String("dataset-config-path", "./config/datasets.json", "path to the named-dataset JSON config")
	fs.Bool("no-dynamic", false, "disable the /tiles/dynamic endpoints")
	fs.Bool("unsafe", false, "bypass the safe-zoom guard")
	fs.String("redis-url", "", "redis connection URL; enables the Redis terrain-tile cache backend")
	fs.String("s3-bucket", "", "S3 bucket name; enables the S3 terrain-tile cache backend")
	fs.String("s3-prefix", "", "S3 key prefix for cached terrain tiles")
	fs.String("metrics-addr", ":9090", "listen address for the /metrics and /healthz admin mux")

	if err := cmd.Execute(); err != nil {
		slog.Error("server: fatal", "error", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	datasets := datasetcfg.Load(cfg.Tiles.DatasetConfigPath)

	sourceCache, err := newSourceCache(cfg)
	if err != nil {
		return err
	}
	defer sourceCache.Close()

	store, err := newTileStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	configs := cog.NewConfigLoader()
	var pool *cog.Pool
	pool = cog.NewPool(4, func(sourceID string) (cog.Reader, error) {
		dsCfg, err := configs.Get(sourceID)
		if err != nil {
			return nil, err
		}
		return cog.OpenDataset(dsCfg, pool)
	})
	defer pool.Shutdown()

	f := factory.New(factory.Config{
		Pool:      pool,
		Cache:     sourceCache,
		Generator: generator.New(),
	})
	defer f.Shutdown()

	deps := &httpapi.Deps{
		Factory:   f,
		Pool:      pool,
		Store:     store,
		Datasets:  datasets,
		NoDynamic: cfg.Tiles.NoDynamic,
		Unsafe:    cfg.Tiles.Unsafe,
		StartTime: time.Now(),
	}

	router := httpapi.NewRouter(deps, cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // terrain generation can take longer than a typical API response
		IdleTimeout:  60 * time.Second,
	}

	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	admin := &http.Server{Addr: cfg.Metrics.Addr, Handler: adminMux}

	go func() {
		slog.Info("server: listening", "addr", srv.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server: listen failed", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		slog.Info("server: admin mux listening", "addr", admin.Addr)
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server: admin mux listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_ = admin.Shutdown(ctx)
	return srv.Shutdown(ctx)
}

// newSourceCache picks the source-tile cache implementation from
// cfg.Cache.DBName: ":memory:" or an empty name for the pure in-process
// MemCache, anything else as a SQLite-backed path.
func newSourceCache(cfg *config.Config) (sourcecache.Cache, error) {
	if cfg.Cache.DBName == ":memory:" || cfg.Cache.DBName == "" {
		return sourcecache.NewMemCache(cfg.Cache.TTL), nil
	}
	return sourcecache.OpenSQLCache(cfg.Cache.DBName, cfg.Cache.TTL)
}

// newTileStore picks the terrain-tile cache backend. Exactly one is active:
// Redis wins if configured, then S3, then the filesystem (only when a cache
// path was given), otherwise caching is disabled entirely.
func newTileStore(ctx context.Context, cfg *config.Config) (tilestore.Store, error) {
	switch {
	case cfg.Tiles.RedisURL != "":
		return tilestore.NewRedisStore(ctx, cfg.Tiles.RedisURL)
	case cfg.Tiles.S3Bucket != "":
		return tilestore.NewS3Store(ctx, cfg.Tiles.S3Bucket, cfg.Tiles.S3Prefix)
	case cfg.Tiles.CachePath != "":
		return tilestore.NewFSStore(cfg.Tiles.CachePath), nil
	default:
		return nil, nil
	}
}
