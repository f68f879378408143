package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"stays_observer/api"
	"stays_observer/config"
	"stays_observer/httputil"
	"stays_observer/logging"
	"stays_observer/scheduler"
	"stays_observer/services"
	"stays_observer/stays"
	"stays_observer/storage"
	"stays_observer/workers"
)

var (
	refreshOnce = flag.Bool("refresh", false, "Run one refresh, print a summary and exit")
	addr        = flag.String("addr", "", "HTTP listen address (overrides HTTP_ADDR)")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}

	logFile, err := logging.Setup(cfg.LogFile)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}
	zl := logging.NewLogger(cfg.Env, cfg.LogLevel, logFile)
	defer zl.Sync()
	logger := zl.Sugar()

	logger.Info("Starting stays_observer...")

	cfgErr := cfg.Validate()
	if cfgErr != nil {
		logger.Errorw("Configuration invalid", "error", cfgErr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Errorw("Failed to open SQLite", "error", err)
		return 1
	}
	defer sqliteStore.Close()
	logger.Infow("SQLite database", "path", cfg.DBPath)

	var snapshotKV storage.SnapshotKV = sqliteStore
	if cfg.Snapshot.Backend == "redis" {
		redisKV := storage.NewRedisKV(storage.NewRedisClient(cfg.Redis))
		defer redisKV.Close()
		snapshotKV = redisKV
		logger.Infow("Snapshot backend: redis", "addr", cfg.Redis.Addr)
	}
	snapshots := storage.NewSnapshotStore(snapshotKV, config.SnapshotKey, logger.Named("snapshot"))

	clients := httputil.NewClients(&cfg.Proxy)
	clock := clockwork.NewRealClock()
	runs := services.NewRunLog(sqliteStore, logger)

	client := stays.NewClient(cfg.Stays, clients.Upstream, logger.Named("stays"))
	details := workers.NewDetailFetcher(client, clock, logger.Named("details"), runs.Func())
	listings := workers.NewListingResolver(client, clock, logger.Named("listings"), runs.Func())
	enricher := services.NewEnrichmentService(details, listings, services.EnrichmentOptions{
		BatchSize:    cfg.Fetch.BatchSize,
		DetailDelay:  cfg.Fetch.DetailDelay,
		ListingDelay: cfg.Fetch.ListingDelay,
	}, logger.Named("enrichment"))

	store := services.NewDataStore(client, enricher, snapshots, runs, clock, logger.Named("store"), services.DataStoreOptions{
		DaysBack:   cfg.Fetch.DaysBack,
		DaysAhead:  cfg.Fetch.DaysAhead,
		ListingIDs: cfg.Stays.ListingIDs,
		ConfigErr:  cfgErr,
	})
	health := services.NewHealthService(store, clock)
	health.AddBackend("snapshot", snapshots)

	if cfg.Archive.DatabaseURL != "" {
		pgStore, err := storage.NewPostgresStore(ctx, cfg.Archive.DatabaseURL)
		if err != nil {
			logger.Warnw("Archive disabled, could not connect to Postgres", "error", err)
		} else {
			defer pgStore.Close()
			store.AddSink(pgStore)
			health.AddBackend("archive", pgStore)
			logger.Infow("Connected to Postgres", "url", maskConnectionString(cfg.Archive.DatabaseURL))
		}
	}

	if cfg.S3.Bucket != "" {
		uploader, err := storage.NewS3Uploader(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		}, clients.Backup)
		if err != nil {
			logger.Warnw("Snapshot backup disabled", "error", err)
		} else {
			store.AddSink(storage.NewSnapshotBackup(uploader, cfg.S3.Prefix))
			logger.Infow("Snapshot backup enabled", "bucket", cfg.S3.Bucket, "prefix", cfg.S3.Prefix)
		}
	}

	if *refreshOnce {
		return runOnce(ctx, store, logger)
	}

	sched := scheduler.New(cfg.Scheduler, store, sqliteStore, clock, logger.Named("scheduler"))

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	views := services.NewViews(store, cfg.Platforms, clock)
	router := api.NewRouter(api.NewHandler(store, views, health, logger.Named("api")), logger.Named("http"))

	listenAddr := cfg.HTTP.Addr
	if *addr != "" {
		listenAddr = *addr
	}
	srv := &http.Server{Addr: listenAddr, Handler: router}
	go func() {
		logger.Infow("HTTP server listening", "addr", listenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("HTTP server failed", "error", err)
		}
	}()

	// The server is already answering while the cold start fetches, so the
	// kiosk sees loading instead of a refused connection.
	go startRefreshing(ctx, store, sched, logger)

	logger.Info("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down...")
	cancel()
	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("HTTP shutdown error", "error", err)
	}
	logger.Info("Goodbye!")
	return 0
}

// startRefreshing hydrates or cold-starts the store, then arms the schedule so
// the first periodic tick falls one interval after that fetch.
func startRefreshing(ctx context.Context, store *services.DataStore, sched *scheduler.Scheduler, logger *zap.SugaredLogger) {
	if err := store.Start(ctx); err != nil {
		logger.Errorw("Initial refresh failed", "error", err)
	}
	if err := sched.Start(ctx); err != nil {
		logger.Errorw("Scheduler not started", "error", err)
	}
}

func runOnce(ctx context.Context, store *services.DataStore, logger *zap.SugaredLogger) int {
	logger.Info("Running refresh...")
	if err := store.Refresh(ctx, services.RefreshOptions{Force: true, Trigger: "cli"}); err != nil {
		logger.Errorw("Refresh failed", "error", services.UserMessage(err))
		return 1
	}
	st := store.Status()
	fmt.Printf("bookings=%d listings=%d lastFetchTime=%s\n",
		st.BookingsCount, st.ListingsCount, time.UnixMilli(*st.LastFetchTime).Format(time.RFC3339))
	return 0
}

// maskConnectionString hides the password in a connection URL for logging.
func maskConnectionString(connStr string) string {
	start := strings.Index(connStr, "://")
	if start < 0 {
		return connStr
	}
	start += 3
	at := strings.LastIndex(connStr, "@")
	if at < start {
		return connStr
	}
	colon := strings.Index(connStr[start:at], ":")
	if colon < 0 {
		return connStr
	}
	return connStr[:start+colon+1] + "****" + connStr[at:]
}
