package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/markstack/markstack/internal/backup"
	"github.com/markstack/markstack/internal/config"
	"github.com/markstack/markstack/internal/engine"
	"github.com/markstack/markstack/internal/gist"
	"github.com/markstack/markstack/internal/httpserver"
	"github.com/markstack/markstack/internal/httpserver/deps"
	"github.com/markstack/markstack/internal/local"
	"github.com/markstack/markstack/internal/logger"
	"github.com/markstack/markstack/internal/redis"
	"github.com/markstack/markstack/internal/scheduler"
	redisstore "github.com/markstack/markstack/internal/store/redis"
	"github.com/markstack/markstack/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	localStore  *local.Store
	store       *redisstore.Store
	scheduler   *scheduler.SyncScheduler
	watcher     *scheduler.SettingsWatcher
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.PrettyLog,
		File:   cfg.LogFile,
	})

	// Sync settings are user-editable; a broken file falls back to
	// defaults rather than refusing to start.
	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		loggerClient.Warn("settings file invalid, using defaults",
			logger.String("file", cfg.SettingsFile),
			logger.Error(err))
		settings = config.DefaultSettings()
	}

	// Initialize Redis early - fail fast if unavailable
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}

	store := redisstore.NewStore(redisClient)

	bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	deviceID, err := store.EnsureDeviceID(bootCtx)
	if err != nil {
		loggerClient.Errorf("Failed to establish device id: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("device id established", logger.String("device_id", deviceID))

	// Resume from the persisted snapshot; a fresh install starts empty.
	snap, err := store.LoadSnapshot(bootCtx)
	if err != nil {
		loggerClient.Warn("failed to load persisted snapshot, starting empty",
			logger.Error(err))
	}
	localStore := local.New(snap)

	gistClient := gist.New(gist.Options{
		BaseURL:          cfg.GistAPIURL,
		Timeout:          cfg.HTTPTimeout,
		MaxAttempts:      cfg.MaxAttempts,
		MaxRateLimitWait: cfg.RateLimitMaxWait,
	}, loggerClient)
	if cfg.GithubToken != "" {
		gistClient.Authenticate(cfg.GithubToken)
		loggerClient.Info("remote store credential loaded from environment")
	} else {
		loggerClient.Info("no credential configured, sync disabled until authenticated")
	}

	eng := engine.New(gistClient, store, deviceID, loggerClient)
	backups := backup.NewManager(gistClient, store, deviceID, loggerClient)
	sched := scheduler.NewSyncScheduler(eng, localStore, store, backups, settings, loggerClient)
	watcher := scheduler.NewSettingsWatcher(cfg.SettingsFile, sched, loggerClient)

	d := deps.Deps{
		Logger:      loggerClient,
		StartTime:   time.Now(),
		Version:     version.Version,
		Commit:      version.Commit,
		BuildDate:   version.BuildDate,
		GoVersion:   version.GoVersion,
		Scheduler:   sched,
		Engine:      eng,
		Local:       localStore,
		Backups:     backups,
		Gist:        gistClient,
		RedisClient: redisClient,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		localStore:  localStore,
		store:       store,
		scheduler:   sched,
		watcher:     watcher,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting markstack v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("markstack %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the sync scheduler (runs the startup sync when configured).
	a.scheduler.Start(ctx)

	// Settings live-reload is best effort.
	if err := a.watcher.Start(); err != nil {
		a.logger.Warn("settings watcher unavailable", logger.Error(err))
		a.watcher = nil
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.scheduler.Stop()
	if a.watcher != nil {
		a.watcher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	// Final chance to push local edits before the process dies.
	a.scheduler.BeforeClose(shutdownCtx)

	// Persist the last-known snapshot regardless of how the final sync went.
	if err := a.store.SaveSnapshot(shutdownCtx, a.localStore.Snapshot()); err != nil {
		a.logger.Warn("failed to persist snapshot on shutdown", logger.Error(err))
	}

	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ markstack stopped cleanly")
	return nil
}
