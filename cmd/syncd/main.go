package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"coursebridge/internal/app"
	"coursebridge/internal/config"
	"coursebridge/internal/contentsync"
	"coursebridge/internal/enroll"
	"coursebridge/internal/lms"
	"coursebridge/internal/ratelimit"
	"coursebridge/internal/reconcile"
	"coursebridge/internal/scheduler"
	"coursebridge/internal/server"
	"coursebridge/internal/ssotoken"
	"coursebridge/internal/storage"
	"coursebridge/internal/store"
	"coursebridge/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	lmsTimeout, err := config.ParseDuration(cfg.LMSTimeout, 30*time.Second)
	if err != nil {
		log.Fatalf("failed to parse lmsTimeout: %v", err)
	}
	syncInterval, err := config.ParseDuration(cfg.SyncInterval, time.Hour)
	if err != nil {
		log.Fatalf("failed to parse syncInterval: %v", err)
	}
	statsInterval, err := config.ParseDuration(cfg.StatsInterval, 30*time.Minute)
	if err != nil {
		log.Fatalf("failed to parse statsInterval: %v", err)
	}
	tokenTTL, err := config.ParseDuration(cfg.SSOTokenTTL, time.Minute)
	if err != nil {
		log.Fatalf("failed to parse ssoTokenTTL: %v", err)
	}

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init postgres store: %v", err)
	}

	var images storage.ImageStore
	if cfg.ImageStorage == "s3" {
		images, err = storage.NewMinioImageStore(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
	} else {
		images, err = storage.NewFileImageStore(cfg.ImageDir)
	}
	if err != nil {
		log.Fatalf("failed to init image storage: %v", err)
	}

	var limiter *ratelimit.CounterStore
	if cfg.RedisAddr != "" && cfg.SSORateLimitPerMinute > 0 {
		limiter, err = ratelimit.NewCounterStore(cfg.RedisAddr, cfg.RedisPassword, "coursebridge:sso", cfg.SSORateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init sso counter store: %v", err)
		}
	} else {
		slog.Warn("sso rate limiting disabled (no redisAddr or limit)")
	}

	minter, err := ssotoken.New(ssotoken.Config{
		Secret:   cfg.SSOTokenSecret,
		Issuer:   cfg.SSOTokenIssuer,
		Audience: cfg.SSOTokenAudience,
		TTL:      tokenTTL,
		LoginURL: cfg.LMSLoginURL,
	})
	if err != nil {
		log.Fatalf("failed to init sso token minter: %v", err)
	}

	client := lms.NewClient(cfg.LMSBaseURL, cfg.LMSToken, lmsTimeout)
	reconciler := reconcile.New(client, dataStore, cfg.PasswordSalt)
	coordinator := enroll.New(client, dataStore)
	syncService := contentsync.New(client, dataStore, images, cfg.SyncConcurrency)

	appCore, err := app.New(app.Config{
		Store:       dataStore,
		Reconciler:  reconciler,
		Coordinator: coordinator,
		Minter:      minter,
		Limiter:     limiter,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	ctx := context.Background()
	sched := scheduler.New()
	sched.Every(ctx, scheduler.TaskFullSync, syncInterval, syncService.RunFullPass)
	sched.Every(ctx, scheduler.TaskStats, statsInterval, syncService.RecomputeStats)
	defer sched.Stop()

	httpServer := server.New(server.Config{
		App:       appCore,
		Scheduler: sched,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
