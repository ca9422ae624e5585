package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grievance/backend/internal/api/handler"
	"grievance/backend/internal/complaint"
	"grievance/backend/internal/config"
	"grievance/backend/internal/localization"
	"grievance/backend/internal/notify"
	"grievance/backend/internal/obs"
	"grievance/backend/internal/realtime"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/telegram"
	"grievance/backend/internal/timeline"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func setupStore(cfg config.Config, logger *zap.Logger) storage.Storage {
	if cfg.StoreDriver == "memory" {
		logger.Warn("using in-memory store; data is lost on exit")
		return storage.NewMemory()
	}

	db, err := storage.Open(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("failed to connect PostgreSQL", zap.Error(err))
	}
	if err := storage.AutoMigrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database connected, migrations complete")
	return storage.NewStorageService(db)
}

// setupRedis returns nil when REDIS_ADDR is unset; the hub then delivers
// in-process only.
func setupRedis(ctx context.Context, cfg config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Info("redis not configured, notifications stay in-process")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect Redis", zap.Error(err))
	}
	return rdb
}

func setupTelegram(ctx context.Context, cfg config.Config, store storage.Storage, hub *realtime.Hub, logger *zap.Logger) {
	if cfg.TelegramBotToken == "" {
		return
	}
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Error("telegram disabled", zap.Error(err))
		return
	}
	localizer, err := localization.NewLocalizer(cfg.LocalesDir)
	if err != nil {
		logger.Warn("locales dir unreadable, using bundled translations", zap.String("dir", cfg.LocalesDir), zap.Error(err))
		if localizer, err = localization.Bundled(); err != nil {
			logger.Error("telegram disabled", zap.Error(err))
			return
		}
	}
	go telegram.NewRegistry(store, hub, bot, localizer, logger.Named("telegram")).Run(ctx, cfg.TelegramSyncInterval)
}

func main() {
	cfg, envLoaded := config.Load()
	logger, err := obs.NewLogger(obs.LogConfig{Level: cfg.LogLevel, Dev: cfg.LogDev})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	if !envLoaded {
		logger.Debug("no .env file loaded")
	}
	obs.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := setupStore(cfg, logger)
	rdb := setupRedis(ctx, cfg, logger)

	hub := realtime.NewHub(rdb, logger)
	go hub.Run(ctx)

	setupTelegram(ctx, cfg, store, hub, logger)

	dispatcher := notify.NewDispatcher(store, hub, logger)
	events := timeline.New(store, dispatcher, logger)
	complaints := complaint.NewService(store, events, logger)

	if !cfg.LogDev {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	h := handler.NewHandler(complaints, store, hub, handler.NewAuth(cfg.JWTSecret, cfg.JWTTTL), logger)
	h.Register(r, handler.RateLimit(cfg.RateLimit, cfg.RateBurst))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	cancel()
	if rdb != nil {
		_ = rdb.Close()
	}
}
