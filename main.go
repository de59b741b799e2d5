package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"autosender/internal/accounts"
	"autosender/internal/auth"
	"autosender/internal/broadcast"
	"autosender/internal/config"
	"autosender/internal/middleware"
	"autosender/pkg/logger"
	"autosender/pkg/metrics"
	"autosender/pkg/storage"
	"autosender/pkg/telegram"
	"autosender/pkg/telegram/autosend"
	"autosender/pkg/telegram/login"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info")
		bootLog.Fatal().Err(err).Msg("[MAIN] некорректная конфигурация")
	}
	log := logger.New(cfg.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, err := storage.NewDirectory(cfg.AccountsDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("[MAIN] не удалось открыть каталог аккаунтов")
	}
	defer dir.Close()

	// Хранилище сессий gotd: файлы в каталоге аккаунта или таблица в Postgres
	var sessions storage.SessionBackend = storage.FileSessions{Dir: dir}
	if cfg.SessionStorage == "postgres" {
		pg, err := storage.OpenPostgresSessions(ctx, cfg.PostgresDSN, log)
		if err != nil {
			log.Fatal().Err(err).Msg("[MAIN] не удалось подключиться к Postgres")
		}
		defer pg.Close()
		sessions = pg
	}

	transport := telegram.NewTransport(telegram.Config{
		APIID:     cfg.APIID,
		APIHash:   cfg.APIHash,
		Proxy:     cfg.Proxy(),
		RateLimit: cfg.RateLimit,
	}, sessions, log)

	m := metrics.New(prometheus.DefaultRegisterer)
	pool := autosend.NewPool(autosend.FromTransport(transport), m, log)
	engine := autosend.NewEngine(autosend.FromDirectory(dir), pool, m, cfg.DelayBetweenSend, log)
	scheduler := autosend.NewScheduler(dir, engine, autosend.SchedulerConfig{
		CheckInterval: cfg.CheckInterval,
		ErrorCooldown: cfg.ErrorCooldown,
	}, m, log)
	svc := autosend.NewService(autosend.FromDirectory(dir), pool, engine, log)
	wizard := login.NewWizard(login.FromTransport(transport), svc, cfg.LoginTTL, log)

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Start(ctx)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(svc, wizard, cfg.APIToken, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("[MAIN] HTTP-сервер запущен")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("[MAIN] HTTP-сервер остановлен с ошибкой")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("[MAIN] получен сигнал остановки")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("[MAIN] ошибка остановки HTTP-сервера")
	}
	scheduler.Stop()
	<-schedulerDone
	pool.CleanupAll(shutdownCtx)
	log.Info().Msg("[MAIN] остановлено")
}

// Настройка маршрутов
func setupRouter(svc *autosend.Service, wizard *login.Wizard, token string, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/", middleware.AuthRequired(token))

	accountsGroup := api.Group("/accounts")
	accounts.SetupRoutes(accountsGroup, svc, log)
	auth.SetupRoutes(accountsGroup, api.Group("/login"), svc, wizard, log)
	broadcast.SetupRoutes(accountsGroup.Group("/:id"), svc, log)

	log.Info().Msg("[ROUTER] маршруты зарегистрированы")
	return r
}
