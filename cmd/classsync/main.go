package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/tazhate/classsync/config"
	"github.com/tazhate/classsync/internal/api/handler"
	"github.com/tazhate/classsync/internal/api/router"
	"github.com/tazhate/classsync/internal/auth"
	"github.com/tazhate/classsync/internal/bot"
	"github.com/tazhate/classsync/internal/cache"
	"github.com/tazhate/classsync/internal/calendar"
	"github.com/tazhate/classsync/internal/clients/extractor"
	applogger "github.com/tazhate/classsync/internal/logger"
	"github.com/tazhate/classsync/internal/scheduler"
	"github.com/tazhate/classsync/internal/service"
	"github.com/tazhate/classsync/internal/storage"
)

var cli struct {
	Config string `short:"c" help:"Path to config file. Defaults to ./config.yaml when present." env:"CLASSSYNC_CONFIG"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("classsync"),
		kong.Description("Timetable to calendar sync service."),
	)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.New(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("classsync starting",
		zap.Int("port", cfg.Server.Port),
		zap.String("timezone", cfg.Location.String()),
		zap.String("calendar_provider", cfg.Calendar.Provider),
	)

	store, err := storage.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal("init storage", zap.Error(err))
	}
	defer store.Close()

	// Redis is optional; without it duplicate submissions are not guarded
	var guard service.SubmissionGuard
	var rdb *cache.Client
	if cfg.Redis.Addr != "" {
		rdb, err = cache.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis unavailable, calendar submissions run unguarded", zap.Error(err))
		} else {
			guard = rdb
			defer rdb.Close()
		}
	}

	var sink calendar.Sink
	if s, err := calendar.NewSink(&cfg.Calendar); err != nil {
		logger.Warn("calendar sync disabled", zap.Error(err))
	} else {
		sink = s
	}

	var ex extractor.Extractor
	if c := extractor.NewClient(cfg.Extract.URL, cfg.Extract.APIKey, cfg.Extract.Timeout); c.IsConfigured() {
		ex = c
	} else {
		logger.Warn("timetable extraction disabled: extract.url is not set")
	}

	classSvc := service.NewClassService(store, ex, cfg.Location, logger)
	userSvc := service.NewUserService(store, logger)
	exportSvc := service.NewExportService(store, cfg.Location, logger)
	calendarSvc := service.NewCalendarService(store, sink, guard, service.CalendarOptions{
		Provider:       cfg.Calendar.Provider,
		MaxConcurrency: cfg.Calendar.MaxConcurrency,
		GuardTTL:       cfg.Calendar.GuardTTL,
	}, cfg.Location, logger)

	jwtMgr := auth.NewManager(&cfg.Auth)
	h := handler.NewHandler(handler.Services{
		Class:    classSvc,
		Calendar: calendarSvc,
		Export:   exportSvc,
		User:     userSvc,
		DB:       store,
	}, cfg.Server.MaxUploadBytes(), time.Now)
	engine := router.Setup(cfg, h, jwtMgr, userSvc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sched *scheduler.Scheduler
	if cfg.Telegram.Token != "" {
		tgBot, err := bot.New(cfg.Telegram.Token, logger)
		if err != nil {
			logger.Error("telegram disabled", zap.Error(err))
		} else {
			sched = scheduler.New(store, cfg.Location, cfg.Telegram.DigestTime, logger)
			sched.SetSender(tgBot)
			tgBot.SetTodaySource(classSvc)

			go tgBot.Run(ctx)
			go func() {
				if err := sched.Start(ctx); err != nil {
					logger.Error("scheduler", zap.Error(err))
				}
			}()
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}
	if sched != nil {
		sched.Stop()
	}

	logger.Info("classsync stopped")
}
