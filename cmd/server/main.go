package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"salakbook/internal/config"
	"salakbook/internal/repository"
	"salakbook/internal/repository/memory"
	"salakbook/internal/repository/mongodb"
	"salakbook/internal/repository/sheets"
	"salakbook/internal/scheduler"
	"salakbook/internal/server/handlers"
	"salakbook/internal/server/router"
	allocationsvc "salakbook/internal/service/allocation"
	productionsvc "salakbook/internal/service/production"
	reportingsvc "salakbook/internal/service/reporting"
	revenuesvc "salakbook/internal/service/revenue"
	userssvc "salakbook/internal/service/users"
	"salakbook/internal/session"
	"salakbook/pkg/clients/marketprice"
	"salakbook/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	// Reachability is checked once at startup; per-call failures later fall
	// back through the selector instead of disabling the durable backend.
	var durable repository.Backend
	var mongoBackend *mongodb.Backend
	if cfg.MongoDB.URI != "" {
		connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoBackend, err = mongodb.New(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		cancel()
		if err != nil {
			baseLogger.Warn("durable backend unreachable, running on in-memory fallback", zap.Error(err))
		} else {
			durable = mongoBackend
			defer func() {
				if err := mongoBackend.Close(context.Background()); err != nil {
					baseLogger.Error("failed to close mongodb connection", zap.Error(err))
				}
			}()
		}
	} else {
		baseLogger.Warn("MONGODB_URI not set, running on in-memory backend only")
	}

	selector := repository.NewSelector(durable, memory.New(), baseLogger.Named("repo.selector"))
	baseLogger.Info("backend selected", zap.String("backend", selector.Active()))

	sessions := session.NewManager(selector)

	var exporter reportingsvc.SummaryExporter
	if cfg.Sheets.SpreadsheetID != "" {
		sheetsExporter, err := sheets.NewExporter(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets exporter", zap.Error(err))
		}
		exporter = sheetsExporter
	}

	productionStore := productionsvc.NewStore(baseLogger.Named("svc.production"))
	revenueStore := revenuesvc.NewStore(baseLogger.Named("svc.revenue"))
	engine := allocationsvc.NewEngine(cfg.Farm.KgPerBakul)
	usersService := userssvc.NewService(selector, baseLogger.Named("svc.users"))
	tokenService := userssvc.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	reportingService := reportingsvc.NewService(productionStore, exporter, cfg.Farm.KgPerBakul, baseLogger.Named("svc.reporting"))

	var priceClient marketprice.Client
	if cfg.Pricing.BaseURL != "" {
		priceClient = marketprice.NewClient(cfg.Pricing)
		baseLogger.Info("reference price client enabled")
	} else {
		baseLogger.Warn("price api base url missing, reference rates disabled")
	}

	authHandler := handlers.NewAuthHandler(usersService, tokenService, sessions, baseLogger.Named("handlers.auth"))
	productionHandler := handlers.NewProductionHandler(productionStore, baseLogger.Named("handlers.production"))
	revenueHandler := handlers.NewRevenueHandler(revenueStore, engine, priceClient, baseLogger.Named("handlers.revenue"))
	engineRouter := router.New(authHandler, productionHandler, revenueHandler, tokenService, sessions, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Reporting, reportingService, usersService, sessions, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engineRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
