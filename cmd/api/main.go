package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/studio-billing/internal/config"
	"github.com/Dan9191/studio-billing/internal/handler"
	"github.com/Dan9191/studio-billing/internal/integrations/mercadopago"
	"github.com/Dan9191/studio-billing/internal/metrics"
	"github.com/Dan9191/studio-billing/internal/repository"
	"github.com/Dan9191/studio-billing/internal/service"
	"github.com/Dan9191/studio-billing/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize layers
	repo := repository.NewRepository(db)
	mpClient := mercadopago.NewClient(cfg, logger)
	opts := []service.Option{service.WithMetrics(m)}
	if cfg.SMTPEnabled() {
		opts = append(opts, service.WithMailer(email.NewSender(cfg, logger)))
	}
	svc := service.NewService(repo, mpClient, logger, cfg, opts...)
	h := handler.NewHandler(svc, logger, cfg)
	router := handler.NewRouter(h, cfg, m, logger)

	// Scheduled jobs
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatalf("Invalid timezone: %v", err)
	}
	scheduler := cron.New(cron.WithLocation(loc))
	if _, err := scheduler.AddFunc(cfg.SweepSchedule, func() {
		today := svc.Today()
		n, err := svc.Sweep(context.Background(), today)
		if err != nil {
			logger.Errorf("Overdue sweep failed: %v", err)
			return
		}
		logger.Infof("Overdue sweep for %s marked %d fees", today.Format("2006-01-02"), n)
	}); err != nil {
		logger.Fatalf("Failed to schedule overdue sweep: %v", err)
	}
	if cfg.BillingCycleSchedule != "" {
		if _, err := scheduler.AddFunc(cfg.BillingCycleSchedule, func() {
			if _, err := svc.GenerateBillingCycle(context.Background(), svc.Today()); err != nil {
				logger.Errorf("Billing cycle generation failed: %v", err)
			}
		}); err != nil {
			logger.Fatalf("Failed to schedule billing cycle: %v", err)
		}
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("Starting server on %s", addr)
		scheduler.Start()
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		jobs := scheduler.Stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		select {
		case <-jobs.Done():
		case <-shutdownCtx.Done():
			logger.Warn("Scheduled job still running at shutdown")
		}
		svc.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("%v", err)
	}
	logger.Info("Server stopped")
}
