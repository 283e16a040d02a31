// Command sweeper marks past-due fees as overdue. By default it runs once
// and exits; with -schedule it keeps running on a cron schedule. It always
// exits with status 0 so that a failed run never blocks the scheduler.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/studio-billing/internal/config"
	"github.com/Dan9191/studio-billing/internal/repository"
	"github.com/Dan9191/studio-billing/internal/service"
	"github.com/Dan9191/studio-billing/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var (
	asOf     = flag.String("as-of", "", "Date to sweep for (YYYY-MM-DD). Defaults to today in TIMEZONE")
	schedule = flag.String("schedule", "", "Cron schedule; when set the sweeper keeps running")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Errorf("Failed to load config: %v", err)
		return
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		return
	}
	defer db.Close()

	var opts []service.Option
	if cfg.SMTPEnabled() {
		opts = append(opts, service.WithMailer(email.NewSender(cfg, logger)))
	}
	// sweeping never talks to the payment processor
	svc := service.NewService(repository.NewRepository(db), nil, logger, cfg, opts...)
	defer svc.Wait()

	if *schedule == "" {
		today := svc.Today()
		if *asOf != "" {
			today, err = time.Parse("2006-01-02", *asOf)
			if err != nil {
				logger.Errorf("Invalid -as-of date: %v", err)
				return
			}
		}
		runSweep(svc, logger, today)
		return
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Errorf("Invalid timezone: %v", err)
		return
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(*schedule, func() { runSweep(svc, logger, svc.Today()) }); err != nil {
		logger.Errorf("Failed to schedule sweep: %v", err)
		return
	}
	c.Start()
	logger.Infof("Sweeper started with schedule %q", *schedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down gracefully...")

	ctx := c.Stop()
	<-ctx.Done()
	logger.Info("Sweeper stopped")
}

func runSweep(svc *service.Service, logger *logrus.Logger, today time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := svc.Sweep(ctx, today)
	if err != nil {
		logger.Errorf("Overdue sweep for %s failed: %v", today.Format("2006-01-02"), err)
		return
	}
	logger.WithField("transitions", n).Infof("Overdue sweep for %s completed", today.Format("2006-01-02"))
}
