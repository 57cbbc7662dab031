// Command calmirrord runs the calendar mirroring daemon: it periodically
// reconciles configured source calendars into target calendars over CalDAV.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kellertobias/calmirror/config"
	caldavclient "github.com/kellertobias/calmirror/internal/clients/caldav"
	"github.com/kellertobias/calmirror/internal/engine"
	"github.com/kellertobias/calmirror/internal/hours"
	"github.com/kellertobias/calmirror/internal/notify"
	"github.com/kellertobias/calmirror/internal/scheduler"
	"github.com/kellertobias/calmirror/internal/storage"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "configuration file")
	once := flag.Bool("once", false, "run one reconciliation cycle and exit")
	purge := flag.Bool("purge", false, "delete every event this tool has ever created, then exit")
	yes := flag.Bool("yes", false, "confirm destructive operations")
	hoursFrom := flag.String("hours-from", "", "activatable hours report start (YYYY-MM-DD), requires -hours-to")
	hoursTo := flag.String("hours-to", "", "activatable hours report end (YYYY-MM-DD)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("init storage", zap.Error(err))
	}
	defer store.Close()

	provider := caldavclient.NewClient(cfg.CalDAV.URL, cfg.CalDAV.Username, cfg.CalDAV.Password)

	reporters := []engine.Reporter{}
	if cfg.Scheduler.Diagnostics {
		reporters = append(reporters, store)
	}
	if cfg.Telegram != nil && cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Fatal("init telegram", zap.Error(err))
		}
		reporters = append(reporters, tg)
	}

	eng := engine.New(provider, store, logger, engine.Options{
		Location:    cfg.Location(),
		HorizonDays: cfg.Scheduler.HorizonDays,
		Reporters:   reporters,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *purge:
		if !*yes {
			logger.Fatal("purge is destructive, pass -yes to confirm")
		}
		res, err := eng.Purge(ctx)
		if err != nil {
			logger.Fatal("purge", zap.Error(err))
		}
		for _, scan := range res.Calendars {
			logger.Info("purged calendar",
				zap.String("calendar", scan.Title),
				zap.Int("scanned", scan.Scanned),
				zap.Int("deleted", scan.Deleted),
				zap.Strings("errors", scan.Errors))
		}
		return

	case *hoursFrom != "" || *hoursTo != "":
		if err := runHoursReport(ctx, provider, cfg, *hoursFrom, *hoursTo); err != nil {
			logger.Fatal("hours report", zap.Error(err))
		}
		return
	}

	sched := scheduler.New(eng, cfg.Syncs, cfg.Interval(), logger)

	if *once {
		sched.RunNow(ctx)
		return
	}

	go func() {
		if err := sched.Start(ctx); err != nil {
			logger.Error("scheduler error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	sched.Stop()
	logger.Info("shutdown complete")
}

func runHoursReport(ctx context.Context, src hours.EventSource, cfg *config.Config, fromStr, toStr string) error {
	if cfg.Hours == nil {
		return fmt.Errorf("no hours section in config")
	}
	loc := cfg.Location()
	from, err := time.ParseInLocation("2006-01-02", fromStr, loc)
	if err != nil {
		return fmt.Errorf("parse -hours-from: %w", err)
	}
	to, err := time.ParseInLocation("2006-01-02", toStr, loc)
	if err != nil {
		return fmt.Errorf("parse -hours-to: %w", err)
	}

	buckets, err := hours.Report(ctx, src, hours.ReportConfig{
		Calendar:          cfg.Hours.Calendar,
		ExclusionCalendar: cfg.Hours.ExclusionCalendar,
		Percent:           cfg.Hours.Percent,
		Location:          loc,
	}, from, to)
	if err != nil {
		return err
	}

	var totalNet, totalExcl time.Duration
	for _, b := range buckets {
		fmt.Fprintf(os.Stdout, "%s  activatable %6.2fh  excluded %6.2fh\n",
			b.Day.Format("2006-01-02"), b.Activatable.Hours(), b.Excluded.Hours())
		totalNet += b.Activatable
		totalExcl += b.Excluded
	}
	fmt.Fprintf(os.Stdout, "total       activatable %6.2fh  excluded %6.2fh\n",
		totalNet.Hours(), totalExcl.Hours())
	return nil
}
