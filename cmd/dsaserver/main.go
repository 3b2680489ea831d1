// Command dsaserver is the process entrypoint: it loads configuration,
// wires every component via internal/di, and then runs whichever
// combination of the HTTP server and the daily scheduler the CLI flags
// ask for.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zhstock/dsa/internal/config"
	"github.com/zhstock/dsa/internal/di"
	"github.com/zhstock/dsa/internal/scheduler"
	"github.com/zhstock/dsa/pkg/logger"
)

// exit codes: 0 normal shutdown, 2 configuration error, 1 fatal error.
const (
	exitOK        = 0
	exitFatal     = 1
	exitBadConfig = 2
)

func main() {
	os.Exit(run())
}

// resolveFlags applies the --webui/--webui-only legacy aliases and the
// rule that --serve-only/--webui-only suppress a concurrently-set
// --schedule (serving is the only thing that run does in that mode).
func resolveFlags(serve, serveOnly, webui, webuiOnly, schedule bool) (serveFlag, scheduleFlag bool) {
	serveFlag = serve || serveOnly || webui || webuiOnly
	scheduleFlag = schedule && !serveOnly && !webuiOnly
	return
}

func run() int {
	serve := flag.Bool("serve", false, "start the HTTP server")
	serveOnly := flag.Bool("serve-only", false, "start the HTTP server and nothing else (alias of --serve with --schedule unset)")
	webui := flag.Bool("webui", false, "legacy alias for --serve")
	webuiOnly := flag.Bool("webui-only", false, "legacy alias for --serve-only")
	schedule := flag.Bool("schedule", false, "run the daily scheduler")
	noNotify := flag.Bool("no-notify", false, "skip the notification dispatcher entirely")
	singleNotify := flag.Bool("single-notify", false, "dispatch reports per-ticker instead of as one batch")
	forceRun := flag.Bool("force-run", false, "bypass the calendar gate for this run")
	flag.Parse()

	serveFlag, scheduleFlag := resolveFlags(*serve, *serveOnly, *webui, *webuiOnly, *schedule)

	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Error().Err(err).Msg("failed to load configuration")
		return exitBadConfig
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})
	log.Info().Msg("starting dsaserver")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := di.Build(ctx, cfg, *singleNotify, *noNotify, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to wire dependencies")
		return exitFatal
	}
	defer container.Close()

	container.StartQueue()

	if cfg.BackupEnabled {
		if err := container.Scheduler.AddJob(backupCronExpr, &backupJob{backup: container.Backup, dbPath: cfg.DataDir + "/dsa.db"}); err != nil {
			log.Error().Err(err).Msg("failed to register backup job")
			return exitFatal
		}
	}

	if scheduleFlag {
		cronExpr, err := scheduler.DailyCronExpr(cfg.ScheduleTime)
		if err != nil {
			log.Error().Err(err).Msg("invalid SCHEDULE_TIME")
			return exitBadConfig
		}
		if err := container.Scheduler.AddJob(cronExpr, container.BatchJob.WithForceRun(*forceRun)); err != nil {
			log.Error().Err(err).Msg("failed to register batch job")
			return exitFatal
		}
		container.Scheduler.Start()
		defer container.Scheduler.Stop()

		if cfg.RunImmediately {
			if err := container.Scheduler.RunNow(container.BatchJob.WithForceRun(*forceRun)); err != nil {
				log.Error().Err(err).Msg("immediate batch run failed")
			}
		}
	}

	var serverErr chan error
	if serveFlag {
		serverErr = make(chan error, 1)
		go func() {
			serverErr <- container.HTTPServer.Start()
		}()
	} else if !scheduleFlag {
		// Neither --serve nor --schedule: a single synchronous batch run
		// (the calendar gate is bypassed only with --force-run), useful
		// for cron-driven invocations outside the built-in scheduler.
		if err := container.BatchJob.WithForceRun(*forceRun).Run(); err != nil {
			log.Error().Err(err).Msg("batch run failed")
			return exitFatal
		}
		return exitOK
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
			return exitFatal
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if serveFlag {
		if err := container.HTTPServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown error")
		}
	}

	log.Info().Msg("dsaserver stopped")
	return exitOK
}

// backupCronExpr runs the S3 backup once a day at 03:00 local time,
// clear of the scheduled analysis batch's own window.
const backupCronExpr = "0 0 3 * * *"

// backupJob adapts backup.Service's ctx/path signature to scheduler.Job.
type backupJob struct {
	backup interface {
		Run(ctx context.Context, dbPath string) error
	}
	dbPath string
}

func (b *backupJob) Name() string { return "database-backup" }

func (b *backupJob) Run() error {
	return b.backup.Run(context.Background(), b.dbPath)
}
