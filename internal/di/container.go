// Package di wires every component into a single running process: it
// is the only place in the tree that knows about every concrete
// package at once, so main.go stays a thin CLI shell.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhstock/dsa/internal/agent"
	"github.com/zhstock/dsa/internal/auth"
	"github.com/zhstock/dsa/internal/backup"
	"github.com/zhstock/dsa/internal/config"
	"github.com/zhstock/dsa/internal/db"
	"github.com/zhstock/dsa/internal/db/repo"
	"github.com/zhstock/dsa/internal/evaluation"
	"github.com/zhstock/dsa/internal/events"
	"github.com/zhstock/dsa/internal/notify"
	"github.com/zhstock/dsa/internal/pipeline"
	"github.com/zhstock/dsa/internal/queue"
	"github.com/zhstock/dsa/internal/scheduler"
	"github.com/zhstock/dsa/internal/server"
)

// Container holds every long-lived component main.go drives.
type Container struct {
	Cfg *config.Config
	Log zerolog.Logger

	DB  *db.DB
	Bus *events.Bus

	Pool      *queue.Pool
	TaskStore *queue.TaskStore

	HistoryRepo      *repo.HistoryRepo
	NewsRepo         *repo.NewsRepo
	ConversationRepo *repo.ConversationRepo
	AuthRepo         *repo.AuthRepo

	Pipeline   *pipeline.Pipeline
	Dispatcher *notify.Dispatcher
	BatchJob   *scheduler.BatchJob
	Scheduler  *scheduler.Scheduler
	Backup     *backup.Service

	AuthService *auth.Service
	HTTPServer  *server.Server

	queueCtx    context.Context
	queueCancel context.CancelFunc
}

// Build assembles every component from cfg. singleNotify controls
// whether finished reports dispatch per-ticker (true) or as one batch
// at the end of a scheduler run (false); noNotify disables the
// dispatcher entirely, per the CLI's --single-notify/--no-notify.
func Build(ctx context.Context, cfg *config.Config, singleNotify bool, noNotify bool, log zerolog.Logger) (*Container, error) {
	database, err := db.Open(cfg.DataDir+"/dsa.db", db.ProfileStandard, log)
	if err != nil {
		return nil, fmt.Errorf("di: open database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("di: migrate database: %w", err)
	}

	c := &Container{
		Cfg: cfg,
		Log: log,
		DB:  database,
		Bus: events.NewBus(),

		HistoryRepo:      repo.NewHistoryRepo(database),
		NewsRepo:         repo.NewNewsRepo(database),
		ConversationRepo: repo.NewConversationRepo(database),
		AuthRepo:         repo.NewAuthRepo(database),
	}

	fetcherPool := buildFetcherPool(ctx, cfg, log)
	newsSvc := buildNewsService(cfg, log)
	router := buildLLMRouter(cfg, log)

	dispatcher := buildDispatcher(cfg, log)
	if noNotify {
		dispatcher = nil
	}
	c.Dispatcher = dispatcher

	strategies, err := buildStrategies(cfg)
	if err != nil {
		database.Close()
		return nil, err
	}

	registry := agent.NewToolRegistry()
	agent.RegisterBuiltinTools(registry, fetcherPool, newsSvc, nil) // no SectorRanker implementation exists to wire
	executor := agent.NewExecutor(router, registry, c.Bus, cfg.AgentMaxSteps, log)

	// dispatcher may be a nil *notify.Dispatcher; only lift it into the
	// pipeline.Dispatcher interface when it is actually non-nil, or the
	// interface itself comes out non-nil (typed-nil) and Pipeline's own
	// nil check never fires.
	var pipelineDispatcher pipeline.Dispatcher
	if singleNotify && dispatcher != nil {
		pipelineDispatcher = dispatcher
	}

	c.Pipeline = pipeline.New(
		fetcherPool, newsSvc, router,
		&executorRunner{executor: executor, strategies: strategies},
		c.HistoryRepo, c.NewsRepo, c.Bus, pipelineDispatcher,
		cfg.IsETF,
		pipeline.Options{
			EngineVersion:   evaluation.EngineVersion,
			IntradayEnabled: cfg.EnableRealtimeTechnicalIndicators,
			TradingDayCheck: cfg.TradingDayCheckEnabled,
			AgentMode:       cfg.AgentMode,
			AgentStrategies: cfg.AgentSkills,
			Deadline:        time.Duration(cfg.PipelineDeadlineSeconds) * time.Second,
		},
		log,
	)

	c.queueCtx, c.queueCancel = context.WithCancel(ctx)
	c.Pool = queue.NewPool(cfg.BatchParallelism, c.Bus, c.Pipeline.Run, log)
	c.TaskStore = queue.NewTaskStore(c.Bus)

	// In single-stock-notify mode the pipeline dispatches each report
	// itself, so the batch job gets no dispatcher.
	batchDispatcher := dispatcher
	if singleNotify {
		batchDispatcher = nil
	}
	c.BatchJob = scheduler.NewBatchJob(cfg, c.Pool, c.Bus, c.HistoryRepo, batchDispatcher, log)
	c.Scheduler = scheduler.New(time.Local, log)

	c.AuthService = auth.NewService(c.AuthRepo, cfg.AdminJWTSecret, log)

	backupSvc, err := backup.New(ctx, backup.Config{
		Enabled:         cfg.BackupEnabled,
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		Bucket:          cfg.S3Bucket,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretKey,
	}, log)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("di: build backup service: %w", err)
	}
	c.Backup = backupSvc

	var vision server.Chatter
	if cfg.VisionModel != "" {
		vision = router
	}

	c.HTTPServer = server.New(server.Config{
		Log:              log,
		Cfg:              cfg,
		Bus:              c.Bus,
		Pool:             c.Pool,
		TaskStore:        c.TaskStore,
		HistoryRepo:      c.HistoryRepo,
		NewsRepo:         c.NewsRepo,
		ConversationRepo: c.ConversationRepo,
		AuthService:      c.AuthService,
		Executor:         executor,
		Strategies:       strategies,
		Vision:           vision,
		Host:             cfg.WebUIHost,
		Port:             cfg.WebUIPort,
		DevMode:          false,
	})

	return c, nil
}

// StartQueue starts the task queue's worker pool against the
// container's own cancellable context (stopped by Close).
func (c *Container) StartQueue() {
	c.Pool.Start(c.queueCtx)
}

// Close releases every resource Build acquired.
func (c *Container) Close() {
	c.queueCancel()
	c.TaskStore.Close()
	c.DB.Close()
}
