// Command ariad runs the Agentic Execution Core: the LLM Gateway, Cost
// Governor, Agent Orchestrator, Background Job Runner, and Proactive
// Router behind one HTTP process exposing the chat WebSocket and health
// endpoints. Its startup and shutdown shape follows
// goa-ai's example/cmd/assistant/main.go: flag parsing, a
// goa.design/clue/log context carrying the chosen log format, an errc
// channel fed by both the signal handler and the server goroutine, and
// a sync.WaitGroup gating process exit on a graceful net/http shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"goa.design/clue/log"

	"github.com/aria-platform/aria-core/internal/agents"
	"github.com/aria-platform/aria-core/internal/config"
	"github.com/aria-platform/aria-core/internal/conversation"
	"github.com/aria-platform/aria-core/internal/costgovernor"
	"github.com/aria-platform/aria-core/internal/domainsource"
	"github.com/aria-platform/aria-core/internal/gateway"
	"github.com/aria-platform/aria-core/internal/health"
	"github.com/aria-platform/aria-core/internal/hooks"
	"github.com/aria-platform/aria-core/internal/jobrunner"
	"github.com/aria-platform/aria-core/internal/llmmodel/anthropic"
	"github.com/aria-platform/aria-core/internal/orchestrator"
	"github.com/aria-platform/aria-core/internal/ratelimit"
	"github.com/aria-platform/aria-core/internal/router"
	"github.com/aria-platform/aria-core/internal/store/mongo"
	"github.com/aria-platform/aria-core/internal/streamhub"
	"github.com/aria-platform/aria-core/internal/streamhub/redishub"
	"github.com/aria-platform/aria-core/internal/telemetry"
	"github.com/aria-platform/aria-core/internal/transport/ws"
)

func main() {
	var (
		configF = flag.String("config", "", "Path to an optional YAML config overlay")
		addrF   = flag.String("addr", "", "HTTP listen address (overrides config)")
		dbgF    = flag.Bool("debug", false, "Log request and response bodies")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	cfg, err := config.Load(*configF)
	if err != nil {
		log.Fatal(ctx, err)
	}
	if *addrF != "" {
		cfg.HTTPAddr = *addrF
	}

	logger := telemetry.NewClueLogger()
	metrics := telemetry.NewClueMetrics()

	mongoClient, err := mongodriver.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal(ctx, fmt.Errorf("mongo: connect: %w", err))
	}
	store, err := mongo.New(mongo.Options{Client: mongoClient, Database: cfg.MongoDatabase})
	if err != nil {
		log.Fatal(ctx, fmt.Errorf("mongo: wire store: %w", err))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	vendor, err := anthropic.NewFromAPIKey(cfg.AnthropicAPIKey, cfg.DefaultModel)
	if err != nil {
		log.Fatal(ctx, fmt.Errorf("anthropic: %w", err))
	}
	limiter := ratelimit.New(200_000, 1_000_000)
	limiter.OnChange(func(tpm float64) {
		metrics.RecordGauge("ratelimit.anthropic_tpm", tpm)
	})
	vendorClient := limiter.Middleware()(vendor)

	cost := costgovernor.New(costgovernor.Config{
		Enabled:            cfg.CostGovernorEnabled,
		DailyTokenBudget:   cfg.DailyTokenBudget,
		SoftLimitRatio:     cfg.SoftLimitRatio,
		DefaultRetryBudget: cfg.DefaultRetryBudget,
	}, store, store, metrics)

	tracer := telemetry.NewClueTracer()
	gw := gateway.New(vendorClient, cost, gateway.WithTelemetry(logger, metrics, tracer), gateway.WithRateLimiter(limiter))

	bus := hooks.NewBus()
	orch := orchestrator.New(orchestrator.Config{MaxConcurrentAgents: cfg.MaxConcurrentAgents, RetryBudgetCap: cfg.DefaultRetryBudget}, bus, logger, metrics)
	orch.WithRetryBudget(cost)
	orch.Register(agents.NewAnalyst(gw))
	orch.Register(agents.NewScout(gw))
	orch.Register(agents.NewStrategist(gw))
	orch.Register(agents.NewScribe(gw))
	orch.Register(agents.NewVerifier(gw))
	orch.Register(agents.NewOperator(gw))
	orch.Register(agents.NewHunter(gw))

	localHub := streamhub.New()
	hub := redishub.New(localHub, rdb, logger)

	rt := router.New(router.Config{
		Connectivity:  router.ClusterConnectivity(hub),
		Pusher:        router.ClusterPusher(hub),
		Dedup:         store,
		Notifications: store,
		Briefings:     store,
		Logins:        store,
		NewID:         func() string { return uuid.NewString() },
		Metrics:       metrics,
	})

	domains := domainsource.New(mongoClient.Database(cfg.MongoDatabase))
	jobs := jobrunner.New(jobrunner.Config{
		Users:         domains,
		BusinessHours: jobrunner.BusinessHours{StartHour: cfg.BusinessHoursStart, EndHour: cfg.BusinessHoursEnd},
		Runs:          store,
		Bus:           bus,
		Logger:        logger,
		Metrics:       metrics,
	})
	for _, job := range []jobrunner.Job{
		jobrunner.NewSignalScanJob(orch, domains, rt, store),
		jobrunner.NewDebriefJob(orch, domains, rt, store),
		jobrunner.NewOverdueCommitmentJob(orch, domains, rt, store),
		jobrunner.NewWeeklyDigestJob(orch, store, rt, store),
	} {
		if err := jobs.Register(job); err != nil {
			log.Fatal(ctx, fmt.Errorf("jobrunner: register %s: %w", job.Name(), err))
		}
	}

	conv := conversation.New(store, store)

	wsHandler := ws.New(hub, conv, gw, nil, logger, metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", health.Handler(store, hub))
	mux.Handle("/ws/chat", wsHandler)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)

	jobs.Start()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf(ctx, "listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	log.Printf(ctx, "exiting (%v)", <-errc)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := jobs.Stop(shutdownCtx); err != nil {
		log.Print(ctx, log.KV{K: "jobrunner-stop-error", V: err.Error()})
	}
	_ = srv.Shutdown(shutdownCtx)

	wg.Wait()
	log.Printf(ctx, "exited")
}
