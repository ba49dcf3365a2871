package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/pumba68/qatering-sub001/pkg/audience"
	"github.com/pumba68/qatering-sub001/pkg/channels/logemail"
	"github.com/pumba68/qatering-sub001/pkg/channels/webhookpush"
	"github.com/pumba68/qatering-sub001/pkg/cmd"
	"github.com/pumba68/qatering-sub001/pkg/journey"
	"github.com/pumba68/qatering-sub001/pkg/log"
	"github.com/pumba68/qatering-sub001/pkg/otelhelper"
	"github.com/pumba68/qatering-sub001/pkg/persistence"
	"github.com/pumba68/qatering-sub001/pkg/protocol"
)

const (
	defaultPort     = 9090
	defaultRunCron  = "*/5 * * * *"
	defaultCacheTTL = 5 * time.Minute
)

func main() {
	command := &cli.Command{
		Name:                  "journey-engine",
		Usage:                 "Execute marketing journeys against the customer base",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (postgres://... or a file store path)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker list, required for the kafka event bus",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for audience snapshot caching, disabled when empty",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "run-secret",
				Usage:   "Shared secret required by the run endpoint, open when empty",
				Sources: cli.EnvVars("RUN_SECRET"),
			},
			&cli.StringFlag{
				Name:    "run-cron",
				Usage:   "Cron expression for the recurring batch invocation",
				Value:   defaultRunCron,
				Sources: cli.EnvVars("RUN_CRON"),
			},
			&cli.StringFlag{
				Name:    "push-auth-token",
				Usage:   "Bearer token sent with web push deliveries",
				Sources: cli.EnvVars("PUSH_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OTLP trace export",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("journey-engine")

	logger.InfoContext(ctx, "Initializing journey engine")

	var tracer trace.Tracer

	if command.Bool("tracing") {
		var err error

		tracer, err = otelhelper.NewTracer(ctx, "journey-engine")
		if err != nil {
			return err
		}
	}

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(
		command.String("event-bus"),
		splitBrokers(command.String("kafka-brokers")),
		"journey-engine",
		logger,
	)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	resolver, err := newResolver(command.String("redis-url"), persistence, logger)
	if err != nil {
		return err
	}

	registry := cmd.NewRegistry(
		logger,
		persistence,
		logemail.NewSender(logger),
		webhookpush.NewSender(webhookpush.Config{AuthToken: command.String("push-auth-token")}, logger),
	)

	logger.InfoContext(ctx, "Node handlers registered", "node_types", registry.Types())

	evaluator := journey.NewConditionEvaluator(
		persistence.SegmentRepository(),
		persistence.UserRepository(),
		resolver,
		logger,
	)
	scanner := journey.NewEnrollmentScanner(persistence, resolver, eventBus, logger)
	executor := journey.NewStepExecutor(persistence, registry, evaluator, eventBus, logger)
	coordinator := journey.NewRunCoordinator(persistence, scanner, executor, eventBus, tracer, logger)

	scheduler := cron.New()

	_, err = scheduler.AddFunc(command.String("run-cron"), func() {
		if _, err := coordinator.Run(context.Background()); err != nil {
			logger.Error("Scheduled journey run failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	scheduler.Start()
	defer scheduler.Stop()

	api := NewAPI(logger, persistence, coordinator, command.String("run-secret"))

	return api.Start(command.Int("port"))
}

func splitBrokers(raw string) []string {
	if raw == "" {
		return nil
	}

	brokers := strings.Split(raw, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}

	return brokers
}

// newResolver wraps the store resolver with the Redis snapshot cache when a
// Redis URL is configured.
func newResolver(redisURL string, p persistence.Persistence, logger *slog.Logger) (protocol.AudienceResolver, error) {
	resolver := audience.NewStoreResolver(p.UserRepository(), logger)
	if redisURL == "" {
		return resolver, nil
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	return audience.NewCachedResolver(resolver, redis.NewClient(options), defaultCacheTTL, logger), nil
}
