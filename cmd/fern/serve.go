package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/processor"
	fusionroutes "github.com/Ramsey-B/fern/pkg/routes/fusion"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	linkageroutes "github.com/Ramsey-B/fern/pkg/routes/linkage"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the Kafka batch processor",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, flush, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer flush()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.TracingEnabled,
		ServiceName: cfg.AppName,
		Endpoint:    cfg.OTLPEndpoint,
		Protocol:    cfg.OTLPProtocol,
		Insecure:    cfg.OTLPInsecure,
		Timeout:     10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	defaultLinkage, defaultFusion, err := loadDefaultSpecs(cfg)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit(cfg.MaxBodyBytes))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	checker := health.NewChecker(version)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	linkageroutes.NewHandler(logger, cfg.LinkageWorkerCount, defaultLinkage).Register(api.Group("/linkage"))
	fusionroutes.NewHandler(logger, cfg.FusionWorkerCount, defaultFusion).Register(api.Group("/fusion"))

	s := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	httpDep := &httpDependency{echo: e, cfg: cfg, logger: logger}

	if cfg.KafkaConsumerEnabled {
		producer := kafka.NewProducer(kafka.ProducerConfigFrom(cfg), logger)
		proc, err := processor.NewProcessor(processor.Config{
			LinkageWorkers: cfg.LinkageWorkerCount,
			FusionWorkers:  cfg.FusionWorkerCount,
			DefaultLinkage: defaultLinkage,
			DefaultFusion:  defaultFusion,
		}, events.NewEmitter(producer, logger), logger)
		if err != nil {
			return err
		}

		s.AddDependency(&kafkaDependency{brokers: cfg.KafkaBrokers, producer: producer})
		consumer := kafka.NewConsumer(cfg, logger, proc.HandleMessage)
		s.AddDependency(&consumerDependency{consumer: consumer})
		httpDep.dependsOn = []string{consumerDependencyName}

		checker.AddCheck("kafka", func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.KafkaBrokers)
		})
		checker.AddCheck(consumerDependencyName, func(context.Context) error {
			running, lastErr := consumer.Health()
			if !running {
				return fmt.Errorf("consumer stopped: %s", lastErr)
			}
			return nil
		})
	}
	s.AddDependency(httpDep)

	if err := s.Start(ctx); err != nil {
		return err
	}
	checker.SetReady(true)
	logger.WithContext(ctx).WithFields(map[string]any{
		"port":     cfg.Port,
		"version":  version,
		"consumer": cfg.KafkaConsumerEnabled,
	}).Info("fern started")

	<-ctx.Done()
	checker.SetReady(false)
	logger.Info("Shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

func loadDefaultSpecs(cfg config.Config) (*models.LinkageSpec, *models.FusionSpec, error) {
	var (
		linkageSpec *models.LinkageSpec
		fusionSpec  *models.FusionSpec
		err         error
	)
	if cfg.LinkageSpecPath != "" {
		if linkageSpec, err = models.LoadLinkageSpec(cfg.LinkageSpecPath); err != nil {
			return nil, nil, err
		}
	}
	if cfg.FusionSpecPath != "" {
		if fusionSpec, err = models.LoadFusionSpec(cfg.FusionSpecPath); err != nil {
			return nil, nil, err
		}
	}
	return linkageSpec, fusionSpec, nil
}
