package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/kafka"
)

const (
	kafkaDependencyName    = "kafka"
	consumerDependencyName = "kafka-consumer"
	httpDependencyName     = "http"
)

// kafkaDependency waits for a reachable broker and owns the producer
type kafkaDependency struct {
	brokers  []string
	producer *kafka.Producer
}

func (d *kafkaDependency) GetName() string     { return kafkaDependencyName }
func (d *kafkaDependency) DependsOn() []string { return nil }

func (d *kafkaDependency) Start(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return kafka.Ping(ctx, d.brokers)
}

func (d *kafkaDependency) Stop(context.Context) error {
	return d.producer.Close()
}

type consumerDependency struct {
	consumer *kafka.Consumer
}

func (d *consumerDependency) GetName() string     { return consumerDependencyName }
func (d *consumerDependency) DependsOn() []string { return []string{kafkaDependencyName} }

func (d *consumerDependency) Start(ctx context.Context) error {
	return d.consumer.Start(ctx)
}

func (d *consumerDependency) Stop(context.Context) error {
	return d.consumer.Stop()
}

type httpDependency struct {
	echo      *echo.Echo
	cfg       config.Config
	logger    ectologger.Logger
	dependsOn []string
}

func (d *httpDependency) GetName() string     { return httpDependencyName }
func (d *httpDependency) DependsOn() []string { return d.dependsOn }

// Start begins serving in the background. A listener failure after startup
// is logged.
func (d *httpDependency) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", d.cfg.Port),
		ReadTimeout:       time.Duration(d.cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(d.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(d.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(d.cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    d.cfg.MaxHeaderBytes,
	}

	go func() {
		if err := d.echo.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.WithContext(ctx).WithError(err).Error("HTTP server stopped")
		}
	}()
	return nil
}

func (d *httpDependency) Stop(ctx context.Context) error {
	return d.echo.Shutdown(ctx)
}
