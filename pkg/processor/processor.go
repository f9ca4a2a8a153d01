// Package processor runs linkage and fusion batches consumed from Kafka and
// emits their results.
package processor

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	fernctx "github.com/Ramsey-B/fern/pkg/context"
	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/fusion"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/linkage"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ResultEmitter publishes batch outcomes
type ResultEmitter interface {
	EmitLinkageResult(ctx context.Context, batchID string, result *linkage.Result) error
	EmitFusionResult(ctx context.Context, batchID string, results []fusion.FusedCluster) error
	EmitBatchFailed(ctx context.Context, batchID, kind string, cause error) error
}

// Config holds processor settings
type Config struct {
	LinkageWorkers int
	FusionWorkers  int
	// DefaultLinkage and DefaultFusion serve batches without an inline spec
	DefaultLinkage *models.LinkageSpec
	DefaultFusion  *models.FusionSpec
}

// Processor handles batch requests
type Processor struct {
	logger    ectologger.Logger
	emitter   ResultEmitter
	evaluator *expressions.Evaluator
	cfg       Config

	defaultLinker *linkage.Linker
	defaultEngine *fusion.Engine
}

// NewProcessor creates a new batch processor. Default specs are compiled
// here so a broken default fails startup.
func NewProcessor(cfg Config, emitter ResultEmitter, logger ectologger.Logger) (*Processor, error) {
	p := &Processor{
		logger:    logger,
		emitter:   emitter,
		evaluator: expressions.NewEvaluator(),
		cfg:       cfg,
	}

	if cfg.DefaultLinkage != nil {
		linker, err := linkage.Build(*cfg.DefaultLinkage, p.evaluator, cfg.LinkageWorkers, logger)
		if err != nil {
			return nil, fmt.Errorf("default linkage spec: %w", err)
		}
		p.defaultLinker = linker
	}
	if cfg.DefaultFusion != nil {
		engine, err := fusion.Build(*cfg.DefaultFusion, cfg.FusionWorkers, logger)
		if err != nil {
			return nil, fmt.Errorf("default fusion spec: %w", err)
		}
		p.defaultEngine = engine
	}
	return p, nil
}

// HandleMessage is the Kafka message handler
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	if msg.Batch == nil {
		if err := msg.ParseBatchRequest(); err != nil {
			return err
		}
	}
	return p.ProcessBatch(ctx, msg.Batch)
}

// ProcessBatch runs one batch and emits its results. Batches that can never
// succeed are reported with a failure event and not returned as errors, so
// the message is committed; only transient failures are returned.
func (p *Processor) ProcessBatch(ctx context.Context, req *models.BatchRequest) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ProcessBatch")
	defer span.End()

	ctx = fernctx.SetBatchID(ctx, req.BatchID)

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"batch_id": req.BatchID,
		"kind":     req.Kind,
	})

	if err := req.Validate(); err != nil {
		return p.reject(ctx, log, req, err)
	}

	switch req.Kind {
	case models.BatchKindLinkage:
		return p.processLinkage(ctx, log, req)
	case models.BatchKindFusion:
		return p.processFusion(ctx, log, req)
	}
	return p.reject(ctx, log, req, fmt.Errorf("unsupported batch kind %q", req.Kind))
}

func (p *Processor) processLinkage(ctx context.Context, log ectologger.Logger, req *models.BatchRequest) error {
	linker, err := p.linkerFor(req)
	if err != nil {
		return p.reject(ctx, log, req, err)
	}

	result, err := linker.Run(ctx, req.Records, req.RightRecords)
	if err != nil {
		metrics.BatchesProcessedTotal.WithLabelValues(string(req.Kind), "error").Inc()
		return err
	}

	if err := p.emitter.EmitLinkageResult(ctx, req.BatchID, result); err != nil {
		metrics.BatchesProcessedTotal.WithLabelValues(string(req.Kind), "error").Inc()
		return err
	}

	metrics.BatchesProcessedTotal.WithLabelValues(string(req.Kind), "success").Inc()
	log.WithFields(map[string]any{
		"matches":  len(result.Matches),
		"failures": len(result.Failures),
	}).Info("Linkage batch processed")
	return nil
}

func (p *Processor) processFusion(ctx context.Context, log ectologger.Logger, req *models.BatchRequest) error {
	engine, err := p.engineFor(req)
	if err != nil {
		return p.reject(ctx, log, req, err)
	}

	results, err := engine.FuseClusters(ctx, req.Clusters)
	if err != nil {
		metrics.BatchesProcessedTotal.WithLabelValues(string(req.Kind), "error").Inc()
		return err
	}

	if err := p.emitter.EmitFusionResult(ctx, req.BatchID, results); err != nil {
		metrics.BatchesProcessedTotal.WithLabelValues(string(req.Kind), "error").Inc()
		return err
	}

	metrics.BatchesProcessedTotal.WithLabelValues(string(req.Kind), "success").Inc()
	log.WithFields(map[string]any{"clusters": len(results)}).Info("Fusion batch processed")
	return nil
}

func (p *Processor) linkerFor(req *models.BatchRequest) (*linkage.Linker, error) {
	if req.Linkage != nil {
		return linkage.Build(*req.Linkage, p.evaluator, p.cfg.LinkageWorkers, p.logger)
	}
	if p.defaultLinker == nil {
		return nil, ferrors.NewConfigError("batch has no linkage spec and no default is configured").AddComponent("processor")
	}
	return p.defaultLinker, nil
}

func (p *Processor) engineFor(req *models.BatchRequest) (*fusion.Engine, error) {
	if req.Fusion != nil {
		return fusion.Build(*req.Fusion, p.cfg.FusionWorkers, p.logger)
	}
	if p.defaultEngine == nil {
		return nil, ferrors.NewConfigError("batch has no fusion spec and no default is configured").AddComponent("processor")
	}
	return p.defaultEngine, nil
}

func (p *Processor) reject(ctx context.Context, log ectologger.Logger, req *models.BatchRequest, cause error) error {
	metrics.BatchesProcessedTotal.WithLabelValues(string(req.Kind), "invalid").Inc()
	log.WithError(cause).Warn("Rejecting batch")
	return p.emitter.EmitBatchFailed(ctx, req.BatchID, string(req.Kind), cause)
}
