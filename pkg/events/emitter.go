// Package events publishes linkage and fusion results
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/fusion"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/linkage"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Publisher writes event batches
type Publisher interface {
	PublishBatch(ctx context.Context, msgs []kafka.OutgoingMessage) error
}

// Emitter handles event emission for fern
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

func newBase(eventType EventType, batchID string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		BatchID:   batchID,
		Timestamp: time.Now().UTC(),
	}
}

// EmitLinkageResult emits one event per match followed by a batch completion event
func (e *Emitter) EmitLinkageResult(ctx context.Context, batchID string, result *linkage.Result) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitLinkageResult")
	defer span.End()

	msgs := make([]kafka.OutgoingMessage, 0, len(result.Matches)+1)
	for _, m := range result.Matches {
		event := MatchEvent{BaseEvent: newBase(EventTypeLinkageMatch, batchID), Match: m}
		msgs = append(msgs, message(event.BaseEvent, event))
	}

	done := BatchEvent{
		BaseEvent:  newBase(EventTypeBatchCompleted, batchID),
		Kind:       "linkage",
		Matches:    len(result.Matches),
		Candidates: result.Candidates,
		Failures:   len(result.Failures),
	}
	msgs = append(msgs, message(done.BaseEvent, done))

	return e.publish(ctx, batchID, msgs)
}

// EmitFusionResult emits one event per fused cluster followed by a batch completion event
func (e *Emitter) EmitFusionResult(ctx context.Context, batchID string, results []fusion.FusedCluster) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitFusionResult")
	defer span.End()

	failures := 0
	msgs := make([]kafka.OutgoingMessage, 0, len(results)+1)
	for _, r := range results {
		if r.Error != "" {
			failures++
		}
		event := FusionEvent{BaseEvent: newBase(EventTypeFusionResult, batchID), FusedCluster: r}
		msgs = append(msgs, message(event.BaseEvent, event))
	}

	done := BatchEvent{
		BaseEvent: newBase(EventTypeBatchCompleted, batchID),
		Kind:      "fusion",
		Clusters:  len(results),
		Failures:  failures,
	}
	msgs = append(msgs, message(done.BaseEvent, done))

	return e.publish(ctx, batchID, msgs)
}

// EmitBatchFailed reports a batch that could not be processed
func (e *Emitter) EmitBatchFailed(ctx context.Context, batchID, kind string, cause error) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitBatchFailed")
	defer span.End()

	event := BatchEvent{
		BaseEvent: newBase(EventTypeBatchFailed, batchID),
		Kind:      kind,
		Error:     cause.Error(),
	}
	return e.publish(ctx, batchID, []kafka.OutgoingMessage{message(event.BaseEvent, event)})
}

func message(base BaseEvent, payload any) kafka.OutgoingMessage {
	return kafka.OutgoingMessage{
		Key:       base.BatchID,
		EventType: string(base.EventType),
		Payload:   payload,
		Headers:   map[string]string{kafka.HeaderBatchID: base.BatchID},
	}
}

func (e *Emitter) publish(ctx context.Context, batchID string, msgs []kafka.OutgoingMessage) error {
	if err := e.publisher.PublishBatch(ctx, msgs); err != nil {
		for _, m := range msgs {
			metrics.EventsPublishedTotal.WithLabelValues(m.EventType, "error").Inc()
		}
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"batch_id": batchID,
			"events":   len(msgs),
		}).Error("Failed to emit events")
		return err
	}

	for _, m := range msgs {
		metrics.EventsPublishedTotal.WithLabelValues(m.EventType, "success").Inc()
	}
	return nil
}
