package events

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/fusion"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/linkage"
)

type recordingPublisher struct {
	batches [][]kafka.OutgoingMessage
	err     error
}

func (p *recordingPublisher) PublishBatch(_ context.Context, msgs []kafka.OutgoingMessage) error {
	p.batches = append(p.batches, msgs)
	return p.err
}

func newTestEmitter(err error) (*Emitter, *recordingPublisher) {
	pub := &recordingPublisher{err: err}
	return NewEmitter(pub, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})), pub
}

func TestEmitter_EmitLinkageResult(t *testing.T) {
	emitter, pub := newTestEmitter(nil)

	result := &linkage.Result{
		Matches: []linkage.Match{
			{LeftIndex: 0, RightIndex: 5, Score: 1, Value: []any{0, 5}},
			{LeftIndex: 2, RightIndex: 7, Score: 0.96, Value: []any{2, 7}},
		},
		Candidates: 6,
		Failures:   []linkage.PairFailure{{LeftIndex: 1, RightIndex: 3, Error: "value type mismatch"}},
	}

	require.NoError(t, emitter.EmitLinkageResult(context.Background(), "batch-1", result))
	require.Len(t, pub.batches, 1)

	msgs := pub.batches[0]
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.Equal(t, "batch-1", m.Key)
		assert.Equal(t, "batch-1", m.Headers[kafka.HeaderBatchID])
	}

	first, ok := msgs[0].Payload.(MatchEvent)
	require.True(t, ok)
	assert.Equal(t, string(EventTypeLinkageMatch), msgs[0].EventType)
	assert.Equal(t, 5, first.RightIndex)
	assert.NotEmpty(t, first.EventID)

	done, ok := msgs[2].Payload.(BatchEvent)
	require.True(t, ok)
	assert.Equal(t, EventTypeBatchCompleted, done.EventType)
	assert.Equal(t, "linkage", done.Kind)
	assert.Equal(t, 2, done.Matches)
	assert.Equal(t, 6, done.Candidates)
	assert.Equal(t, 1, done.Failures)
}

func TestEmitter_EmitFusionResult(t *testing.T) {
	emitter, pub := newTestEmitter(nil)

	results := []fusion.FusedCluster{
		{ID: "a", Value: "Ann"},
		{ID: "b", Error: "weights and values differ in length"},
	}
	require.NoError(t, emitter.EmitFusionResult(context.Background(), "batch-2", results))

	msgs := pub.batches[0]
	require.Len(t, msgs, 3)
	assert.Equal(t, string(EventTypeFusionResult), msgs[1].EventType)

	done := msgs[2].Payload.(BatchEvent)
	assert.Equal(t, "fusion", done.Kind)
	assert.Equal(t, 2, done.Clusters)
	assert.Equal(t, 1, done.Failures)
}

func TestEmitter_EmitBatchFailed(t *testing.T) {
	emitter, pub := newTestEmitter(nil)

	require.NoError(t, emitter.EmitBatchFailed(context.Background(), "batch-3", "linkage", errors.New("no spec")))

	msgs := pub.batches[0]
	require.Len(t, msgs, 1)
	event := msgs[0].Payload.(BatchEvent)
	assert.Equal(t, EventTypeBatchFailed, event.EventType)
	assert.Equal(t, "no spec", event.Error)
}

func TestEmitter_PublishError(t *testing.T) {
	boom := errors.New("broker unavailable")
	emitter, _ := newTestEmitter(boom)

	err := emitter.EmitLinkageResult(context.Background(), "batch-4", &linkage.Result{})
	assert.ErrorIs(t, err, boom)
}
