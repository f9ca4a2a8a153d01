package events

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/fusion"
	"github.com/Ramsey-B/fern/pkg/linkage"
)

// EventType defines the type of event
type EventType string

const (
	EventTypeLinkageMatch   EventType = "linkage.match"
	EventTypeFusionResult   EventType = "fusion.result"
	EventTypeBatchCompleted EventType = "batch.completed"
	EventTypeBatchFailed    EventType = "batch.failed"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	BatchID   string    `json:"batch_id"`
	Timestamp time.Time `json:"timestamp"`
}

// MatchEvent is emitted for every accepted record pair
type MatchEvent struct {
	BaseEvent
	linkage.Match
}

// FusionEvent is emitted for every fused cluster
type FusionEvent struct {
	BaseEvent
	fusion.FusedCluster
}

// BatchEvent closes out a batch
type BatchEvent struct {
	BaseEvent
	Kind       string `json:"kind"`
	Matches    int    `json:"matches,omitempty"`
	Candidates int    `json:"candidates,omitempty"`
	Clusters   int    `json:"clusters,omitempty"`
	Failures   int    `json:"failures,omitempty"`
	Error      string `json:"error,omitempty"`
}
