package models

import (
	"time"
)

// BatchKind identifies the work carried by a batch request
type BatchKind string

const (
	BatchKindLinkage BatchKind = "linkage"
	BatchKindFusion  BatchKind = "fusion"
)

// BatchRequest is a unit of work consumed from the input topic
type BatchRequest struct {
	BatchID   string    `json:"batch_id"`
	Kind      BatchKind `json:"kind" validate:"required,oneof=linkage fusion"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	// Linkage input. Inter-source batches carry both sides.
	Linkage      *LinkageSpec `json:"linkage,omitempty"`
	Records      []any        `json:"records,omitempty"`
	RightRecords []any        `json:"right_records,omitempty"`

	// Fusion input
	Fusion   *FusionSpec `json:"fusion,omitempty"`
	Clusters []Cluster   `json:"clusters,omitempty" validate:"dive"`
}

// Cluster is a weighted set of values known to describe one entity
type Cluster struct {
	ID      string    `json:"id,omitempty"`
	Values  []any     `json:"values"`
	Weights []float64 `json:"weights,omitempty"` // Defaults to 1 per value
}
