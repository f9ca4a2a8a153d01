package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	HeaderEventType     = "event_type"
	HeaderSchemaVersion = "schema_version"
	HeaderBatchID       = "batch_id"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	Batch *models.BatchRequest
}

// ParseBatchRequest decodes the message value as a batch request. A batch
// without an id takes the message key.
func (m *IncomingMessage) ParseBatchRequest() error {
	var req models.BatchRequest
	if err := json.Unmarshal(m.Value, &req); err != nil {
		return fmt.Errorf("invalid batch request: %w", err)
	}
	if req.BatchID == "" {
		req.BatchID = m.Key
	}
	if req.BatchID == "" {
		req.BatchID = m.Headers[HeaderBatchID]
	}
	m.Batch = &req
	return nil
}

// OutgoingMessage is one event to publish
type OutgoingMessage struct {
	Key       string
	EventType string
	Payload   any
	Headers   map[string]string
}
