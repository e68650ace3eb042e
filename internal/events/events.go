// Package events publishes notifications about built citation networks.
//
// Publishing is best effort. A failed publish is logged and counted but never
// affects the response already computed for the caller.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/helixir/citation-network-service/internal/domain"
)

const (
	// EventTypeNetworkBuilt is emitted after every successful build.
	EventTypeNetworkBuilt = "citation_network.built"

	// DefaultServiceName identifies this service in event envelopes.
	DefaultServiceName = "citation-network-service"
)

// Event is the envelope written to the topic.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// NetworkBuiltPayload summarizes one build.
type NetworkBuiltPayload struct {
	SourceID       string `json:"source_id"`
	NetworkType    string `json:"network_type"`
	TotalNodes     int    `json:"total_nodes"`
	TotalEdges     int    `json:"total_edges"`
	OpenAccessOnly bool   `json:"open_access_only"`
	Dedupe         bool   `json:"dedupe"`
}

// NewNetworkBuiltPayload derives the payload from a finished network.
func NewNetworkBuiltPayload(network *domain.NetworkData, openAccessOnly, dedupe bool) NetworkBuiltPayload {
	return NetworkBuiltPayload{
		SourceID:       network.Metadata.SourceID,
		NetworkType:    string(network.Metadata.NetworkType),
		TotalNodes:     network.Metadata.TotalNodes,
		TotalEdges:     network.Metadata.TotalEdges,
		OpenAccessOnly: openAccessOnly,
		Dedupe:         dedupe,
	}
}

// Publisher delivers network events.
type Publisher interface {
	PublishNetworkBuilt(ctx context.Context, payload NetworkBuiltPayload) error
	Close() error
}

// NewEvent wraps payload in an envelope with a fresh event id.
func NewEvent(source, eventType, correlationID string, payload interface{}, now time.Time) (Event, error) {
	if eventType == "" {
		return Event{}, fmt.Errorf("event_type is required")
	}
	if source == "" {
		source = DefaultServiceName
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal payload: %w", err)
	}

	return Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		CorrelationID: correlationID,
		OccurredAt:    now.UTC(),
		Payload:       payloadBytes,
	}, nil
}

// Noop discards every event. It is used when Kafka is disabled.
type Noop struct{}

// PublishNetworkBuilt does nothing.
func (Noop) PublishNetworkBuilt(context.Context, NetworkBuiltPayload) error { return nil }

// Close does nothing.
func (Noop) Close() error { return nil }

var _ Publisher = Noop{}
