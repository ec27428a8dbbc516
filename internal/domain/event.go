package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RawEvent is an unprocessed message from the snapshot topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// RenderedMap is the message published for each snapshot.
type RenderedMap struct {
	SnapshotKey string       `json:"snapshot_key,omitempty" yaml:"snapshot_key,omitempty"`
	RenderedAt  time.Time    `json:"rendered_at" yaml:"rendered_at"`
	Result      RenderResult `json:"result" yaml:"result"`
	Diagnostics []Diagnostic `json:"diagnostics" yaml:"diagnostics"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// ParseRawEvent decodes a snapshot message.
func ParseRawEvent(raw RawEvent) (Snapshot, error) {
	s, err := DecodeSnapshot(raw.Value)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse raw event: %w", err)
	}
	return s, nil
}

// SerializeRenderedMap encodes m for the sink topic, keyed like its snapshot
// so a compacted topic keeps the latest map per dispatch view.
func SerializeRenderedMap(m RenderedMap) (OutputEvent, error) {
	if m.Diagnostics == nil {
		m.Diagnostics = []Diagnostic{}
	}
	value, err := json.Marshal(m)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize rendered map: %w", err)
	}
	return OutputEvent{
		Key:   []byte(m.SnapshotKey),
		Value: value,
		Headers: map[string]string{
			"content-type": "application/json",
			"rendered_at":  m.RenderedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}
