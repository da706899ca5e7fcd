// Package stats buffers evaluation and exposure telemetry and flushes it to
// the Flagship API in batches. The buffer is bounded with a drop-oldest
// policy (newest telemetry is favored over old), and a failed flush never
// raises to the caller or blocks the evaluation path — telemetry is strictly
// best-effort.
package stats

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/flagship-go/telemetry"
	"github.com/TimurManjosov/flagship-go/transport"
)

// batchPath is where event batches are posted.
const batchPath = "/v1/events/batch"

// EventType tags what a queued event records.
type EventType string

const (
	EventFlagEvaluation     EventType = "flag_evaluation"
	EventExperimentExposure EventType = "experiment_exposure"
	EventConversion         EventType = "conversion"
	EventCustom             EventType = "custom"
)

// Event is one queued telemetry record. Payload fields are flattened into the
// top-level JSON object next to the id/type/timestamp envelope.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Payload   map[string]any
}

// NewEvent stamps a payload with a fresh ID and UTC timestamp.
func NewEvent(eventType EventType, payload map[string]any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// MarshalJSON flattens the payload fields next to the envelope fields.
// Envelope keys win on collision.
func (e Event) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Payload)+3)
	for k, v := range e.Payload {
		flat[k] = v
	}
	flat["id"] = e.ID
	flat["type"] = string(e.Type)
	flat["timestamp"] = e.Timestamp.Format(time.RFC3339)
	return json.Marshal(flat)
}

// Config bounds the buffer and its flush behavior.
type Config struct {
	MaxQueueSize int           // capacity bound; oldest events are evicted beyond it
	BatchSize    int           // reaching this length triggers an automatic flush
	MaxRetries   int           // total send attempts per flush
	RetryBase    time.Duration // initial backoff interval, doubling per attempt
}

// Buffer is the bounded, ordered telemetry queue of one client instance.
// Enqueue order is preserved in flushed batches (FIFO except for drop-oldest
// eviction). The mutex only guards against accidental cross-goroutine use;
// the intended model is one logical writer per client.
type Buffer struct {
	transport transport.Transport
	cfg       Config
	log       zerolog.Logger

	mu     sync.Mutex
	events []Event
}

// NewBuffer creates an empty buffer flushing through tr.
func NewBuffer(tr transport.Transport, cfg Config, log zerolog.Logger) *Buffer {
	return &Buffer{transport: tr, cfg: cfg, log: log}
}

// Enqueue appends an event, evicting the oldest entry first when the queue is
// at capacity. Reaching the batch size triggers an automatic flush.
func (b *Buffer) Enqueue(ctx context.Context, event Event) {
	b.mu.Lock()
	if b.cfg.MaxQueueSize > 0 && len(b.events) >= b.cfg.MaxQueueSize {
		evicted := len(b.events) - b.cfg.MaxQueueSize + 1
		b.events = append(b.events[:0], b.events[evicted:]...)
		telemetry.EventsDropped.Add(float64(evicted))
	}
	b.events = append(b.events, event)
	shouldFlush := b.cfg.BatchSize > 0 && len(b.events) >= b.cfg.BatchSize
	b.mu.Unlock()

	telemetry.EventsEnqueued.WithLabelValues(string(event.Type)).Inc()

	if shouldFlush {
		b.Flush(ctx)
	}
}

// Len reports the current queue length.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Flush posts the full buffered batch. On success the sent events are removed
// atomically with respect to the send; on exhausted retries the buffer is
// left intact for a later flush and nothing surfaces to the caller.
func (b *Buffer) Flush(ctx context.Context) {
	b.mu.Lock()
	if len(b.events) == 0 {
		b.mu.Unlock()
		return
	}
	batch := make([]Event, len(b.events))
	copy(batch, b.events)
	b.mu.Unlock()

	if err := b.send(ctx, batch); err != nil {
		telemetry.EventFlushes.WithLabelValues("error").Inc()
		b.log.Warn().Err(err).Int("events", len(batch)).Msg("stats flush failed, keeping events buffered")
		return
	}
	telemetry.EventFlushes.WithLabelValues("ok").Inc()

	b.mu.Lock()
	// Only drop what was actually sent; events enqueued during the send stay.
	sent := len(batch)
	if sent > len(b.events) {
		sent = len(b.events)
	}
	b.events = append(b.events[:0], b.events[sent:]...)
	b.mu.Unlock()

	b.log.Debug().Int("events", len(batch)).Msg("stats flushed")
}

func (b *Buffer) send(ctx context.Context, batch []Event) error {
	body := map[string]any{"events": batch}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = b.cfg.RetryBase
	expo.RandomizationFactor = 0
	expo.Multiplier = 2

	attempts := b.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	operation := func() (struct{}, error) {
		_, err := b.transport.Post(ctx, batchPath, body)
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(attempts)),
	)
	return err
}
