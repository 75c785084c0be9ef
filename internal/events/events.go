// Package events publishes session lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Type names a session lifecycle event.
type Type string

const (
	SessionStarted    Type = "session.started"
	SessionFinished   Type = "session.finished"
	SessionAbandoned  Type = "session.abandoned"
	GroupReconciled   Type = "group.reconciled"
	ParticipantJoined Type = "participant.joined"
)

// Event is the JSON payload written to the sessions topic.
type Event struct {
	Type             Type      `json:"type"`
	SessionID        uuid.UUID `json:"session_id"`
	PlannedWorkoutID uuid.UUID `json:"planned_workout_id"`
	UserID           uuid.UUID `json:"user_id"`
	OccurredAt       time.Time `json:"occurred_at"`

	CompletedSets   int         `json:"completed_sets,omitempty"`
	TotalSets       int         `json:"total_sets,omitempty"`
	DurationSeconds int         `json:"duration_seconds,omitempty"`
	Reconciled      []uuid.UUID `json:"reconciled,omitempty"`
	Failed          []uuid.UUID `json:"failed,omitempty"`
}

// Publisher delivers session events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by session id so one session's events
// stay ordered within a partition.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher creates a synchronous publisher for topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", e.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(e.SessionID.String()),
		Value: payload,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing %s event: %w", e.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// Nop discards events. It is used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
