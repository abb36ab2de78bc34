package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aulaplay/aula/internal/domain"
)

// ProgressEvent is the wire shape of one completed-session announcement.
type ProgressEvent struct {
	EventID     uuid.UUID             `json:"event_id"`
	Record      domain.ProgressRecord `json:"record"`
	PublishedAt time.Time             `json:"published_at"`
}

// publisher is the slice of Connection the producer needs; tests swap in
// a fake.
type publisher interface {
	PublishJSON(ctx context.Context, queue string, data any) error
}

// Producer publishes progress events.
type Producer struct {
	conn publisher
}

// NewProducer creates a queue producer.
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// PublishProgress announces one completed session.
func (p *Producer) PublishProgress(ctx context.Context, rec domain.ProgressRecord) error {
	event := ProgressEvent{
		EventID:     uuid.New(),
		Record:      rec,
		PublishedAt: time.Now(),
	}

	if err := p.conn.PublishJSON(ctx, ProgressQueueName, event); err != nil {
		return fmt.Errorf("publish progress event: %w", err)
	}

	slog.Info("published progress event",
		"event_id", event.EventID,
		"activity_id", rec.ActivityID,
		"success", rec.Success,
	)
	return nil
}
