// Package notify announces completed imports to interested listeners.
// Delivery is fire-and-forget: a failed publish is logged and never
// affects the import that triggered it.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/logging"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const EventDatasetImported = "dataset.imported"

// Event is the payload published on the channel.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	SubjectID string    `json:"subjectId"`
	DatasetID string    `json:"datasetId"`
	Source    string    `json:"source"`
	Name      string    `json:"name"`
	Time      time.Time `json:"time"`
}

type Notifier interface {
	Publish(ctx context.Context, e Event)
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes events as JSON on a Redis pub/sub channel.
type RedisNotifier struct {
	rdb     publisher
	channel string
	timeout time.Duration
	logger  logging.Logger

	wg sync.WaitGroup
}

func NewRedisNotifier(rdb publisher, channel string, timeout time.Duration, logger logging.Logger) *RedisNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RedisNotifier{rdb: rdb, channel: channel, timeout: timeout, logger: logger}
}

// Publish returns immediately; the message is sent in the background and
// survives cancellation of ctx.
func (n *RedisNotifier) Publish(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	payload, err := json.Marshal(e)
	if err != nil {
		n.logger.Error(ctx, "failed to marshal event", "event_type", e.Type, "error", err.Error())
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		if err := n.rdb.Publish(pctx, n.channel, payload).Err(); err != nil {
			n.logger.Warn(pctx, "failed to publish event", "event_id", e.ID, "event_type", e.Type, "channel", n.channel, "error", err.Error())
			return
		}
		n.logger.Debug(pctx, "event published", "event_id", e.ID, "event_type", e.Type, "channel", n.channel)
	}()
}

// Wait blocks until every in-flight publish has finished.
func (n *RedisNotifier) Wait() {
	n.wg.Wait()
}
