package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/dataimport/internal/logging"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	messages [][]byte
	ctxErrs  []error
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	f.messages = append(f.messages, message.([]byte))
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.err != nil {
		cmd := redis.NewIntCmd(ctx)
		cmd.SetErr(f.err)
		return cmd
	}
	return redis.NewIntResult(1, nil)
}

func TestRedisNotifier_Publish(t *testing.T) {
	fp := &fakePublisher{}
	n := NewRedisNotifier(fp, "dataimport.events", 0, logging.NewNop())

	n.Publish(context.Background(), Event{Type: EventDatasetImported, SubjectID: "s1", DatasetID: "d1", Source: "file"})
	n.Wait()

	require.Len(t, fp.messages, 1)
	assert.Equal(t, "dataimport.events", fp.channels[0])

	var got Event
	require.NoError(t, json.Unmarshal(fp.messages[0], &got))
	assert.Equal(t, EventDatasetImported, got.Type)
	assert.Equal(t, "d1", got.DatasetID)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Time.IsZero())
}

func TestRedisNotifier_SurvivesCancelledCaller(t *testing.T) {
	fp := &fakePublisher{}
	n := NewRedisNotifier(fp, "ch", 0, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Publish(ctx, Event{Type: EventDatasetImported})
	n.Wait()

	require.Len(t, fp.ctxErrs, 1)
	assert.NoError(t, fp.ctxErrs[0])
}

func TestRedisNotifier_ErrorIsSwallowed(t *testing.T) {
	fp := &fakePublisher{err: errors.New("connection refused")}
	n := NewRedisNotifier(fp, "ch", 0, logging.NewNop())

	assert.NotPanics(t, func() {
		n.Publish(context.Background(), Event{Type: EventDatasetImported})
		n.Wait()
	})
	assert.Len(t, fp.messages, 1)
}

func TestNoop(t *testing.T) {
	var n Notifier = Noop{}
	assert.NotPanics(t, func() { n.Publish(context.Background(), Event{}) })
}
