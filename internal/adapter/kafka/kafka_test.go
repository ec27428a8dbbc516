package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/response-map-service/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fakes ---

// fakeSource hands out queued messages and then blocks until ctx is done.
type fakeSource struct {
	mu        sync.Mutex
	queue     []kafkago.Message
	fetchErr  error
	committed []kafkago.Message
	closed    bool
}

func (f *fakeSource) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	if f.fetchErr != nil {
		err := f.fetchErr
		f.mu.Unlock()
		return kafkago.Message{}, err
	}
	if len(f.queue) > 0 {
		msg := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (f *fakeSource) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

type fakeSink struct {
	written []kafkago.Message
	err     error
}

func (f *fakeSink) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func messages(n int) []kafkago.Message {
	out := make([]kafkago.Message, n)
	for i := range out {
		out[i] = kafkago.Message{Topic: "dispatch-snapshots", Offset: int64(i), Value: []byte(`{}`)}
	}
	return out
}

// --- reader ---

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("dispatch-1"),
		Value:     []byte(`{"incidents":[]}`),
		Topic:     "dispatch-snapshots",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("dashboard")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("dispatch-1"), raw.Key)
	assert.JSONEq(t, `{"incidents":[]}`, string(raw.Value))
	assert.Equal(t, "dispatch-snapshots", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "dashboard", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestReader_ExtractBatch_FillsToBatchSize(t *testing.T) {
	src := &fakeSource{queue: messages(5)}
	r := &Reader{reader: src, flushInterval: time.Second, logger: discardLogger()}

	batch, err := r.ExtractBatch(context.Background(), 3)
	require.NoError(t, err)

	require.Len(t, batch, 3)
	assert.Equal(t, int64(0), batch[0].Offset)
	assert.Equal(t, int64(2), batch[2].Offset)
	assert.Len(t, src.queue, 2)
}

func TestReader_ExtractBatch_FlushesPartialBatch(t *testing.T) {
	src := &fakeSource{queue: messages(2)}
	r := &Reader{reader: src, flushInterval: 20 * time.Millisecond, logger: discardLogger()}

	batch, err := r.ExtractBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestReader_ExtractBatch_FirstFetchError(t *testing.T) {
	src := &fakeSource{fetchErr: errors.New("broker down")}
	r := &Reader{reader: src, flushInterval: time.Second, logger: discardLogger()}

	batch, err := r.ExtractBatch(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Nil(t, batch)
}

func TestReader_CommitIsBoundToMessage(t *testing.T) {
	src := &fakeSource{queue: messages(2)}
	r := &Reader{reader: src, flushInterval: 10 * time.Millisecond, logger: discardLogger()}

	batch, err := r.ExtractBatch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	require.NotNil(t, batch[1].Commit)
	require.NoError(t, batch[1].Commit(context.Background()))

	require.Len(t, src.committed, 1)
	assert.Equal(t, int64(1), src.committed[0].Offset)
}

func TestReader_Close(t *testing.T) {
	src := &fakeSource{}
	r := &Reader{reader: src, logger: discardLogger()}
	require.NoError(t, r.Close())
	assert.True(t, src.closed)
}

// --- writer ---

func TestToMessage_SortsHeaders(t *testing.T) {
	msg := toMessage(domain.OutputEvent{
		Key:   []byte("dispatch-1"),
		Value: []byte(`{"result":{}}`),
		Headers: map[string]string{
			"rendered_at":  "2024-03-01T12:00:00Z",
			"content-type": "application/json",
		},
	})

	assert.Equal(t, []byte("dispatch-1"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "content-type", msg.Headers[0].Key)
	assert.Equal(t, []byte("application/json"), msg.Headers[0].Value)
	assert.Equal(t, "rendered_at", msg.Headers[1].Key)
}

func TestWriter_LoadBatch(t *testing.T) {
	sink := &fakeSink{}
	w := &Writer{writer: sink, logger: discardLogger()}

	err := w.LoadBatch(context.Background(), []domain.OutputEvent{
		{Key: []byte("a"), Value: []byte(`1`)},
		{Key: []byte("b"), Value: []byte(`2`)},
	})
	require.NoError(t, err)
	require.Len(t, sink.written, 2)
	assert.Equal(t, []byte("b"), sink.written[1].Key)
}

func TestWriter_LoadBatch_Empty(t *testing.T) {
	sink := &fakeSink{err: errors.New("should not be called")}
	w := &Writer{writer: sink, logger: discardLogger()}

	assert.NoError(t, w.LoadBatch(context.Background(), nil))
}

func TestWriter_LoadBatch_Error(t *testing.T) {
	sink := &fakeSink{err: errors.New("leader not available")}
	w := &Writer{writer: sink, logger: discardLogger()}

	err := w.LoadBatch(context.Background(), []domain.OutputEvent{{Key: []byte("a")}})
	assert.ErrorContains(t, err, "leader not available")
}
