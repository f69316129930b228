package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ms-marketplace/internal/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestProducer_PublishWritesJSONWithTopicAndKey(t *testing.T) {
	w := &captureWriter{}
	p := &Producer{Writer: w, Logger: logger.Nop()}

	err := p.Publish(context.Background(), "marketplace.chat.mentioned", "u-alice", map[string]string{"message_id": "m1"})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "marketplace.chat.mentioned", w.msgs[0].Topic)
	assert.Equal(t, "u-alice", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"message_id":"m1"}`, string(w.msgs[0].Value))
}

func TestProducer_PublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := &Producer{Writer: &captureWriter{err: boom}, Logger: logger.Nop()}

	err := p.Publish(context.Background(), "t", "k", 1)
	assert.ErrorIs(t, err, boom)
}

func TestProducer_PublishRejectsUnmarshalable(t *testing.T) {
	p := &Producer{Writer: &captureWriter{}, Logger: logger.Nop()}
	assert.Error(t, p.Publish(context.Background(), "t", "k", make(chan int)))
}

// queueReader hands out queued messages, then blocks until ctx is done.
type queueReader struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (r *queueReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *queueReader) Close() error { return nil }

type event struct {
	ID string `json:"id"`
}

func TestConsumer_StartDecodesAndSkipsBadMessages(t *testing.T) {
	good, _ := json.Marshal(event{ID: "e1"})
	reader := &queueReader{msgs: []kafka.Message{
		{Topic: "t", Value: []byte("not json")},
		{Topic: "t", Value: good},
	}}
	c := &Consumer{Reader: reader, Logger: logger.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan string, 2)
	done := make(chan struct{})
	go func() {
		c.Start(ctx, JSONHandler(func(_ context.Context, e event) error {
			got <- e.ID
			return nil
		}))
		close(done)
	}()

	select {
	case id := <-got:
		assert.Equal(t, "e1", id)
	case <-time.After(time.Second):
		t.Fatal("message not handled")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Empty(t, got)
}
