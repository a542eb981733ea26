package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "runs")
	require.NoError(t, p.PublishJSON(context.Background(), "run-1", map[string]int{"ranked": 3}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "run-1", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"ranked":3}`, string(w.msgs[0].Value))

	w.err = errors.New("broker down")
	assert.ErrorContains(t, p.PublishJSON(context.Background(), "run-2", 1), "broker down")
	assert.Error(t, p.PublishJSON(context.Background(), "run-3", make(chan int)))
}

// fakeReader serves msgs, then blocks until the context is cancelled.
type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestConsumerCommitsHandledMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{
		cancel: cancel,
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte(`{"ok":true}`)},
			{Offset: 2, Value: []byte(`{"ok":false}`)},
			{Offset: 3, Value: []byte(`{"ok":true}`)},
		},
	}
	var seen int
	handler := func(_ context.Context, _, value []byte) error {
		seen++
		v, err := DecodeJSON[struct{ OK bool }](value)
		if err != nil {
			return err
		}
		if !v.OK {
			return errors.New("rejected")
		}
		return nil
	}

	require.NoError(t, NewConsumerWithReader(r, "runs", handler).Run(ctx))
	assert.Equal(t, 3, seen)
	assert.Equal(t, []int64{1, 3}, r.committed)
	assert.True(t, r.closed)
}

func TestDecodeJSONError(t *testing.T) {
	_, err := DecodeJSON[map[string]any]([]byte("{"))
	assert.ErrorContains(t, err, "decoding kafka message")
}

func TestPingWithoutBrokers(t *testing.T) {
	assert.ErrorContains(t, Ping(context.Background(), nil), "no kafka brokers")
}
