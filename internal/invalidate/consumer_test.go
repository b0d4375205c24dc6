package invalidate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/uk-job-dashboard/internal/logger"
)

type countingTarget struct {
	mu    sync.Mutex
	calls int
}

func (c *countingTarget) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
}

func (c *countingTarget) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type stubReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	closed    bool
	cancel    context.CancelFunc
}

func (s *stubReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(s.msgs) == 0 {
		s.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := s.msgs[0]
	s.msgs = s.msgs[1:]
	return msg, nil
}

func (s *stubReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	s.committed = append(s.committed, msgs...)
	return nil
}

func (s *stubReader) Close() error {
	s.closed = true
	return nil
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "matching table", value: `{"table":"UK_Jobs","count":12}`, want: true},
		{name: "other table", value: `{"table":"US_Jobs","count":3}`, want: false},
		{name: "no table", value: `{"count":3}`, want: true},
		{name: "not json", value: `jobs updated`, want: true},
		{name: "empty", value: ``, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &countingTarget{}
			c := New(&stubReader{}, target, "UK_Jobs", logger.Discard())
			require.Equal(t, tt.want, c.Handle(kafka.Message{Value: []byte(tt.value)}))
			if tt.want {
				require.Equal(t, 1, target.count())
			} else {
				require.Zero(t, target.count())
			}
		})
	}
}

func TestRunCommitsEveryMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte(`{"table":"UK_Jobs"}`)},
			{Offset: 2, Value: []byte(`{"table":"other"}`)},
		},
		cancel: cancel,
	}
	target := &countingTarget{}

	err := New(reader, target, "UK_Jobs", nil).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, target.count())
	require.Len(t, reader.committed, 2)
	require.True(t, reader.closed)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &stubReader{cancel: func() {}}
	err := New(reader, &countingTarget{}, "", nil).Run(ctx)
	require.NoError(t, err)
	require.True(t, errors.Is(ctx.Err(), context.Canceled))
}
