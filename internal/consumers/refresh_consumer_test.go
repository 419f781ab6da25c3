package consumers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crisiswatch/internal/events"
	"crisiswatch/pkg/errors"
	"crisiswatch/pkg/logger"
)

// scriptedReader replays messages, then blocks until ctx is done
type scriptedReader struct {
	messages  []kafka.Message
	readErr   error
	committed []int64
	closed    bool
}

func (r *scriptedReader) Fetch(ctx context.Context) (kafka.Message, error) {
	if r.readErr != nil {
		err := r.readErr
		r.readErr = nil
		return kafka.Message{}, err
	}
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		return msg, nil
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *scriptedReader) Commit(ctx context.Context, msg kafka.Message) error {
	r.committed = append(r.committed, msg.Offset)
	return nil
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func encode(t *testing.T, offset int64, v interface{}) kafka.Message {
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: data}
}

func TestRefreshConsumer_Start(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &scriptedReader{
		readErr: errors.ErrUnavailable,
		messages: []kafka.Message{
			encode(t, 1, events.RefreshRequest{Base: events.NewBaseEvent(events.TypeRefreshRequested, "test"), Company: "Kaseya"}),
			{Offset: 2, Value: []byte("not json")},
			encode(t, 3, events.RefreshRequest{Base: events.NewBaseEvent(events.TypeSwarmStatus, "test"), Company: "Ignored"}),
			encode(t, 4, events.RefreshRequest{Base: events.NewBaseEvent(events.TypeRefreshRequested, "test"), Company: "Failing"}),
			encode(t, 5, events.RefreshRequest{Base: events.NewBaseEvent(events.TypeRefreshRequested, "test"), Company: "Acme"}),
		},
	}

	var refreshed []string
	consumer := NewRefreshConsumer(reader, func(ctx context.Context, company string) error {
		refreshed = append(refreshed, company)
		if company == "Failing" {
			return errors.ErrInternal
		}
		if company == "Acme" {
			cancel()
		}
		return nil
	}, logger.Nop())

	require.NoError(t, consumer.Start(ctx))
	assert.Equal(t, []string{"Kaseya", "Failing", "Acme"}, refreshed)
	// Acme was interrupted by shutdown and stays uncommitted
	assert.Equal(t, []int64{1, 2, 3, 4}, reader.committed)
	assert.True(t, reader.closed)
}
