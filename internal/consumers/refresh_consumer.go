package consumers

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"crisiswatch/internal/events"
	"crisiswatch/pkg/errors"
	"crisiswatch/pkg/logger"
)

// MessageReader is the slice of kafka.Consumer the consumer loop needs
type MessageReader interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
	Close() error
}

// RefreshConsumer regenerates metrics when a refresh request arrives
type RefreshConsumer struct {
	reader  MessageReader
	refresh func(ctx context.Context, company string) error
	log     *logger.Logger
}

// NewRefreshConsumer creates a new refresh consumer.
// refresh regenerates the company's metrics and stores them.
func NewRefreshConsumer(reader MessageReader, refresh func(ctx context.Context, company string) error, log *logger.Logger) *RefreshConsumer {
	return &RefreshConsumer{
		reader:  reader,
		refresh: refresh,
		log:     log.With("component", "refresh_consumer"),
	}
}

// Start consumes refresh requests until ctx is done
func (rc *RefreshConsumer) Start(ctx context.Context) error {
	rc.log.Info("Starting refresh consumer...")

	defer func() {
		if err := rc.reader.Close(); err != nil {
			rc.log.Errorw("Failed to close refresh consumer", "error", err)
		} else {
			rc.log.Info("Refresh consumer closed")
		}
	}()

	for {
		msg, err := rc.reader.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				rc.log.Info("Refresh consumer stopped (context cancelled)")
				return nil
			}
			rc.log.Errorw("Failed to read message", "error", err)
			continue
		}

		if err := rc.handle(ctx, msg.Value); err != nil {
			rc.log.Errorw("Failed to process refresh request",
				"error", err,
				"offset", msg.Offset,
			)
		}

		// Interrupted requests stay uncommitted and are redelivered after restart
		if ctx.Err() != nil {
			rc.log.Info("Refresh consumer stopped (context cancelled)")
			return nil
		}
		if err := rc.reader.Commit(ctx, msg); err != nil {
			rc.log.Warnw("Failed to commit refresh request", "error", err, "offset", msg.Offset)
		}
	}
}

func (rc *RefreshConsumer) handle(ctx context.Context, data []byte) error {
	var req events.RefreshRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errors.Wrap(err, "decode refresh request")
	}
	if req.Base.Type != events.TypeRefreshRequested {
		rc.log.Debugw("Unknown event type, skipping", "type", req.Base.Type)
		return nil
	}

	rc.log.Infow("Refreshing metrics on request",
		"company", req.Company,
		"request_id", req.Base.ID,
	)
	return rc.refresh(ctx, req.Company)
}
