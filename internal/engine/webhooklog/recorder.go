package webhooklog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"pushhook/internal/platform/models"
)

type Store interface {
	Create(ctx context.Context, entry *models.WebhookLog) error
}

// Entry is one webhook invocation as the gateway saw it.
type Entry struct {
	EndpointID string
	Body       map[string]interface{}
	Query      map[string]string
	Sent       bool
	Devices    int
	Error      string
}

type Recorder struct {
	store   Store
	logger  zerolog.Logger
	timeout time.Duration
}

func NewRecorder(store Store, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:   store,
		logger:  logger.With().Str("component", "webhooklog").Logger(),
		timeout: 5 * time.Second,
	}
}

// Record writes the entry in the background. It never blocks the caller; the returned channel
// receives the write result once and is then closed. Callers may ignore it.
func (r *Recorder) Record(entry Entry) <-chan error {
	done := make(chan error, 1)

	row := &models.WebhookLog{
		EndpointID: entry.EndpointID,
		Query:      entry.Query,
		Sent:       entry.Sent,
		Devices:    entry.Devices,
		ReceivedAt: time.Now().Unix(),
	}
	if entry.Error != "" {
		msg := entry.Error
		row.Error = &msg
	}
	if entry.Body != nil {
		if b, err := json.Marshal(entry.Body); err == nil {
			row.Payload = b
		}
	}

	go func() {
		defer close(done)
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error().Interface("panic", rec).Str("endpoint_id", entry.EndpointID).Msg("Recovered from panic while recording webhook")
				done <- fmt.Errorf("webhook log panic: %v", rec)
			}
		}()

		// detached from the request so the write outlives the response
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		err := r.store.Create(ctx, row)
		if err != nil {
			r.logger.Error().Err(err).Str("endpoint_id", entry.EndpointID).Msg("Failed to record webhook")
		}
		done <- err
	}()

	return done
}
