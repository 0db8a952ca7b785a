package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"
	"pushhook/internal/engine/payload"
	"pushhook/internal/platform/metrics"
	"pushhook/internal/platform/models"
)

const (
	MsgNoDevices = "Nenhum dispositivo registrado"
	MsgAllFailed = "Falha ao enviar para todos os dispositivos"
)

// Pruner deletes a subscription the push service reported as gone.
type Pruner interface {
	DeleteByID(ctx context.Context, id string) error
}

// Delivery is the outcome of one send.
type Delivery struct {
	SubscriptionID string  `json:"id"`
	Endpoint       string  `json:"endpoint"`
	Status         int     `json:"status"`
	Outcome        Outcome `json:"outcome"`
	Error          string  `json:"error,omitempty"`
	Pruned         bool    `json:"removed"`
}

type Result struct {
	Total      int
	Succeeded  int
	Gone       int
	Failed     int
	Deliveries []Delivery
}

func (r Result) SentAny() bool {
	return r.Succeeded > 0
}

// NoDevices is distinct from every send failing.
func (r Result) NoDevices() bool {
	return r.Total == 0
}

// ErrorMessage is what the webhook caller sees, empty when something was sent.
func (r Result) ErrorMessage() string {
	switch {
	case r.NoDevices():
		return MsgNoDevices
	case !r.SentAny():
		return MsgAllFailed
	}
	return ""
}

func (r Result) Pruned() int {
	n := 0
	for _, d := range r.Deliveries {
		if d.Pruned {
			n++
		}
	}
	return n
}

type Engine struct {
	transport Transport
	policy    Policy
	pruner    Pruner
	opts      SendOptions
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewEngine(transport Transport, policy Policy, pruner Pruner, opts SendOptions, m *metrics.Metrics, logger zerolog.Logger) *Engine {
	return &Engine{
		transport: transport,
		policy:    policy,
		pruner:    pruner,
		opts:      opts,
		metrics:   m,
		logger:    logger.With().Str("component", "dispatch").Logger(),
	}
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// Dispatch sends msg to every subscription with the configured TTL and urgency.
func (e *Engine) Dispatch(ctx context.Context, subs []*models.PushSubscription, msg payload.Message) Result {
	body, err := msg.Marshal()
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to encode notification")
		return Result{Total: len(subs), Failed: len(subs)}
	}
	return e.Deliver(ctx, subs, body, e.opts)
}

// Deliver sends body to all subscriptions concurrently and waits for every send. Gone
// subscriptions are deleted before it returns. Nothing is retried.
func (e *Engine) Deliver(ctx context.Context, subs []*models.PushSubscription, body []byte, opts SendOptions) Result {
	result := Result{Total: len(subs)}
	if len(subs) == 0 {
		return result
	}

	start := time.Now()
	mapper := iter.Mapper[*models.PushSubscription, Delivery]{MaxGoroutines: len(subs)}
	result.Deliveries = mapper.Map(subs, func(sub **models.PushSubscription) Delivery {
		return e.deliverOne(ctx, *sub, body, opts)
	})
	e.metrics.Dispatch(time.Since(start))

	for _, d := range result.Deliveries {
		switch d.Outcome {
		case OutcomeSuccess:
			result.Succeeded++
		case OutcomeGone:
			result.Gone++
		default:
			result.Failed++
		}
	}
	return result
}

func (e *Engine) deliverOne(ctx context.Context, sub *models.PushSubscription, body []byte, opts SendOptions) Delivery {
	d := Delivery{
		SubscriptionID: sub.ID,
		Endpoint:       ShortEndpoint(sub.Endpoint),
	}

	status, err := e.transport.Send(ctx, Target{Endpoint: sub.Endpoint, P256dh: sub.P256dh, Auth: sub.Auth}, body, opts)
	d.Status = status
	d.Outcome = e.policy.Classify(status, err)
	e.metrics.Delivery(string(d.Outcome))

	switch d.Outcome {
	case OutcomeSuccess:
		return d

	case OutcomeGone:
		d.Error = "subscription expired"
		e.logger.Info().Str("subscription_id", sub.ID).Str("endpoint", d.Endpoint).Int("status", status).Msg("Removing expired subscription")
		if e.pruner == nil {
			return d
		}
		if err := e.pruner.DeleteByID(ctx, sub.ID); err != nil {
			e.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to delete expired subscription")
			return d
		}
		d.Pruned = true
		e.metrics.Pruned(string(OutcomeGone), 1)

	default:
		d.Error = "delivery failed"
		e.logger.Warn().Err(err).Str("subscription_id", sub.ID).Str("endpoint", d.Endpoint).Int("status", status).Msg("Push delivery failed")
	}
	return d
}

// ShortEndpoint keeps push service URLs out of logs and responses in full.
func ShortEndpoint(endpoint string) string {
	const max = 50
	if len(endpoint) <= max {
		return endpoint
	}
	return endpoint[:max] + "..."
}
