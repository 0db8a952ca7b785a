package verify

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"pushhook/internal/engine/dispatch"
	"pushhook/internal/engine/payload"
	"pushhook/internal/platform/models"
)

const (
	MsgNothingToVerify = "Nenhum dispositivo para verificar"
	MsgAllValid        = "Todos os dispositivos estão válidos"
)

type Store interface {
	ListByUser(ctx context.Context, userID string) ([]*models.PushSubscription, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Deliverer is satisfied by *dispatch.Engine.
type Deliverer interface {
	Deliver(ctx context.Context, subs []*models.PushSubscription, body []byte, opts dispatch.SendOptions) dispatch.Result
}

type Summary struct {
	Message string              `json:"message"`
	Removed int                 `json:"removed"`
	Total   int                 `json:"total"`
	Details []dispatch.Delivery `json:"details"`
}

type Sweeper struct {
	store     Store
	deliverer Deliverer
	logger    zerolog.Logger
}

func NewSweeper(store Store, deliverer Deliverer, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:     store,
		deliverer: deliverer,
		logger:    logger.With().Str("component", "verify").Logger(),
	}
}

// Sweep checks every subscription of the user with a silent message that push services must
// not store (TTL 0) and removes the ones reported gone.
func (s *Sweeper) Sweep(ctx context.Context, userID string) (*Summary, error) {
	subs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(subs) == 0 {
		return &Summary{Message: MsgNothingToVerify, Details: []dispatch.Delivery{}}, nil
	}

	res := s.deliverer.Deliver(ctx, subs, payload.VerifyMessage(), dispatch.SendOptions{TTL: 0, Urgency: "normal"})

	summary := &Summary{
		Removed: res.Pruned(),
		Total:   res.Total,
		Details: res.Deliveries,
	}
	if summary.Removed > 0 {
		summary.Message = fmt.Sprintf("%d dispositivo(s) inválido(s) removido(s)", summary.Removed)
	} else {
		summary.Message = MsgAllValid
	}

	s.logger.Info().Str("user_id", userID).Int("total", summary.Total).Int("removed", summary.Removed).Msg("Verification sweep finished")
	return summary, nil
}

// SweepAll runs Sweep for every user that has subscriptions. A failing user does not stop the
// others; the first error is returned along with the totals.
func (s *Sweeper) SweepAll(ctx context.Context) (total, removed int, err error) {
	userIDs, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to list subscribed users")
	}

	var firstErr error
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return total, removed, ctx.Err()
		}

		summary, err := s.Sweep(ctx, userID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Verification sweep failed")
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "sweep user %s", userID)
			}
			continue
		}
		total += summary.Total
		removed += summary.Removed
	}
	return total, removed, firstErr
}
