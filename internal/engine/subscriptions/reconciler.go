package subscriptions

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"pushhook/internal/engine/identity"
	apperrors "pushhook/internal/pkg/errors"
	"pushhook/internal/platform/models"
)

// Store is the slice of the subscription repository the reconciler needs.
type Store interface {
	Upsert(ctx context.Context, sub *models.PushSubscription) error
	ListByUser(ctx context.Context, userID string) ([]*models.PushSubscription, error)
	DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error)
	DeleteByEndpoint(ctx context.Context, userID, endpoint string) (int64, error)
}

// Incoming is a browser PushSubscription plus what the client knows about itself.
type Incoming struct {
	Endpoint  string
	P256dh    string
	Auth      string
	UserAgent string
	DeviceID  string
}

func (in Incoming) Validate() error {
	if strings.TrimSpace(in.Endpoint) == "" {
		return apperrors.Invalid("endpoint is required")
	}
	u, err := url.Parse(in.Endpoint)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return apperrors.Invalid("endpoint must be an absolute http(s) URL")
	}
	if strings.TrimSpace(in.P256dh) == "" || strings.TrimSpace(in.Auth) == "" {
		return apperrors.Invalid("keys.p256dh and keys.auth are required")
	}
	return nil
}

type Result struct {
	Subscription *models.PushSubscription
	Pruned       []string
}

type Reconciler struct {
	store    Store
	resolver identity.Resolver
	logger   zerolog.Logger
}

func NewReconciler(store Store, resolver identity.Resolver, logger zerolog.Logger) *Reconciler {
	if resolver == nil {
		resolver = identity.Default()
	}
	return &Reconciler{
		store:    store,
		resolver: resolver,
		logger:   logger.With().Str("component", "subscriptions").Logger(),
	}
}

// Reconcile upserts the subscription on (user, endpoint) and then removes the user's other
// subscriptions that resolve to the same device. Only the upsert can fail the call.
func (r *Reconciler) Reconcile(ctx context.Context, userID string, in Incoming) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	sub := &models.PushSubscription{
		UserID:    userID,
		Endpoint:  in.Endpoint,
		P256dh:    in.P256dh,
		Auth:      in.Auth,
		UserAgent: optional(in.UserAgent),
		DeviceID:  optional(in.DeviceID),
	}
	if err := r.store.Upsert(ctx, sub); err != nil {
		return nil, err
	}

	result := &Result{Subscription: sub}

	key := r.resolver.Identify(identity.Device{DeviceID: in.DeviceID, UserAgent: in.UserAgent})
	if key == "" {
		return result, nil
	}

	existing, err := r.store.ListByUser(ctx, userID)
	if err != nil {
		r.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to load subscriptions for dedup")
		return result, nil
	}

	var stale []string
	for _, s := range existing {
		if s.Endpoint == in.Endpoint {
			continue
		}
		if r.resolver.Identify(deviceOf(s)) == key {
			stale = append(stale, s.ID)
		}
	}
	if len(stale) == 0 {
		return result, nil
	}

	if _, err := r.store.DeleteByIDs(ctx, userID, stale); err != nil {
		r.logger.Warn().Err(err).Str("user_id", userID).Int("count", len(stale)).Msg("Failed to prune duplicate subscriptions")
		return result, nil
	}

	r.logger.Info().Str("user_id", userID).Str("device", key).Int("pruned", len(stale)).Msg("Pruned duplicate subscriptions")
	result.Pruned = stale
	return result, nil
}

// Unsubscribe is idempotent; removing an unknown endpoint is not an error.
func (r *Reconciler) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return apperrors.Invalid("endpoint is required")
	}
	_, err := r.store.DeleteByEndpoint(ctx, userID, endpoint)
	return err
}

func (r *Reconciler) List(ctx context.Context, userID string) ([]*models.PushSubscription, error) {
	return r.store.ListByUser(ctx, userID)
}

func deviceOf(s *models.PushSubscription) identity.Device {
	var d identity.Device
	if s.DeviceID != nil {
		d.DeviceID = *s.DeviceID
	}
	if s.UserAgent != nil {
		d.UserAgent = *s.UserAgent
	}
	return d
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
