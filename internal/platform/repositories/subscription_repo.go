package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"pushhook/internal/platform/database"
	"pushhook/internal/platform/models"
)

const subscriptionColumns = `id, user_id, endpoint, p256dh, auth, user_agent, device_id, created_at, updated_at`

type SubscriptionRepository struct {
	db *database.DB
}

func NewSubscriptionRepository(db *database.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert inserts the subscription or overwrites keys, user agent and device id of the
// existing (user_id, endpoint) row. sub.ID and sub.CreatedAt are set to the stored row's values.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	now := time.Now().Unix()
	id := "sub_" + uuid.New().String()

	query := `
		INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth, user_agent, device_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, endpoint) DO UPDATE SET
			p256dh = excluded.p256dh,
			auth = excluded.auth,
			user_agent = excluded.user_agent,
			device_id = excluded.device_id,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query),
		id, sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth,
		nullable(sub.UserAgent), nullable(sub.DeviceID), now, now,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return err
	}

	sub.UpdatedAt = now
	return nil
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]*models.PushSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM push_subscriptions WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []*models.PushSubscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ListUserIDs returns every user that owns at least one subscription.
func (r *SubscriptionRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM push_subscriptions ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SubscriptionRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM push_subscriptions WHERE id = ?`), id)
	return err
}

// DeleteByIDs only removes rows owned by userID.
func (r *SubscriptionRepository) DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	query := `DELETE FROM push_subscriptions WHERE user_id = ? AND id IN (` + database.Placeholders(len(ids)) + `)`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SubscriptionRepository) DeleteByEndpoint(ctx context.Context, userID, endpoint string) (int64, error) {
	query := `DELETE FROM push_subscriptions WHERE user_id = ? AND endpoint = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), userID, endpoint)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSubscription(s interface {
	Scan(dest ...interface{}) error
}) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	var userAgent, deviceID sql.NullString

	err := s.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &userAgent, &deviceID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}

	sub.UserAgent = stringPtr(userAgent)
	sub.DeviceID = stringPtr(deviceID)
	return &sub, nil
}
