package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"pushhook/internal/platform/database"
	"pushhook/internal/platform/models"
)

const endpointColumns = `id, user_id, name, type, secret, generic_title, generic_body, created_at, updated_at`

type EndpointRepository struct {
	db *database.DB
}

func NewEndpointRepository(db *database.DB) *EndpointRepository {
	return &EndpointRepository{db: db}
}

func (r *EndpointRepository) Create(ctx context.Context, endpoint *models.Endpoint) error {
	if endpoint.ID == "" {
		endpoint.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	endpoint.CreatedAt = now
	endpoint.UpdatedAt = now

	query := `
		INSERT INTO endpoints (id, user_id, name, type, secret, generic_title, generic_body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		endpoint.ID, endpoint.UserID, endpoint.Name, string(endpoint.Type), endpoint.Secret,
		nullable(endpoint.GenericTitle), nullable(endpoint.GenericBody),
		endpoint.CreatedAt, endpoint.UpdatedAt)
	return err
}

// GetByID is the webhook gateway lookup; it is not scoped to a user. Returns nil, nil when missing.
func (r *EndpointRepository) GetByID(ctx context.Context, id string) (*models.Endpoint, error) {
	query := `SELECT ` + endpointColumns + ` FROM endpoints WHERE id = ?`
	endpoint, err := scanEndpoint(r.db.QueryRowContext(ctx, r.db.Rebind(query), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return endpoint, err
}

func (r *EndpointRepository) GetForUser(ctx context.Context, id, userID string) (*models.Endpoint, error) {
	query := `SELECT ` + endpointColumns + ` FROM endpoints WHERE id = ? AND user_id = ?`
	endpoint, err := scanEndpoint(r.db.QueryRowContext(ctx, r.db.Rebind(query), id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return endpoint, err
}

func (r *EndpointRepository) ListByUser(ctx context.Context, userID string) ([]*models.Endpoint, error) {
	query := `SELECT ` + endpointColumns + ` FROM endpoints WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	endpoints := []*models.Endpoint{}
	for rows.Next() {
		endpoint, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, endpoint)
	}
	return endpoints, rows.Err()
}

// Update persists name, type and the generic texts. The secret is left untouched.
func (r *EndpointRepository) Update(ctx context.Context, endpoint *models.Endpoint) error {
	endpoint.UpdatedAt = time.Now().Unix()

	query := `
		UPDATE endpoints
		SET name = ?, type = ?, generic_title = ?, generic_body = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		endpoint.Name, string(endpoint.Type), nullable(endpoint.GenericTitle), nullable(endpoint.GenericBody),
		endpoint.UpdatedAt, endpoint.ID, endpoint.UserID)
	return err
}

func (r *EndpointRepository) UpdateSecret(ctx context.Context, id, userID, secret string) error {
	query := `UPDATE endpoints SET secret = ?, updated_at = ? WHERE id = ? AND user_id = ?`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), secret, time.Now().Unix(), id, userID)
	return err
}

// Delete removes the endpoint and its webhook logs. Reports whether a row was deleted.
func (r *EndpointRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM endpoints WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM webhook_logs WHERE endpoint_id = ?`), id); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

func scanEndpoint(s interface {
	Scan(dest ...interface{}) error
}) (*models.Endpoint, error) {
	var e models.Endpoint
	var typ string
	var genericTitle, genericBody sql.NullString

	err := s.Scan(&e.ID, &e.UserID, &e.Name, &typ, &e.Secret, &genericTitle, &genericBody, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.Type = models.EndpointType(typ)
	e.GenericTitle = stringPtr(genericTitle)
	e.GenericBody = stringPtr(genericBody)
	return &e, nil
}
