package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"pushhook/internal/platform/database"
	"pushhook/internal/platform/models"
)

type WebhookLogRepository struct {
	db *database.DB
}

func NewWebhookLogRepository(db *database.DB) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

func (r *WebhookLogRepository) Create(ctx context.Context, entry *models.WebhookLog) error {
	if entry.ID == "" {
		entry.ID = "whl_" + uuid.New().String()
	}

	var payload interface{}
	if len(entry.Payload) > 0 {
		payload = string(entry.Payload)
	}

	queryJSON, err := json.Marshal(entry.Query)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO webhook_logs (id, endpoint_id, payload, query, sent, devices, error, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, r.db.Rebind(query),
		entry.ID, entry.EndpointID, payload, string(queryJSON), entry.Sent, entry.Devices, nullable(entry.Error), entry.ReceivedAt)
	return err
}

func (r *WebhookLogRepository) ListByEndpoint(ctx context.Context, endpointID string, limit int) ([]*models.WebhookLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, endpoint_id, payload, query, sent, devices, error, received_at
		FROM webhook_logs WHERE endpoint_id = ?
		ORDER BY received_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), endpointID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*models.WebhookLog{}
	for rows.Next() {
		var l models.WebhookLog
		var payload, queryStr, errStr sql.NullString

		if err := rows.Scan(&l.ID, &l.EndpointID, &payload, &queryStr, &l.Sent, &l.Devices, &errStr, &l.ReceivedAt); err != nil {
			return nil, err
		}

		if payload.Valid && payload.String != "" {
			l.Payload = json.RawMessage(payload.String)
		}
		if queryStr.Valid {
			json.Unmarshal([]byte(queryStr.String), &l.Query)
		}
		l.Error = stringPtr(errStr)
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func (r *WebhookLogRepository) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM webhook_logs WHERE received_at < ?`), cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
