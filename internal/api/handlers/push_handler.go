package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/rs/zerolog"
	"pushhook/internal/api/middleware"
	"pushhook/internal/engine/dispatch"
	"pushhook/internal/engine/subscriptions"
	"pushhook/internal/engine/verify"
	"pushhook/internal/pkg/errors"
	"pushhook/internal/pkg/parser"
)

type PushHandler struct {
	reconciler     *subscriptions.Reconciler
	sweeper        *verify.Sweeper
	vapidPublicKey string
	logger         zerolog.Logger
}

func NewPushHandler(reconciler *subscriptions.Reconciler, sweeper *verify.Sweeper, vapidPublicKey string, logger zerolog.Logger) *PushHandler {
	return &PushHandler{
		reconciler:     reconciler,
		sweeper:        sweeper,
		vapidPublicKey: vapidPublicKey,
		logger:         logger.With().Str("component", "push").Logger(),
	}
}

// Subscribe accepts the browser's PushSubscription.toJSON() plus the client's user agent and
// optional persistent device id.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req struct {
		Subscription *struct {
			Endpoint string `json:"endpoint"`
			Keys     struct {
				P256dh string `json:"p256dh"`
				Auth   string `json:"auth"`
			} `json:"keys"`
		} `json:"subscription"`
		UserAgent string `json:"userAgent"`
		DeviceID  string `json:"deviceId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Subscription == nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Subscription inválida", nil)
		return
	}

	ua := req.UserAgent
	if ua == "" {
		ua = r.UserAgent()
	}

	result, err := h.reconciler.Reconcile(r.Context(), userID, subscriptions.Incoming{
		Endpoint:  req.Subscription.Endpoint,
		P256dh:    req.Subscription.Keys.P256dh,
		Auth:      req.Subscription.Keys.Auth,
		UserAgent: ua,
		DeviceID:  req.DeviceID,
	})
	if err != nil {
		var verr *errors.ValidationError
		if stderrors.As(err, &verr) {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Subscription inválida", map[string]string{"reason": verr.Reason})
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to save subscription")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Erro ao salvar subscription", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      result.Subscription.ID,
		"removed": len(result.Pruned),
	})
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if err := h.reconciler.Unsubscribe(r.Context(), userID, req.Endpoint); err != nil {
		writeServiceError(w, h.logger, err, "Erro ao remover subscription")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Verify checks every device of the caller and removes the dead ones.
func (h *PushHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	summary, err := h.sweeper.Sweep(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Verification sweep failed")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Erro ao buscar dispositivos", nil)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool                `json:"success"`
		Message string              `json:"message"`
		Removed int                 `json:"removed"`
		Total   int                 `json:"total"`
		Details []dispatch.Delivery `json:"details"`
	}{
		Success: true,
		Message: summary.Message,
		Removed: summary.Removed,
		Total:   summary.Total,
		Details: summary.Details,
	})
}

type deviceView struct {
	ID        string  `json:"id"`
	Endpoint  string  `json:"endpoint"`
	Label     string  `json:"label"`
	UserAgent *string `json:"user_agent,omitempty"`
	DeviceID  *string `json:"device_id,omitempty"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}

func (h *PushHandler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	subs, err := h.reconciler.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Erro ao buscar dispositivos")
		return
	}

	devices := make([]deviceView, 0, len(subs))
	for _, s := range subs {
		ua := ""
		if s.UserAgent != nil {
			ua = *s.UserAgent
		}
		devices = append(devices, deviceView{
			ID:        s.ID,
			Endpoint:  dispatch.ShortEndpoint(s.Endpoint),
			Label:     parser.Label(ua),
			UserAgent: s.UserAgent,
			DeviceID:  s.DeviceID,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"subscriptions": devices})
}

// VAPIDPublicKey is public; browsers need it before they can subscribe.
func (h *PushHandler) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.vapidPublicKey})
}
