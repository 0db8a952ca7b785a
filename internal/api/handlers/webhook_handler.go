package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"pushhook/internal/api/middleware"
	"pushhook/internal/engine/dispatch"
	"pushhook/internal/engine/endpoints"
	"pushhook/internal/engine/payload"
	"pushhook/internal/engine/webhooklog"
	"pushhook/internal/platform/config"
	"pushhook/internal/platform/metrics"
	"pushhook/internal/platform/models"
)

const (
	msgSent          = "Notificação enviada"
	msgNotSent       = "Nenhuma notificação enviada"
	msgInvalidToken  = "Token inválido"
	msgNotFound      = "Endpoint não encontrado"
	msgLoadFailed    = "Erro ao buscar dispositivos"
	msgInternalError = "Erro interno"
	msgRateLimited   = "Limite de requisições excedido"
)

type EndpointLookup interface {
	GetByID(ctx context.Context, id string) (*models.Endpoint, error)
}

type SubscriptionLoader interface {
	ListByUser(ctx context.Context, userID string) ([]*models.PushSubscription, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, subs []*models.PushSubscription, msg payload.Message) dispatch.Result
}

type WebhookRecorder interface {
	Record(entry webhooklog.Entry) <-chan error
}

// WebhookResponse is the body every webhook caller gets back.
type WebhookResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Devices int     `json:"devices"`
	Error   *string `json:"error"`
}

type WebhookHandler struct {
	endpoints EndpointLookup
	subs      SubscriptionLoader
	engine    Dispatcher
	recorder  WebhookRecorder
	cfg       config.WebhooksConfig
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	limiter   middleware.Limiter
	perMinute int
}

func NewWebhookHandler(endpoints EndpointLookup, subs SubscriptionLoader, engine Dispatcher, recorder WebhookRecorder, cfg config.WebhooksConfig, m *metrics.Metrics, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		endpoints: endpoints,
		subs:      subs,
		engine:    engine,
		recorder:  recorder,
		cfg:       cfg,
		metrics:   m,
		logger:    logger.With().Str("component", "webhook").Logger(),
	}
}

// WithRateLimit limits authenticated calls per endpoint and rejected calls per client address,
// so callers with a wrong token never spend the endpoint's own budget. perMinute <= 0 disables it.
func (h *WebhookHandler) WithRateLimit(limiter middleware.Limiter, perMinute int) *WebhookHandler {
	h.limiter = limiter
	h.perMinute = perMinute
	return h
}

// Handle serves GET and POST /webhook/:endpoint_id?token=...
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	endpointID := pathParam(r, "endpoint_id")

	token := r.URL.Query().Get("token")
	if token == "" {
		h.rejectAuth(w, r, http.StatusUnauthorized, msgInvalidToken, "unauthorized")
		return
	}

	endpoint, err := h.endpoints.GetByID(r.Context(), endpointID)
	if err != nil {
		h.logger.Error().Err(err).Str("endpoint_id", endpointID).Msg("Failed to load endpoint")
		h.reject(w, http.StatusInternalServerError, msgInternalError, "error")
		return
	}
	if endpoint == nil {
		if h.cfg.ConcealNotFound {
			h.rejectAuth(w, r, http.StatusUnauthorized, msgInvalidToken, "unauthorized")
		} else {
			h.rejectAuth(w, r, http.StatusNotFound, msgNotFound, "not_found")
		}
		return
	}

	if !endpoints.MatchSecret(endpoint.Secret, token) {
		h.rejectAuth(w, r, http.StatusUnauthorized, msgInvalidToken, "unauthorized")
		return
	}

	if !h.allow(r, "webhook", endpoint.ID) {
		h.reject(w, http.StatusTooManyRequests, msgRateLimited, "rate_limited")
		return
	}

	trig := payload.Trigger{
		Body:  h.readBody(r),
		Query: flattenQuery(r),
	}

	subs, err := h.subs.ListByUser(r.Context(), endpoint.UserID)
	if err != nil {
		h.logger.Error().Err(err).Str("endpoint_id", endpoint.ID).Msg("Failed to load subscriptions")
		h.recorder.Record(webhooklog.Entry{EndpointID: endpoint.ID, Body: trig.Body, Query: trig.Query, Error: msgLoadFailed})
		h.metrics.Webhook(string(endpoint.Type), "error")

		errMsg := msgLoadFailed
		writeJSON(w, http.StatusInternalServerError, WebhookResponse{Message: msgNotSent, Error: &errMsg})
		return
	}

	msg := payload.Build(endpoint.Type, payload.ConfigFor(endpoint, h.cfg.ValueMaxLength), trig)
	result := h.engine.Dispatch(r.Context(), subs, msg)

	resp := WebhookResponse{
		Success: result.SentAny(),
		Message: msgNotSent,
		Devices: len(subs),
	}
	if resp.Success {
		resp.Message = msgSent
	}
	if e := result.ErrorMessage(); e != "" {
		resp.Error = &e
	}

	// write failures are logged by the recorder and never reach the caller
	h.recorder.Record(webhooklog.Entry{
		EndpointID: endpoint.ID,
		Body:       trig.Body,
		Query:      trig.Query,
		Sent:       resp.Success,
		Devices:    resp.Devices,
		Error:      result.ErrorMessage(),
	})

	h.metrics.Webhook(string(endpoint.Type), webhookResult(result))
	h.logger.Info().
		Str("endpoint_id", endpoint.ID).
		Str("type", string(endpoint.Type)).
		Int("devices", result.Total).
		Int("sent", result.Succeeded).
		Int("gone", result.Gone).
		Int("failed", result.Failed).
		Msg("Webhook dispatched")

	writeJSON(w, http.StatusOK, resp)
}

func (h *WebhookHandler) reject(w http.ResponseWriter, status int, message, result string) {
	h.metrics.Webhook("", result)
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "60")
	}
	errMsg := message
	writeJSON(w, status, WebhookResponse{Message: message, Error: &errMsg})
}

// rejectAuth answers a failed token check, or 429 once the client address has failed too often.
func (h *WebhookHandler) rejectAuth(w http.ResponseWriter, r *http.Request, status int, message, result string) {
	if !h.allow(r, "webhook-bad", middleware.ClientIP(r)) {
		h.reject(w, http.StatusTooManyRequests, msgRateLimited, "rate_limited")
		return
	}
	h.reject(w, status, message, result)
}

func (h *WebhookHandler) allow(r *http.Request, scope, key string) bool {
	if h.limiter == nil || h.perMinute <= 0 {
		return true
	}
	if h.limiter.Allow(r.Context(), scope+":"+key, h.perMinute) {
		return true
	}
	h.metrics.RateLimited(scope)
	return false
}

// readBody decodes a JSON object body. Anything else, including a missing or broken body, is nil.
func (h *WebhookHandler) readBody(r *http.Request) map[string]interface{} {
	if r.Body == nil || !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return nil
	}

	maxBytes := h.cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBytes))
	dec.UseNumber()

	var body map[string]interface{}
	if err := dec.Decode(&body); err != nil {
		return nil
	}
	return body
}

func flattenQuery(r *http.Request) map[string]string {
	query := map[string]string{}
	for key, values := range r.URL.Query() {
		if key == "token" || len(values) == 0 {
			continue
		}
		query[key] = values[len(values)-1]
	}
	return query
}

func webhookResult(res dispatch.Result) string {
	switch {
	case res.NoDevices():
		return "no_devices"
	case res.SentAny():
		return "sent"
	}
	return "failed"
}
