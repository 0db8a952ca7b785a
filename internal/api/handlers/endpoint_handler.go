package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"pushhook/internal/api/middleware"
	"pushhook/internal/engine/endpoints"
	"pushhook/internal/pkg/errors"
	"pushhook/internal/platform/models"
)

type WebhookLogLister interface {
	ListByEndpoint(ctx context.Context, endpointID string, limit int) ([]*models.WebhookLog, error)
}

type EndpointHandler struct {
	service *endpoints.Service
	logs    WebhookLogLister
	logger  zerolog.Logger
}

func NewEndpointHandler(service *endpoints.Service, logs WebhookLogLister, logger zerolog.Logger) *EndpointHandler {
	return &EndpointHandler{
		service: service,
		logs:    logs,
		logger:  logger.With().Str("component", "endpoints").Logger(),
	}
}

type endpointView struct {
	*models.Endpoint
	WebhookURL string `json:"webhook_url"`
}

func (h *EndpointHandler) view(e *models.Endpoint) endpointView {
	return endpointView{Endpoint: e, WebhookURL: h.service.WebhookURL(e)}
}

func (h *EndpointHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list endpoints")
		return
	}

	views := make([]endpointView, 0, len(list))
	for _, e := range list {
		views = append(views, h.view(e))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"endpoints": views})
}

func (h *EndpointHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string  `json:"name"`
		Type         string  `json:"type"`
		GenericTitle *string `json:"generic_title"`
		GenericBody  *string `json:"generic_body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	endpoint, err := h.service.Create(r.Context(), middleware.UserID(r.Context()), endpoints.CreateInput{
		Name:         req.Name,
		Type:         models.EndpointType(req.Type),
		GenericTitle: req.GenericTitle,
		GenericBody:  req.GenericBody,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create endpoint")
		return
	}

	writeJSON(w, http.StatusCreated, h.view(endpoint))
}

func (h *EndpointHandler) Get(w http.ResponseWriter, r *http.Request) {
	endpoint, err := h.service.Get(r.Context(), middleware.UserID(r.Context()), pathParam(r, "endpoint_id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load endpoint")
		return
	}
	writeJSON(w, http.StatusOK, h.view(endpoint))
}

func (h *EndpointHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         *string `json:"name"`
		Type         *string `json:"type"`
		GenericTitle *string `json:"generic_title"`
		GenericBody  *string `json:"generic_body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	in := endpoints.UpdateInput{
		Name:         req.Name,
		GenericTitle: req.GenericTitle,
		GenericBody:  req.GenericBody,
	}
	if req.Type != nil {
		typ := models.EndpointType(*req.Type)
		in.Type = &typ
	}

	endpoint, err := h.service.Update(r.Context(), middleware.UserID(r.Context()), pathParam(r, "endpoint_id"), in)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update endpoint")
		return
	}
	writeJSON(w, http.StatusOK, h.view(endpoint))
}

func (h *EndpointHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.UserID(r.Context()), pathParam(r, "endpoint_id")); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete endpoint")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EndpointHandler) RotateSecret(w http.ResponseWriter, r *http.Request) {
	endpoint, err := h.service.RotateSecret(r.Context(), middleware.UserID(r.Context()), pathParam(r, "endpoint_id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to rotate secret")
		return
	}
	writeJSON(w, http.StatusOK, h.view(endpoint))
}

func (h *EndpointHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	endpoint, err := h.service.Get(r.Context(), middleware.UserID(r.Context()), pathParam(r, "endpoint_id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load endpoint")
		return
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	png, err := h.service.QRCode(endpoint, size)
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// Logs lists the latest webhook invocations of an endpoint the caller owns.
func (h *EndpointHandler) Logs(w http.ResponseWriter, r *http.Request) {
	endpoint, err := h.service.Get(r.Context(), middleware.UserID(r.Context()), pathParam(r, "endpoint_id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load endpoint")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.logs.ListByEndpoint(r.Context(), endpoint.ID, limit)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list webhook logs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}
