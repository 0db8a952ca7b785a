package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "pushhook/internal/api/context"
	"pushhook/internal/api/handlers"
	"pushhook/internal/api/middleware"
	"pushhook/internal/pkg/errors"
	"pushhook/internal/platform/config"
	"pushhook/internal/platform/metrics"
)

type Dependencies struct {
	WebhookHandler  *handlers.WebhookHandler
	PushHandler     *handlers.PushHandler
	EndpointHandler *handlers.EndpointHandler
	HealthHandler   *handlers.HealthHandler
	MetricsHandler  *handlers.MetricsHandler
	AuthMiddleware  *middleware.AuthMiddleware
	Limiter         middleware.Limiter
	RateLimit       config.RateLimitConfig
	Metrics         *metrics.Metrics
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Not found", nil)
	})

	m := deps.Metrics
	authMid := deps.AuthMiddleware
	apiLimit := middleware.RateLimit(deps.Limiter, "api", deps.RateLimit.APIPerMinute, middleware.ByUser, m)

	// route registers h under the pattern and labels its metrics with the same pattern
	route := func(method, path string, h http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) {
		middlewares = append([]func(http.HandlerFunc) http.HandlerFunc{middleware.Instrument(m, path)}, middlewares...)
		router.Handle(method, path, chain(h, middlewares...))
	}

	// Inbound webhooks, authenticated by the endpoint secret in the query string. The handler
	// rate limits after the token check.
	route(http.MethodGet, "/webhook/:endpoint_id", deps.WebhookHandler.Handle)
	route(http.MethodPost, "/webhook/:endpoint_id", deps.WebhookHandler.Handle)

	// Public
	route(http.MethodGet, "/health", deps.HealthHandler.Check)
	route(http.MethodGet, "/metrics", deps.MetricsHandler.Export)
	route(http.MethodGet, "/push/vapid-public-key", deps.PushHandler.VAPIDPublicKey)

	// Push subscriptions
	route(http.MethodPost, "/push/subscribe", deps.PushHandler.Subscribe, authMid.Handle, apiLimit)
	route(http.MethodPost, "/push/unsubscribe", deps.PushHandler.Unsubscribe, authMid.Handle, apiLimit)
	route(http.MethodPost, "/push/verify", deps.PushHandler.Verify, authMid.Handle, apiLimit)
	route(http.MethodGet, "/push/subscriptions", deps.PushHandler.Subscriptions, authMid.Handle, apiLimit)

	// Endpoint management
	route(http.MethodGet, "/api/v1/endpoints", deps.EndpointHandler.List, authMid.Handle, apiLimit)
	route(http.MethodPost, "/api/v1/endpoints", deps.EndpointHandler.Create, authMid.Handle, apiLimit)
	route(http.MethodGet, "/api/v1/endpoints/:endpoint_id", deps.EndpointHandler.Get, authMid.Handle, apiLimit)
	route(http.MethodPatch, "/api/v1/endpoints/:endpoint_id", deps.EndpointHandler.Update, authMid.Handle, apiLimit)
	route(http.MethodDelete, "/api/v1/endpoints/:endpoint_id", deps.EndpointHandler.Delete, authMid.Handle, apiLimit)
	route(http.MethodPost, "/api/v1/endpoints/:endpoint_id/rotate-secret", deps.EndpointHandler.RotateSecret, authMid.Handle, apiLimit)
	route(http.MethodGet, "/api/v1/endpoints/:endpoint_id/qr", deps.EndpointHandler.QRCode, authMid.Handle, apiLimit)
	route(http.MethodGet, "/api/v1/endpoints/:endpoint_id/logs", deps.EndpointHandler.Logs, authMid.Handle, apiLimit)

	return router
}

// chain applies middlewares outermost first.
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
