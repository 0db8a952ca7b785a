package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	apiContext "pushhook/internal/api/context"
	"pushhook/internal/engine/dispatch"
	"pushhook/internal/engine/endpoints"
	"pushhook/internal/engine/subscriptions"
	"pushhook/internal/engine/verify"
	"pushhook/internal/platform/auth"
	"pushhook/internal/platform/database"
	"pushhook/internal/platform/migrations"
	"pushhook/internal/platform/repositories"
)

// stack is the storage-backed part of the API with a fake push transport.
type stack struct {
	db        *database.DB
	subs      *repositories.SubscriptionRepository
	endpoints *repositories.EndpointRepository
	logs      *repositories.WebhookLogRepository
	transport *stubTransport
	push      *PushHandler
	endpoint  *EndpointHandler
}

func newStack(t *testing.T) *stack {
	t.Helper()

	raw, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	raw.SetMaxOpenConns(1)
	if err := migrations.Up(raw, database.DialectSQLite); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() { raw.Close() })

	db := database.Wrap(raw, database.DialectSQLite)
	s := &stack{
		db:        db,
		subs:      repositories.NewSubscriptionRepository(db),
		endpoints: repositories.NewEndpointRepository(db),
		logs:      repositories.NewWebhookLogRepository(db),
		transport: &stubTransport{statuses: map[string]int{}},
	}

	logger := zerolog.Nop()
	engine := dispatch.NewEngine(s.transport, dispatch.Policy{Strict: true}, s.subs, dispatch.SendOptions{TTL: 60}, nil, logger)
	s.push = NewPushHandler(
		subscriptions.NewReconciler(s.subs, nil, logger),
		verify.NewSweeper(s.subs, engine, logger),
		"BPublicKey",
		logger,
	)
	s.endpoint = NewEndpointHandler(endpoints.NewService(s.endpoints, "https://notify.example.com"), s.logs, logger)
	return s
}

// serve runs h as the given user with optional router params.
func serve(h http.HandlerFunc, userID, method, target string, body interface{}, params ...httprouter.Param) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, target, &buf)
	ctx := req.Context()
	if userID != "" {
		ctx = context.WithValue(ctx, apiContext.Claims, &auth.Claims{UserID: userID})
	}
	ctx = context.WithValue(ctx, apiContext.Params, httprouter.Params(params))

	rr := httptest.NewRecorder()
	h(rr, req.WithContext(ctx))
	return rr
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode %q: %v", rr.Body.String(), err)
	}
	return out
}
