package dispatch

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pushhook/internal/platform/config"
)

func testTarget(t *testing.T, endpoint string) Target {
	t.Helper()

	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	auth := make([]byte, 16)
	rand.Read(auth)

	return Target{
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
	}
}

func testTransport(t *testing.T) *WebPushTransport {
	t.Helper()

	priv, pub, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("Failed to generate VAPID keys: %v", err)
	}
	return NewWebPushTransport(config.PushConfig{
		VAPIDPublicKey:  pub,
		VAPIDPrivateKey: priv,
		Subscriber:      "admin@localhost",
		Timeout:         5 * time.Second,
	})
}

func TestWebPushTransport_Send(t *testing.T) {
	var gotTTL, gotUrgency, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTTL = r.Header.Get("TTL")
		gotUrgency = r.Header.Get("Urgency")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	tr := testTransport(t)
	status, err := tr.Send(context.Background(), testTarget(t, server.URL+"/push/abc"), []byte(`{"title":"t"}`), SendOptions{TTL: 60, Urgency: "high"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if status != http.StatusCreated {
		t.Errorf("Expected 201, got %d", status)
	}
	if gotTTL != "60" || gotUrgency != "high" {
		t.Errorf("Unexpected headers TTL=%q Urgency=%q", gotTTL, gotUrgency)
	}
	if gotAuth == "" {
		t.Error("Expected VAPID authorization header")
	}
}

func TestWebPushTransport_Gone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
		w.Write([]byte("push subscription has unsubscribed or expired"))
	}))
	defer server.Close()

	tr := testTransport(t)
	status, err := tr.Send(context.Background(), testTarget(t, server.URL), []byte(`{}`), SendOptions{})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if status != http.StatusGone || statusErr.StatusCode != http.StatusGone {
		t.Errorf("Expected 410, got %d", status)
	}
	if (Policy{}).Classify(status, err) != OutcomeGone {
		t.Error("Expected gone outcome")
	}
}

func TestWebPushTransport_MalformedKeys(t *testing.T) {
	tr := testTransport(t)
	status, err := tr.Send(context.Background(), Target{Endpoint: "http://127.0.0.1:1", P256dh: "bad", Auth: "bad"}, []byte(`{}`), SendOptions{})
	if err == nil {
		t.Fatal("Expected error for malformed keys")
	}
	if (Policy{Strict: true}).Classify(status, err) != OutcomeTransient {
		t.Error("Malformed keys must not be classified as gone")
	}
}
