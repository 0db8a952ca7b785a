package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"pushhook/internal/platform/config"
)

// Target is the push service address and encryption keys of one subscription.
type Target struct {
	Endpoint string
	P256dh   string
	Auth     string
}

type SendOptions struct {
	TTL     int
	Urgency string
}

// Transport delivers one encrypted message. It returns the push service status code (0 when no
// response was received) and a non-nil error for anything other than 2xx.
type Transport interface {
	Send(ctx context.Context, target Target, body []byte, opts SendOptions) (int, error)
}

// StatusError is a push service response outside 2xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("push service returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("push service returned HTTP %d: %s", e.StatusCode, e.Body)
}

// WebPushTransport signs with the VAPID key pair and encrypts per RFC 8291 via webpush-go.
type WebPushTransport struct {
	client     *http.Client
	publicKey  string
	privateKey string
	subscriber string
}

func NewWebPushTransport(cfg config.PushConfig) *WebPushTransport {
	return &WebPushTransport{
		client:     &http.Client{Timeout: cfg.Timeout},
		publicKey:  cfg.VAPIDPublicKey,
		privateKey: cfg.VAPIDPrivateKey,
		subscriber: cfg.Subscriber,
	}
}

func (t *WebPushTransport) Send(ctx context.Context, target Target, body []byte, opts SendOptions) (int, error) {
	sub := &webpush.Subscription{
		Endpoint: target.Endpoint,
		Keys: webpush.Keys{
			P256dh: target.P256dh,
			Auth:   target.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, sub, &webpush.Options{
		HTTPClient:      t.client,
		Subscriber:      t.subscriber,
		TTL:             opts.TTL,
		Urgency:         webpush.Urgency(opts.Urgency),
		VAPIDPublicKey:  t.publicKey,
		VAPIDPrivateKey: t.privateKey,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Body: string(detail)}
}

// GenerateVAPIDKeys returns a fresh (private, public) key pair, base64url encoded.
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	return webpush.GenerateVAPIDKeys()
}
