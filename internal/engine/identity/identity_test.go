package identity

import (
	"testing"

	"pgregory.net/rapid"
)

func TestFromUserAgent(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"empty", "", ""},
		{"blank", "   ", ""},
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15", "iphone"},
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15", "ipad"},
		{"android model", "Mozilla/5.0 (Linux; Android 14; Pixel 8 Pro) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36", "android-pixel-8-pro"},
		{"android model punctuation", "Mozilla/5.0 (Linux; Android 13; SM-A525F/DS) AppleWebKit/537.36", "android-sm-a525f-ds"},
		{"android generic", "Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36", "android-k"},
		{"android no model", "Mozilla/5.0 (Android 14) Firefox/120.0", "android"},
		{"windows", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0", "windows"},
		{"mac", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Safari/605.1.15", "mac"},
		{"linux", "Mozilla/5.0 (X11; Linux x86_64) Firefox/121.0", "linux"},
		{"unknown", "curl/8.4.0", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromUserAgent(tt.ua); got != tt.want {
				t.Errorf("FromUserAgent(%q) = %q, want %q", tt.ua, got, tt.want)
			}
		})
	}
}

func TestDefault_DeviceIDWins(t *testing.T) {
	r := Default()

	ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"
	if got := r.Identify(Device{DeviceID: "dev-123", UserAgent: ua}); got != "id:dev-123" {
		t.Errorf("Expected device id to win, got %q", got)
	}
	if got := r.Identify(Device{UserAgent: ua}); got != "ua:iphone" {
		t.Errorf("Expected ua key, got %q", got)
	}
	if got := r.Identify(Device{}); got != "" {
		t.Errorf("Expected no identity, got %q", got)
	}
}

func TestDefault_ChannelsNeverCollide(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.StringMatching(`[a-z0-9-]{1,16}`).Draw(t, "id")
		ua := rapid.String().Draw(t, "ua")

		byID := Default().Identify(Device{DeviceID: id})
		byUA := Default().Identify(Device{UserAgent: ua})
		if byUA != "" && byID == byUA {
			t.Fatalf("device id %q and user agent %q resolved to the same key %q", id, ua, byID)
		}
	})
}

func TestFromUserAgent_Stable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ua := rapid.String().Draw(t, "ua")
		if FromUserAgent(ua) != FromUserAgent(ua) {
			t.Fatalf("unstable key for %q", ua)
		}
	})
}
