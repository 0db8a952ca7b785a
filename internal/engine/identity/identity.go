package identity

import (
	"regexp"
	"strings"
)

var (
	parenGroup  = regexp.MustCompile(`\(([^)]+)\)`)
	nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)
)

// FromUserAgent maps a user agent onto a coarse device key. Returns "" for an empty user agent.
// Two Android phones of the same model, or any two iPhones, share a key.
func FromUserAgent(ua string) string {
	if strings.TrimSpace(ua) == "" {
		return ""
	}

	lower := strings.ToLower(ua)
	switch {
	case strings.Contains(lower, "iphone"):
		return "iphone"
	case strings.Contains(lower, "ipad"):
		return "ipad"
	case strings.Contains(lower, "android"):
		if model := androidModel(ua); model != "" {
			return "android-" + model
		}
		return "android"
	case strings.Contains(lower, "windows"):
		return "windows"
	case strings.Contains(lower, "macintosh"), strings.Contains(lower, "mac os"):
		return "mac"
	case strings.Contains(lower, "linux"):
		return "linux"
	}
	return "unknown"
}

// androidModel reads the third field of "(Linux; Android 14; Pixel 8)".
func androidModel(ua string) string {
	m := parenGroup.FindStringSubmatch(ua)
	if m == nil {
		return ""
	}

	parts := strings.Split(m[1], ";")
	if len(parts) < 3 {
		return ""
	}

	model := strings.ToLower(strings.TrimSpace(parts[2]))
	model = nonAlphaNum.ReplaceAllString(model, "-")
	return strings.Trim(model, "-")
}

// Device is what a client reports about itself when subscribing.
type Device struct {
	DeviceID  string
	UserAgent string
}

// Resolver returns a stable key for a device or "" when it cannot tell.
type Resolver interface {
	Identify(d Device) string
}

type UserAgentResolver struct{}

func (UserAgentResolver) Identify(d Device) string {
	key := FromUserAgent(d.UserAgent)
	if key == "" {
		return ""
	}
	return "ua:" + key
}

// DeviceIDResolver trusts the client-generated persistent id.
type DeviceIDResolver struct{}

func (DeviceIDResolver) Identify(d Device) string {
	id := strings.TrimSpace(d.DeviceID)
	if id == "" {
		return ""
	}
	return "id:" + id
}

// Chain returns the first non-empty key.
type Chain []Resolver

func (c Chain) Identify(d Device) string {
	for _, r := range c {
		if key := r.Identify(d); key != "" {
			return key
		}
	}
	return ""
}

// Default prefers the explicit device id over the user agent heuristic.
func Default() Resolver {
	return Chain{DeviceIDResolver{}, UserAgentResolver{}}
}
