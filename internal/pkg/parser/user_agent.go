package parser

import "strings"

// ParseUserAgent returns display names for the platform and browser of a subscribed device.
func ParseUserAgent(ua string) (os, browser string) {
	uaLower := strings.ToLower(ua)

	// Mobile first: iOS agents mention "mac os", Android agents mention "linux"
	switch {
	case strings.Contains(uaLower, "iphone"), strings.Contains(uaLower, "ipad"):
		os = "iOS"
	case strings.Contains(uaLower, "android"):
		os = "Android"
	case strings.Contains(uaLower, "windows"):
		os = "Windows"
	case strings.Contains(uaLower, "mac os"), strings.Contains(uaLower, "macintosh"):
		os = "macOS"
	case strings.Contains(uaLower, "linux"):
		os = "Linux"
	default:
		os = "Unknown"
	}

	switch {
	case strings.Contains(uaLower, "edg/"), strings.Contains(uaLower, "edge"):
		browser = "Edge"
	case strings.Contains(uaLower, "samsungbrowser"):
		browser = "Samsung Internet"
	case strings.Contains(uaLower, "firefox"), strings.Contains(uaLower, "fxios"):
		browser = "Firefox"
	case strings.Contains(uaLower, "chrome"), strings.Contains(uaLower, "crios"):
		browser = "Chrome"
	case strings.Contains(uaLower, "safari"):
		browser = "Safari"
	default:
		browser = "Unknown"
	}

	return os, browser
}

// Label is the "Chrome em Android" string shown in the device list.
func Label(ua string) string {
	if strings.TrimSpace(ua) == "" {
		return "Dispositivo desconhecido"
	}
	os, browser := ParseUserAgent(ua)
	return browser + " em " + os
}
