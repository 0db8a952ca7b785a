package endpoints

import (
	"errors"

	"github.com/skip2/go-qrcode"
)

// GenerateQRCode renders the webhook URL as a PNG so it can be scanned into another system.
func GenerateQRCode(webhookURL string, size int) ([]byte, error) {
	if size == 0 {
		size = 512
	}
	if size < 128 || size > 2048 {
		return nil, errors.New("invalid size: must be between 128 and 2048")
	}

	// secrets make the URL long; Low keeps the symbol small enough to scan
	qr, err := qrcode.New(webhookURL, qrcode.Low)
	if err != nil {
		return nil, err
	}
	return qr.PNG(size)
}
