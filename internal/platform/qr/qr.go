package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DataURI renders a URL as a scannable PNG and returns it as a data URI the
// frontend can drop straight into an <img> tag or an email body.
func DataURI(url string) (string, error) {
	png, err := qrcode.Encode(url, qrcode.High, 256)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
