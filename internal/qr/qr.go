// Package qr renders token strings as scannable images. Stateless; the
// encoded bytes are exactly the input.
package qr

import (
	"encoding/base64"

	qrcode "github.com/skip2/go-qrcode"
)

// PNG renders text as a QR code PNG of the given edge size in pixels.
func PNG(text string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(text, qrcode.Medium, size)
}

// DataURL renders text as a PNG data URL suitable for an <img> src.
func DataURL(text string) (string, error) {
	png, err := PNG(text, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
