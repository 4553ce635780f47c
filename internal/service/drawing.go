package service

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"

	"pdf-form-drafts/internal/domain"
)

const pngDataURLPrefix = "data:image/png;base64,"

// DecodeDrawingDataURL returns the PNG bytes carried by a
// "data:image/png;base64," URL. Any other prefix, bad base64 or a payload that
// is not a PNG is a *domain.ValidationError.
func DecodeDrawingDataURL(dataURL string) ([]byte, error) {
	s := strings.TrimSpace(dataURL)
	if len(s) < len(pngDataURLPrefix) || !strings.EqualFold(s[:len(pngDataURLPrefix)], pngDataURLPrefix) {
		return nil, &domain.ValidationError{Field: "drawing_data_url", Message: "Invalid drawing data URL"}
	}
	payload := strings.TrimSpace(s[len(pngDataURLPrefix):])
	if payload == "" {
		return nil, &domain.ValidationError{Field: "drawing_data_url", Message: "Empty drawing payload"}
	}

	// Some canvases drop the trailing padding.
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return nil, &domain.ValidationError{Field: "drawing_data_url", Message: "Invalid base64 drawing data"}
	}

	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, &domain.ValidationError{Field: "drawing_data_url", Message: "Drawing is not a PNG image"}
	}
	return data, nil
}
