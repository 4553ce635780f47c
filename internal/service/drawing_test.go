package service

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-form-drafts/internal/domain"
)

func TestDecodeDrawingDataURL(t *testing.T) {
	pngBytes := onePixelPNG(t)
	enc := base64.StdEncoding.EncodeToString(pngBytes)

	got, err := DecodeDrawingDataURL("data:image/png;base64," + enc)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)

	got, err = DecodeDrawingDataURL("  DATA:IMAGE/PNG;BASE64," + strings.TrimRight(enc, "=") + "\n")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
}

func TestDecodeDrawingDataURL_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not a data url", "not-a-data-url"},
		{"other image type", "data:image/jpeg;base64,/9j/4AAQ"},
		{"prefix not at start", "xx data:image/png;base64,AAAA"},
		{"empty payload", "data:image/png;base64,"},
		{"bad base64", "data:image/png;base64,@@@@"},
		{"not a png", "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("hello world"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDrawingDataURL(tt.input)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "drawing_data_url", ve.Field)
		})
	}
}
