package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", NewValidationError("bad"), http.StatusBadRequest},
		{"not found", NewNotFoundError("missing"), http.StatusNotFound},
		{"export", NewExportError(fmt.Errorf("boom")), http.StatusBadRequest},
		{"unauthorized", NewUnauthorizedError("no"), http.StatusUnauthorized},
		{"rate limited", NewRateLimitedError("slow down"), http.StatusTooManyRequests},
		{"internal", NewInternalError("oops", nil), http.StatusInternalServerError},
		{"plain", fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, GetStatusCode(tc.err))
		})
	}
}

func TestIsType_Wrapped(t *testing.T) {
	err := fmt.Errorf("create draft: %w", NewValidationError("invalid drawing"))

	assert.True(t, IsType(err, ErrorTypeValidation))
	assert.False(t, IsType(err, ErrorTypeNotFound))
	assert.Equal(t, http.StatusBadRequest, GetStatusCode(err))
	assert.Equal(t, "invalid drawing", Message(err))
}

func TestNewExportError_Message(t *testing.T) {
	cause := fmt.Errorf("template has no pages")
	err := NewExportError(cause)

	assert.Equal(t, "Export failed: template has no pages", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestAppError_ErrorString(t *testing.T) {
	assert.Equal(t, "validation: bad (field x)", NewValidationError("bad", "field x").Error())
	assert.Equal(t, "not_found: gone", NewNotFoundError("gone").Error())
	assert.Equal(t, "Internal server error", Message(fmt.Errorf("raw")))
}
