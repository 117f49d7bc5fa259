package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	h, err := Handler()
	require.NoError(t, err)

	tests := []struct {
		path     string
		code     int
		contains string
	}{
		{"/", http.StatusOK, "codereview playground"},
		{"/app.js", http.StatusOK, "/api/v1/review"},
		{"/history", http.StatusOK, "codereview playground"},
		{"/missing.css", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
			assert.Equal(t, tt.code, w.Code)
			if tt.contains != "" {
				assert.Contains(t, w.Body.String(), tt.contains)
			}
		})
	}
}
