package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/storeassist/internal/api/handlers"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checks     map[string]handlers.Pinger
		wantStatus int
		wantBody   string
		wantChecks int
	}{
		{"healthy", map[string]handlers.Pinger{"postgres": ok, "redis": ok}, http.StatusOK, "ok", 2},
		{"redis down", map[string]handlers.Pinger{"postgres": ok, "redis": down}, http.StatusServiceUnavailable, "degraded", 2},
		{"nil skipped", map[string]handlers.Pinger{"postgres": ok, "redis": nil}, http.StatusOK, "ok", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := handlers.NewHealthHandler(tt.checks)
			w := httptest.NewRecorder()
			handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.wantBody, body.Status)
			assert.Len(t, body.Checks, tt.wantChecks)
		})
	}
}
