package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fjod/vapealley/internal/auth"
	"github.com/go-chi/chi/v5"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func withUser(r *http.Request, userID string, role auth.Role) *http.Request {
	ctx := context.WithValue(r.Context(), principalKey, auth.Principal{UserID: userID, Role: role})
	return r.WithContext(ctx)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp
}
