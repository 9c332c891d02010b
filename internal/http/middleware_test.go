package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
)

func limitedStatuses(handler http.Handler, remoteAddr string, forwardedFor func(i int) string) []int {
	codes := make([]int, 0, 3)
	for i := range 3 {
		req := httptest.NewRequest("POST", "/api/orders", nil)
		req.RemoteAddr = remoteAddr
		req.Header.Set("X-Forwarded-For", forwardedFor(i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	return codes
}

func TestRateLimiter_IgnoresForwardedForByDefault(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := NewRateLimiter(1, 2).Middleware(ok)

	codes := limitedStatuses(handler, "203.0.113.7:5000", func(i int) string {
		return fmt.Sprintf("198.51.100.%d", i+1)
	})

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_BehindTrustedProxy(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := middleware.RealIP(NewRateLimiter(1, 2).Middleware(ok))

	// one proxy address, distinct clients
	codes := limitedStatuses(handler, "10.0.0.1:5000", func(i int) string {
		return fmt.Sprintf("198.51.100.%d", i+1)
	})
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusOK}, codes)

	codes = limitedStatuses(handler, "10.0.0.1:5000", func(int) string { return "198.51.100.9" })
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
