package reconciler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/vapealley/internal/circuitbreaker"
	"github.com/fjod/vapealley/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RemoteCart is the server-side cart of a signed-in user.
type RemoteCart interface {
	Fetch(ctx context.Context, s Session) ([]Line, error)
	Add(ctx context.Context, s Session, productID string, quantity int, color string) error
	SetQuantity(ctx context.Context, s Session, productID string, quantity int) error
	Remove(ctx context.Context, s Session, productID string) error
	Clear(ctx context.Context, s Session) error
}

// StatusError is a non-2xx answer from the cart API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cart api returned %d: %s", e.StatusCode, e.Body)
}

// HTTPCart calls the /api/cart endpoints.
type HTTPCart struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewHTTPCart(baseURL string, logger *slog.Logger) *HTTPCart {
	return &HTTPCart{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuitbreaker.New[[]byte]("cart-api", circuitbreaker.Settings{}, logger),
	}
}

func (c *HTTPCart) Fetch(ctx context.Context, s Session) ([]Line, error) {
	body, err := c.call(ctx, s, http.MethodGet, "/api/cart", nil)
	if err != nil {
		return nil, err
	}

	var items []domain.CartLine
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, lineFromServer(item))
	}
	return lines, nil
}

func (c *HTTPCart) Add(ctx context.Context, s Session, productID string, quantity int, color string) error {
	_, err := c.call(ctx, s, http.MethodPost, "/api/cart", map[string]any{
		"productId":     productID,
		"quantity":      quantity,
		"selectedColor": color,
	})
	return err
}

func (c *HTTPCart) SetQuantity(ctx context.Context, s Session, productID string, quantity int) error {
	_, err := c.call(ctx, s, http.MethodPut, "/api/cart/"+url.PathEscape(productID), map[string]int{"quantity": quantity})
	return err
}

func (c *HTTPCart) Remove(ctx context.Context, s Session, productID string) error {
	_, err := c.call(ctx, s, http.MethodDelete, "/api/cart/"+url.PathEscape(productID), nil)
	return err
}

func (c *HTTPCart) Clear(ctx context.Context, s Session) error {
	_, err := c.call(ctx, s, http.MethodDelete, "/api/cart", nil)
	return err
}

// call sends one request through the breaker. Client errors (4xx) are
// returned without counting against the breaker.
func (c *HTTPCart) call(ctx context.Context, s Session, method, path string, payload any) ([]byte, error) {
	var clientErr error
	body, err := c.breaker.Execute(func() ([]byte, error) {
		body, err := c.do(ctx, s, method, path, payload)
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode < http.StatusInternalServerError {
			clientErr = se
			return nil, nil
		}
		return body, err
	})
	if clientErr != nil {
		return nil, clientErr
	}
	return body, err
}

func (c *HTTPCart) do(ctx context.Context, s Session, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
