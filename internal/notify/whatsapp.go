package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/fjod/vapealley/internal/circuitbreaker"
	"github.com/fjod/vapealley/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrMissingToken = errors.New("WHAPI_TOKEN is not set")

// WhatsAppClient sends text messages through the Whapi gateway.
type WhatsAppClient struct {
	url     string
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *slog.Logger
}

func NewWhatsAppClient(url, token string, logger *slog.Logger) *WhatsAppClient {
	return &WhatsAppClient{
		url:   url,
		token: token,
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuitbreaker.New[struct{}]("whapi", circuitbreaker.Settings{}, logger),
		logger:  logger,
	}
}

type textMessage struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// SendOrderConfirmation tells the customer their order was received.
func (c *WhatsAppClient) SendOrderConfirmation(ctx context.Context, event domain.OrderPlacedEvent) error {
	if c.token == "" {
		return ErrMissingToken
	}
	phone := digitsOnly(event.Phone)
	if phone == "" {
		return fmt.Errorf("order %s has no usable phone number", event.OrderID)
	}

	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.send(ctx, textMessage{To: phone, Body: ConfirmationMessage(event)})
	})
	if err != nil {
		return domain.Wrap(domain.KindUpstream, err, "whatsapp notification failed")
	}
	c.logger.InfoContext(ctx, "whatsapp notification sent", "order_id", event.OrderID, "to", phone)
	return nil
}

func (c *WhatsAppClient) send(ctx context.Context, msg textMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whapi returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

var amountPrinter = message.NewPrinter(language.English)

// ConfirmationMessage renders the text sent to the customer.
func ConfirmationMessage(event domain.OrderPlacedEvent) string {
	return amountPrinter.Sprintf("Hi %s, thanks for your order #%s of Rs %d. We are processing it now!",
		event.Customer, event.OrderID, event.Total)
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
