package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/vapealley/internal/auth"
	"github.com/fjod/vapealley/internal/domain"
)

type mockOrderService struct {
	order *domain.Order
	err   error

	placed *domain.PlaceOrderRequest
	status domain.OrderStatus
	id     string
}

func (m *mockOrderService) PlaceOrder(ctx context.Context, req *domain.PlaceOrderRequest) (*domain.Order, error) {
	m.placed = req
	return m.order, m.err
}

func (m *mockOrderService) List(ctx context.Context) ([]*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []*domain.Order{m.order}, nil
}

func (m *mockOrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	m.id = id
	return m.order, m.err
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	m.id, m.status = id, status
	return m.order, m.err
}

const validOrderBody = `{
  "customer": "Ali Khan",
  "email": "ali@example.com",
  "phone": "+92 300 1234567",
  "address": "12 Mall Road",
  "city": "Lahore",
  "postalCode": "54000",
  "items": [{"productId": "p1", "quantity": 2}],
  "total": 1000
}`

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:       "o1",
		Customer: "Ali Khan",
		Items:    []domain.OrderItem{{ProductID: "p1", Name: "Pod", Quantity: 2, Price: 500}},
		Total:    1000,
		Status:   domain.OrderStatusPending,
	}
}

func TestPlaceOrder_Guest(t *testing.T) {
	svc := &mockOrderService{order: sampleOrder()}
	handler := NewOrdersHandler(svc, 5*time.Second, testLogger)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/", strings.NewReader(validOrderBody))
	request.Header.Set("Idempotency-Key", "key-1")

	handler.PlaceOrder(recorder, request)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("Expected status code %d, got %d", http.StatusCreated, recorder.Code)
	}
	if svc.placed.IdempotencyKey != "key-1" {
		t.Errorf("Expected idempotency key key-1, got %q", svc.placed.IdempotencyKey)
	}
	if svc.placed.UserID != "" {
		t.Errorf("Expected guest order, got user %q", svc.placed.UserID)
	}
	if svc.placed.Customer != "Ali Khan" || svc.placed.Total != 1000 || len(svc.placed.Items) != 1 {
		t.Errorf("Unexpected request passed to service: %+v", svc.placed)
	}
}

func TestPlaceOrder_SignedInUser(t *testing.T) {
	svc := &mockOrderService{order: sampleOrder()}
	handler := NewOrdersHandler(svc, 5*time.Second, testLogger)

	recorder := httptest.NewRecorder()
	request := withUser(httptest.NewRequest("POST", "/", strings.NewReader(validOrderBody)), "u1", auth.RoleCustomer)

	handler.PlaceOrder(recorder, request)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("Expected status code %d, got %d", http.StatusCreated, recorder.Code)
	}
	if svc.placed.UserID != "u1" {
		t.Errorf("Expected user u1, got %q", svc.placed.UserID)
	}
}

func TestPlaceOrder_InvalidEmail(t *testing.T) {
	svc := &mockOrderService{order: sampleOrder()}
	handler := NewOrdersHandler(svc, 5*time.Second, testLogger)

	body := strings.Replace(validOrderBody, "ali@example.com", "not-an-email", 1)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/", strings.NewReader(body))

	handler.PlaceOrder(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
	if resp := decodeError(t, recorder); resp.Field != "email" {
		t.Errorf("Expected field email, got %q", resp.Field)
	}
	if svc.placed != nil {
		t.Error("Service must not be called for an invalid body")
	}
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	handler := NewOrdersHandler(&mockOrderService{}, 5*time.Second, testLogger)

	body := strings.Replace(validOrderBody, `[{"productId": "p1", "quantity": 2}]`, `[]`, 1)
	recorder := httptest.NewRecorder()
	handler.PlaceOrder(recorder, httptest.NewRequest("POST", "/", strings.NewReader(body)))

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
	if resp := decodeError(t, recorder); resp.Field != "items" {
		t.Errorf("Expected field items, got %q", resp.Field)
	}
}

func TestPlaceOrder_ItemQuantityField(t *testing.T) {
	handler := NewOrdersHandler(&mockOrderService{}, 5*time.Second, testLogger)

	body := strings.Replace(validOrderBody, `"quantity": 2`, `"quantity": 0`, 1)
	recorder := httptest.NewRecorder()
	handler.PlaceOrder(recorder, httptest.NewRequest("POST", "/", strings.NewReader(body)))

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
	if resp := decodeError(t, recorder); resp.Field != "items.quantity" {
		t.Errorf("Expected field items.quantity, got %q", resp.Field)
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	svc := &mockOrderService{err: domain.Conflictf("insufficient stock for Pod")}
	handler := NewOrdersHandler(svc, 5*time.Second, testLogger)

	recorder := httptest.NewRecorder()
	handler.PlaceOrder(recorder, httptest.NewRequest("POST", "/", strings.NewReader(validOrderBody)))

	if recorder.Code != http.StatusConflict {
		t.Errorf("Expected status code %d, got %d", http.StatusConflict, recorder.Code)
	}
	if resp := decodeError(t, recorder); resp.Code != string(domain.KindConflict) {
		t.Errorf("Expected code %s, got %q", domain.KindConflict, resp.Code)
	}
}

func TestPlaceOrder_InternalErrorHidesDetail(t *testing.T) {
	svc := &mockOrderService{err: errors.New("mongo: connection refused")}
	handler := NewOrdersHandler(svc, 5*time.Second, testLogger)

	recorder := httptest.NewRecorder()
	handler.PlaceOrder(recorder, httptest.NewRequest("POST", "/", strings.NewReader(validOrderBody)))

	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("Expected status code %d, got %d", http.StatusInternalServerError, recorder.Code)
	}
	if resp := decodeError(t, recorder); strings.Contains(resp.Error, "mongo") {
		t.Errorf("Internal error detail leaked: %q", resp.Error)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := &mockOrderService{err: domain.NotFoundf("order %s not found", "o9")}
	handler := NewOrdersHandler(svc, 5*time.Second, testLogger)

	recorder := httptest.NewRecorder()
	request := withURLParam(httptest.NewRequest("GET", "/o9", nil), "id", "o9")

	handler.GetOrder(recorder, request)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, recorder.Code)
	}
	if svc.id != "o9" {
		t.Errorf("Expected id o9, got %q", svc.id)
	}
}

func TestUpdateStatus_Success(t *testing.T) {
	svc := &mockOrderService{order: sampleOrder()}
	handler := NewOrdersHandler(svc, 5*time.Second, testLogger)

	recorder := httptest.NewRecorder()
	request := withURLParam(httptest.NewRequest("PUT", "/o1", strings.NewReader(`{"status":"Processing"}`)), "id", "o1")

	handler.UpdateStatus(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}
	if svc.id != "o1" || svc.status != domain.OrderStatusProcessing {
		t.Errorf("Expected o1 -> Processing, got %q -> %q", svc.id, svc.status)
	}
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	svc := &mockOrderService{order: sampleOrder()}
	handler := NewOrdersHandler(svc, 5*time.Second, testLogger)

	recorder := httptest.NewRecorder()
	request := withURLParam(httptest.NewRequest("PUT", "/o1", strings.NewReader(`{"status":"Shipped"}`)), "id", "o1")

	handler.UpdateStatus(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
	if resp := decodeError(t, recorder); resp.Field != "status" {
		t.Errorf("Expected field status, got %q", resp.Field)
	}
}
