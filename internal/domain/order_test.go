package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *PlaceOrderRequest {
	return &PlaceOrderRequest{
		Contact: Contact{
			Customer:   "Ali",
			Email:      "ali@example.com",
			Phone:      "+92 300 1234567",
			Address:    "12 Mall Road",
			City:       "Lahore",
			PostalCode: "54000",
		},
		Items: []OrderLine{{ProductID: "a", Quantity: 2}},
		Total: 1000,
	}
}

func TestPlaceOrderRequest_Validate(t *testing.T) {
	require.NoError(t, validRequest().Validate())

	tests := []struct {
		name  string
		edit  func(r *PlaceOrderRequest)
		field string
	}{
		{"missing customer", func(r *PlaceOrderRequest) { r.Customer = " " }, "customer"},
		{"missing postal code", func(r *PlaceOrderRequest) { r.PostalCode = "" }, "postalCode"},
		{"no items", func(r *PlaceOrderRequest) { r.Items = nil }, "items"},
		{"zero quantity", func(r *PlaceOrderRequest) { r.Items[0].Quantity = 0 }, "items.quantity"},
		{"negative quantity", func(r *PlaceOrderRequest) { r.Items[0].Quantity = -3 }, "items.quantity"},
		{"duplicate product", func(r *PlaceOrderRequest) {
			r.Items = append(r.Items, OrderLine{ProductID: "a", Quantity: 1})
		}, "items"},
		{"negative total", func(r *PlaceOrderRequest) { r.Total = -1 }, "total"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRequest()
			tt.edit(r)
			err := r.Validate()

			var de *Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, KindValidation, de.Kind)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusProcessing))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCancelled))
	assert.True(t, OrderStatusProcessing.CanTransitionTo(OrderStatusDelivered))
	assert.True(t, OrderStatusProcessing.CanTransitionTo(OrderStatusCancelled))
	assert.True(t, OrderStatusDelivered.CanTransitionTo(OrderStatusDelivered))

	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatusDelivered))
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusPending))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusProcessing))
}

func TestOrder_MarshalJSON_AddsDerivedFields(t *testing.T) {
	o := Order{
		ID:        "o1",
		Items:     []OrderItem{{ProductID: "a", Name: "Pod", Quantity: 2, Price: 500}},
		Total:     1000,
		Status:    OrderStatusPending,
		CreatedAt: time.Date(2026, 3, 9, 22, 15, 0, 0, time.UTC),
	}

	data, err := json.Marshal(o)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "2026-03-09", out["date"])
	assert.Equal(t, float64(1), out["itemsCount"])
	assert.Equal(t, "Pending", out["status"])
	assert.NotContains(t, out, "IdempotencyKey")
}

func TestCart_Expand_DropsDeletedProducts(t *testing.T) {
	sale := int64(450)
	cart := &Cart{Items: []CartItem{
		{ProductID: "a", Quantity: 2, SelectedColor: "red"},
		{ProductID: "gone", Quantity: 1},
	}}
	products := map[string]*Product{
		"a": {ID: "a", Name: "Pod", Price: 500, SalePrice: &sale, Images: []string{"/uploads/a.jpg"}},
	}

	lines := cart.Expand(products)

	require.Len(t, lines, 1)
	assert.Equal(t, "Pod", lines[0].Name)
	assert.Equal(t, int64(450), *lines[0].SalePrice)
	assert.Equal(t, "/uploads/a.jpg", lines[0].Image)
	assert.Equal(t, "red", lines[0].SelectedColor)
}
