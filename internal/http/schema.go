package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/fjod/vapealley/internal/domain"
	"github.com/xeipuuv/gojsonschema"
)

const schemaAddToCart = `{
  "type": "object",
  "required": ["productId", "quantity"],
  "properties": {
    "productId": {"type": "string", "minLength": 1},
    "quantity": {"type": "integer", "minimum": 1},
    "selectedColor": {"type": "string"}
  }
}`

const schemaUpdateQuantity = `{
  "type": "object",
  "required": ["quantity"],
  "properties": {
    "quantity": {"type": "integer"}
  }
}`

const schemaDiscount = `{
  "type": "object",
  "required": ["percentage"],
  "properties": {
    "percentage": {"type": "integer", "minimum": 0, "maximum": 100},
    "productIds": {"type": "array", "items": {"type": "string", "minLength": 1}}
  }
}`

const schemaPlaceOrder = `{
  "type": "object",
  "required": ["customer", "email", "phone", "address", "city", "postalCode", "items"],
  "properties": {
    "customer": {"type": "string", "minLength": 1},
    "email": {"type": "string", "format": "email"},
    "phone": {"type": "string", "minLength": 1},
    "address": {"type": "string", "minLength": 1},
    "city": {"type": "string", "minLength": 1},
    "postalCode": {"type": "string", "minLength": 1},
    "paymentMethod": {"type": "string"},
    "total": {"type": "integer", "minimum": 0},
    "items": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["productId", "quantity"],
        "properties": {
          "productId": {"type": "string", "minLength": 1},
          "quantity": {"type": "integer", "minimum": 1}
        }
      }
    }
  }
}`

const schemaOrderStatus = `{
  "type": "object",
  "required": ["status"],
  "properties": {
    "status": {"type": "string", "enum": ["Pending", "Processing", "Delivered", "Cancelled"]}
  }
}`

const productProperties = `{
    "name": {"type": "string", "minLength": 1},
    "category": {"type": "string", "minLength": 1},
    "brand": {"type": ["string", "null"]},
    "description": {"type": "string"},
    "price": {"type": "integer", "minimum": 1},
    "discountPercentage": {"type": "integer", "minimum": 0, "maximum": 100},
    "stock": {"type": "integer", "minimum": 0},
    "image": {"type": "string"},
    "images": {"type": "array", "items": {"type": "string"}},
    "colors": {"type": "array", "items": {"type": "string"}},
    "specifications": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "value"],
        "properties": {
          "name": {"type": "string"},
          "value": {"type": "string"}
        }
      }
    }
  }`

const schemaCreateProduct = `{
  "type": "object",
  "required": ["name", "category", "price", "stock"],
  "properties": ` + productProperties + `
}`

// stock is optional on update; leaving it out keeps the stored level
const schemaUpdateProduct = `{
  "type": "object",
  "required": ["name", "category", "price"],
  "properties": ` + productProperties + `
}`

const schemaCategory = `{
  "type": "object",
  "required": ["name", "value"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "value": {"type": "string", "minLength": 1}
  }
}`

const schemaBrand = `{
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "image": {"type": "string"},
    "categories": {"type": "array", "items": {"type": "string", "minLength": 1}}
  }
}`

const schemaCreateReview = `{
  "type": "object",
  "required": ["productId", "user", "rating", "comment"],
  "properties": {
    "productId": {"type": "string", "minLength": 1},
    "user": {"type": "string", "minLength": 1},
    "rating": {"type": "integer", "minimum": 1, "maximum": 5},
    "comment": {"type": "string", "minLength": 1}
  }
}`

const schemaUpdateReview = `{
  "type": "object",
  "required": ["rating", "comment"],
  "properties": {
    "rating": {"type": "integer", "minimum": 1, "maximum": 5},
    "comment": {"type": "string", "minLength": 1}
  }
}`

var (
	addToCartSchema      = mustSchema(schemaAddToCart)
	updateQuantitySchema = mustSchema(schemaUpdateQuantity)
	discountSchema       = mustSchema(schemaDiscount)
	placeOrderSchema     = mustSchema(schemaPlaceOrder)
	orderStatusSchema    = mustSchema(schemaOrderStatus)
	createProductSchema  = mustSchema(schemaCreateProduct)
	updateProductSchema  = mustSchema(schemaUpdateProduct)
	categorySchema       = mustSchema(schemaCategory)
	brandSchema          = mustSchema(schemaBrand)
	createReviewSchema   = mustSchema(schemaCreateReview)
	updateReviewSchema   = mustSchema(schemaUpdateReview)
)

func mustSchema(source string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(fmt.Sprintf("invalid request schema: %v", err))
	}
	return s
}

// decodeJSON validates the request body against schema and decodes it into
// dst. Schema violations become validation errors naming the field.
func decodeJSON(r *http.Request, schema *gojsonschema.Schema, dst interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Validationf("body", "must not exceed %d bytes", tooLarge.Limit)
		}
		return domain.Validationf("body", "could not be read")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return domain.Validationf("body", "invalid JSON body")
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return domain.Validationf(schemaField(first), "%s", first.Description())
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return domain.Validationf("body", "invalid JSON body")
	}
	return nil
}

// schemaField turns a gojsonschema location such as "items.0.quantity" into
// "items.quantity". Missing required properties are reported by name.
func schemaField(e gojsonschema.ResultError) string {
	field := e.Field()
	if e.Type() == "required" {
		if property, ok := e.Details()["property"].(string); ok {
			if field == "(root)" {
				field = property
			} else {
				field = field + "." + property
			}
		}
	}
	if field == "(root)" {
		return "body"
	}

	parts := strings.Split(field, ".")
	kept := parts[:0]
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err == nil {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ".")
}
