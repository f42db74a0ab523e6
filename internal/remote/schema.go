package remote

import (
	"bytes"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const envelopeSchemaJSON = `{
  "type": "object",
  "required": ["status", "msg"],
  "properties": {
    "status":  {"type": "integer"},
    "msg":     {"type": "string"},
    "outcome": {"enum": ["accepted", "rejected_retryable", "rejected_terminal"]}
  }
}`

const orderStatusEnum = `["CREATED", "CONFIRMED", "CANCELLATION_PENDING", "CANCELLED", "DELIVERED"]`

const paymentStatusEnum = `["PENDING", "CONFIRMED", "FAILED", "DECLINED", "REVERSED"]`

var orderDetailSchemaJSON = `{
  "type": "object",
  "required": ["orderId", "userId", "userEmail", "userName", "orderDescription", "status", "totalAmount", "createdAt"],
  "properties": {
    "orderId":          {"type": ["integer", "string"]},
    "userId":           {"type": "string"},
    "userEmail":        {"type": "string", "format": "email"},
    "userName":         {"type": "string"},
    "shippingAddress":  {"type": ["string", "null"]},
    "orderDescription": {"type": "string"},
    "status":           {"enum": ` + orderStatusEnum + `},
    "totalAmount":      {"type": ["number", "string"]},
    "createdAt":        {"type": "string"},
    "sagaId":           {"type": ["string", "null"]}
  }
}`

var orderListSchemaJSON = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["orderId", "orderDescription", "userName", "totalAmount", "createdAt", "orderStatus"],
    "properties": {
      "orderId":          {"type": ["integer", "string"]},
      "orderDescription": {"type": "string"},
      "userName":         {"type": "string"},
      "totalAmount":      {"type": ["number", "string"]},
      "createdAt":        {"type": "string"},
      "orderStatus":      {"enum": ` + orderStatusEnum + `}
    }
  }
}`

var orderStatusSchemaJSON = `{
  "type": "object",
  "required": ["status"],
  "properties": {
    "status": {"enum": ` + orderStatusEnum + `}
  }
}`

var paymentDetailSchemaJSON = `{
  "type": ["object", "null"],
  "required": ["id", "status", "paymentMethod", "transactionReference"],
  "properties": {
    "id":                   {"type": "integer"},
    "status":               {"enum": ` + paymentStatusEnum + `},
    "paymentMethod":        {"type": "string"},
    "transactionReference": {"type": "string"},
    "processedAt":          {"type": ["string", "null"]},
    "failureReason":        {"type": ["string", "null"]}
  }
}`

var paymentStatusSchemaJSON = `{
  "type": ["object", "null"],
  "required": ["status"],
  "properties": {
    "status": {"enum": ` + paymentStatusEnum + `}
  }
}`

var (
	envelopeSchema      = mustSchema("envelope", envelopeSchemaJSON)
	orderDetailSchema   = mustSchema("order detail", orderDetailSchemaJSON)
	orderListSchema     = mustSchema("order list", orderListSchemaJSON)
	orderStatusSchema   = mustSchema("order status", orderStatusSchemaJSON)
	paymentDetailSchema = mustSchema("payment detail", paymentDetailSchemaJSON)
	paymentStatusSchema = mustSchema("payment status", paymentStatusSchemaJSON)
)

func mustSchema(name, src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid %s schema: %v", name, err))
	}
	return schema
}

// checkSchema validates raw JSON against schema. An empty document is
// checked as JSON null.
func checkSchema(op string, schema *gojsonschema.Schema, raw []byte) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("null")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &SchemaError{Op: op, Details: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return &SchemaError{Op: op, Details: details}
}
