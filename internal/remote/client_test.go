package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"order-portal/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]interface{}
}

// newBackend serves body with code for every request and counts hits.
func newBackend(t *testing.T, code int, body string) (*Client, *int32, chan recordedRequest) {
	t.Helper()
	var hits int32
	requests := make(chan recordedRequest, 16)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		requests <- rec

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return NewClient(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second}), &hits, requests
}

func validCreateRequest() *models.CreateOrderRequest {
	return &models.CreateOrderRequest{
		UserID:           "user-1",
		UserName:         "Jane Doe",
		UserEmail:        "jane@example.com",
		OrderDescription: "Keyboard (x1) - $25.50",
		TotalAmount:      decimal.RequireFromString("25.50"),
		ShippingAddress:  "1 Main Street",
	}
}

const createdOrderJSON = `{"status":1,"msg":"Order created","data":{
	"orderId":101,"userId":"user-1","userEmail":"jane@example.com","userName":"Jane Doe",
	"orderDescription":"Keyboard (x1) - $25.50","totalAmount":25.5,"status":"CREATED",
	"createdAt":"2024-05-01T10:00:00","sagaId":"saga-9"}}`

func TestCreateOrderRejectsEmptyUserNameLocally(t *testing.T) {
	client, hits, _ := newBackend(t, http.StatusOK, createdOrderJSON)

	req := validCreateRequest()
	req.UserName = ""

	_, err := client.CreateOrder(context.Background(), req)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, map[string]string{"userName": "required"}, validationErr.Fields)
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestCreateOrderRejectsBadEmailLocally(t *testing.T) {
	client, hits, _ := newBackend(t, http.StatusOK, createdOrderJSON)

	req := validCreateRequest()
	req.UserEmail = "not-an-email"

	_, err := client.CreateOrder(context.Background(), req)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "userEmail")
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestCreateOrderAmountRules(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{"zero", "0", "must be positive"},
		{"negative", "-3.00", "must be positive"},
		{"too large", "10000000000.00", "is too large"},
		{"too precise", "1.005", "must have at most 2 decimal places"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, hits, _ := newBackend(t, http.StatusOK, createdOrderJSON)
			req := validCreateRequest()
			req.TotalAmount = decimal.RequireFromString(tt.amount)

			_, err := client.CreateOrder(context.Background(), req)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.want, validationErr.Fields["totalAmount"])
			assert.Equal(t, int32(0), atomic.LoadInt32(hits))
		})
	}
}

func TestCreateOrderSuccess(t *testing.T) {
	client, _, requests := newBackend(t, http.StatusOK, createdOrderJSON)

	confirmation, err := client.CreateOrder(context.Background(), validCreateRequest())
	require.NoError(t, err)

	rec := <-requests
	assert.Equal(t, http.MethodPost, rec.Method)
	assert.Equal(t, "/api/orders/create", rec.Path)
	assert.Equal(t, 25.5, rec.Body["totalAmount"])

	assert.Equal(t, "101", confirmation.ID)
	assert.Equal(t, "ORD_101", confirmation.DisplayID())
	assert.Equal(t, "saga-9", confirmation.SagaID)
	assert.Equal(t, models.OrderStatusCreated, confirmation.Status)
	assert.True(t, decimal.RequireFromString("25.5").Equal(confirmation.TotalAmount))
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), confirmation.CreatedAt)
}

func TestGetAllOrdersPrefixesDisplayID(t *testing.T) {
	client, _, _ := newBackend(t, http.StatusOK, `{"status":1,"msg":"ok","data":[
		{"orderId":7,"orderDescription":"Mouse (x1) - $19.99","userName":"Sam","totalAmount":19.99,
		 "createdAt":"2024-05-01T10:00:00.123","orderStatus":"CONFIRMED"}]}`)

	orders, err := client.GetAllOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ORD_7", orders[0].DisplayID)
	assert.Equal(t, "7", orders[0].OrderID)
	assert.Equal(t, models.OrderStatusConfirmed, orders[0].Status)
}

func TestGetOrderByIDLegacyNotFound(t *testing.T) {
	client, _, _ := newBackend(t, http.StatusOK, `{"status":1,"msg":"Success","data":"Order not found"}`)

	_, err := client.GetOrderByID(context.Background(), "999")
	assert.True(t, IsNotFound(err))
	assert.False(t, IsRetryable(err))
}

func TestGetOrderByIDSchemaMismatch(t *testing.T) {
	client, _, _ := newBackend(t, http.StatusOK, `{"status":1,"msg":"ok","data":{
		"orderId":1,"userId":"u","userEmail":"a@b.co","userName":"n","orderDescription":"d",
		"status":"SHIPPED","totalAmount":1,"createdAt":"2024-05-01T10:00:00"}}`)

	_, err := client.GetOrderByID(context.Background(), "1")

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.False(t, IsRetryable(err))
}

func TestMissingEnvelopeIsSchemaError(t *testing.T) {
	client, _, _ := newBackend(t, http.StatusOK, `{"data":{"status":"CREATED"}}`)

	_, err := client.GetOrderStatus(context.Background(), "1")

	var schemaErr *SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestGetOrderStatus(t *testing.T) {
	client, _, requests := newBackend(t, http.StatusOK, `{"status":1,"msg":"ok","data":{"status":"CANCELLATION_PENDING"}}`)

	status, err := client.GetOrderStatus(context.Background(), "12")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancellationPending, status)
	assert.Equal(t, "/api/orders/12/status", (<-requests).Path)
}

func TestGetPaymentByOrderIDNotYetCreated(t *testing.T) {
	client, _, _ := newBackend(t, http.StatusOK, `{"status":0,"msg":"Payment not found","data":null}`)

	payment, err := client.GetPaymentByOrderID(context.Background(), "5")
	assert.NoError(t, err)
	assert.Nil(t, payment)
}

func TestGetPaymentByOrderID(t *testing.T) {
	client, _, _ := newBackend(t, http.StatusOK, `{"status":1,"msg":"ok","data":{
		"id":3,"status":"CONFIRMED","paymentMethod":"CARD","transactionReference":"tx-3",
		"processedAt":"2024-05-01 10:00:05","failureReason":null}}`)

	payment, err := client.GetPaymentByOrderID(context.Background(), "5")
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, int64(3), payment.ID)
	assert.Equal(t, models.PaymentStatusConfirmed, payment.Status)
	require.NotNil(t, payment.ProcessedAt)
	assert.Nil(t, payment.FailureReason)
}

func TestGetPaymentStatusAbsent(t *testing.T) {
	client, _, _ := newBackend(t, http.StatusOK, `{"status":0,"msg":"Payment not found","data":null}`)

	status, err := client.GetPaymentStatusByOrder(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusAbsent, status)
}

func TestHTTPErrorClassification(t *testing.T) {
	client, _, _ := newBackend(t, http.StatusInternalServerError, `{"status":0,"msg":"boom","data":null}`)
	_, err := client.GetOrderStatus(context.Background(), "1")

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "boom", serverErr.Message)
	assert.True(t, IsRetryable(err))

	client, _, _ = newBackend(t, http.StatusBadRequest, `bad request`)
	_, err = client.GetOrderStatus(context.Background(), "1")

	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, http.StatusBadRequest, clientErr.StatusCode)
	assert.False(t, IsRetryable(err))
}

func TestNetworkErrorIsOffline(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second})

	_, err := client.GetOrderStatus(context.Background(), "1")

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, IsRetryable(err))
	assert.True(t, IsOffline(err))
}

func TestCanceledContextIsNotOffline(t *testing.T) {
	client, _, _ := newBackend(t, http.StatusOK, `{"status":1,"msg":"ok","data":{"status":"CREATED"}}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetOrderStatus(ctx, "1")
	require.Error(t, err)
	assert.False(t, IsOffline(err))
}
