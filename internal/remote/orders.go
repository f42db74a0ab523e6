package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"order-portal/internal/models"
	"order-portal/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	pathCreateOrder = "/api/orders/create"
	pathAllOrders   = "/api/orders/all"
	pathOrders      = "/api/orders/"
)

// legacyOrderNotFound is sent with status 1 by GET /api/orders/{id} instead of a 404.
const legacyOrderNotFound = "Order not found"

type createOrderBody struct {
	UserID           string      `json:"userId"`
	UserName         string      `json:"userName"`
	UserEmail        string      `json:"userEmail"`
	OrderDescription string      `json:"orderDescription"`
	TotalAmount      json.Number `json:"totalAmount"`
	ShippingAddress  string      `json:"shippingAddress"`
}

type orderDTO struct {
	OrderID          flexID             `json:"orderId"`
	UserID           string             `json:"userId"`
	UserEmail        string             `json:"userEmail"`
	UserName         string             `json:"userName"`
	ShippingAddress  *string            `json:"shippingAddress"`
	OrderDescription string             `json:"orderDescription"`
	Status           models.OrderStatus `json:"status"`
	TotalAmount      decimal.Decimal    `json:"totalAmount"`
	CreatedAt        string             `json:"createdAt"`
	SagaID           *string            `json:"sagaId"`
}

func (d *orderDTO) toOrder(op string) (*models.Order, error) {
	createdAt, err := parseTimestamp(d.CreatedAt)
	if err != nil {
		return nil, &SchemaError{Op: op, Details: []string{err.Error()}}
	}
	order := &models.Order{
		ID:               string(d.OrderID),
		UserID:           d.UserID,
		UserName:         d.UserName,
		UserEmail:        d.UserEmail,
		OrderDescription: d.OrderDescription,
		TotalAmount:      d.TotalAmount,
		Status:           d.Status,
		CreatedAt:        createdAt,
	}
	if d.ShippingAddress != nil {
		order.ShippingAddress = *d.ShippingAddress
	}
	return order, nil
}

type orderSummaryDTO struct {
	OrderID          flexID             `json:"orderId"`
	OrderDescription string             `json:"orderDescription"`
	UserName         string             `json:"userName"`
	TotalAmount      decimal.Decimal    `json:"totalAmount"`
	CreatedAt        string             `json:"createdAt"`
	OrderStatus      models.OrderStatus `json:"orderStatus"`
}

type statusDTO struct {
	Status string `json:"status"`
}

// CreateOrder validates req locally and submits it. A request that fails
// validation never reaches the network.
func (c *Client) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.OrderConfirmation, error) {
	const op = "CreateOrder"

	if err := validateCreateOrder(c.validate, req); err != nil {
		util.OrderValidationFailedTotal.Inc()
		c.logger.Info("Order rejected by local validation", zap.Error(err))
		return nil, err
	}

	body := createOrderBody{
		UserID:           req.UserID,
		UserName:         req.UserName,
		UserEmail:        req.UserEmail,
		OrderDescription: req.OrderDescription,
		TotalAmount:      json.Number(req.TotalAmount.String()),
		ShippingAddress:  req.ShippingAddress,
	}

	env, err := c.call(ctx, op, http.MethodPost, pathCreateOrder, nil, body)
	if err != nil {
		return nil, err
	}
	if !env.ok() {
		return nil, &ServerError{Op: op, StatusCode: http.StatusOK, Message: env.Msg}
	}

	var dto orderDTO
	if err := c.decodeData(op, orderDetailSchema, env, &dto); err != nil {
		return nil, err
	}
	order, err := dto.toOrder(op)
	if err != nil {
		return nil, err
	}

	confirmation := &models.OrderConfirmation{Order: *order}
	if dto.SagaID != nil {
		confirmation.SagaID = *dto.SagaID
	}

	c.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("saga_id", confirmation.SagaID))
	return confirmation, nil
}

// GetAllOrders returns the dashboard rows in backend order.
func (c *Client) GetAllOrders(ctx context.Context) ([]models.OrderSummary, error) {
	const op = "GetAllOrders"

	env, err := c.call(ctx, op, http.MethodGet, pathAllOrders, nil, nil)
	if err != nil {
		return nil, err
	}
	if !env.ok() {
		return nil, &ServerError{Op: op, StatusCode: http.StatusOK, Message: env.Msg}
	}

	var rows []orderSummaryDTO
	if err := c.decodeData(op, orderListSchema, env, &rows); err != nil {
		return nil, err
	}

	summaries := make([]models.OrderSummary, 0, len(rows))
	for _, row := range rows {
		createdAt, err := parseTimestamp(row.CreatedAt)
		if err != nil {
			return nil, &SchemaError{Op: op, Details: []string{err.Error()}}
		}
		id := string(row.OrderID)
		summaries = append(summaries, models.OrderSummary{
			DisplayID:        models.DisplayID(id),
			OrderID:          id,
			OrderDescription: row.OrderDescription,
			UserName:         row.UserName,
			TotalAmount:      row.TotalAmount,
			Status:           row.OrderStatus,
			CreatedAt:        createdAt,
		})
	}
	return summaries, nil
}

// GetOrderByID fetches the full order.
func (c *Client) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	const op = "GetOrderByID"

	env, err := c.call(ctx, op, http.MethodGet, pathOrders+url.PathEscape(orderID), nil, nil)
	if err != nil {
		return nil, err
	}
	if !env.ok() {
		return nil, &ServerError{Op: op, StatusCode: http.StatusOK, Message: env.Msg}
	}
	if isLegacyNotFound(env) {
		return nil, &ClientError{Op: op, StatusCode: http.StatusNotFound, Message: legacyOrderNotFound}
	}

	var dto orderDTO
	if err := c.decodeData(op, orderDetailSchema, env, &dto); err != nil {
		return nil, err
	}
	return dto.toOrder(op)
}

// GetOrderStatus fetches only the order status, for polling.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (models.OrderStatus, error) {
	const op = "GetOrderStatus"

	env, err := c.call(ctx, op, http.MethodGet, pathOrders+url.PathEscape(orderID)+"/status", nil, nil)
	if err != nil {
		return "", err
	}
	if !env.ok() {
		return "", &ServerError{Op: op, StatusCode: http.StatusOK, Message: env.Msg}
	}
	if isLegacyNotFound(env) {
		return "", &ClientError{Op: op, StatusCode: http.StatusNotFound, Message: legacyOrderNotFound}
	}

	var dto statusDTO
	if err := c.decodeData(op, orderStatusSchema, env, &dto); err != nil {
		return "", err
	}
	return models.OrderStatus(dto.Status), nil
}

// isLegacyNotFound matches the bare "Order not found" string some order
// endpoints return in data with a success status.
func isLegacyNotFound(env *envelope) bool {
	var msg string
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		return false
	}
	return msg == legacyOrderNotFound
}
