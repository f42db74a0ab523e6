package remote

import (
	"context"
	"net/http"
	"net/url"

	"order-portal/internal/models"
)

const pathPaymentsByOrder = "/api/payments/order/"

type paymentDTO struct {
	ID                   int64                `json:"id"`
	PaymentMethod        string               `json:"paymentMethod"`
	TransactionReference string               `json:"transactionReference"`
	Status               models.PaymentStatus `json:"status"`
	ProcessedAt          *string              `json:"processedAt"`
	FailureReason        *string              `json:"failureReason"`
}

// GetPaymentByOrderID returns the payment for orderID, or nil when the
// backend has not created one yet.
func (c *Client) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	const op = "GetPaymentByOrderID"

	env, err := c.call(ctx, op, http.MethodGet, pathPaymentsByOrder+url.PathEscape(orderID), nil, nil)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if env.dataIsNull() {
		return nil, nil
	}
	if !env.ok() {
		return nil, &ServerError{Op: op, StatusCode: http.StatusOK, Message: env.Msg}
	}

	var dto paymentDTO
	if err := c.decodeData(op, paymentDetailSchema, env, &dto); err != nil {
		return nil, err
	}
	processedAt, err := parseOptionalTimestamp(dto.ProcessedAt)
	if err != nil {
		return nil, &SchemaError{Op: op, Details: []string{err.Error()}}
	}

	return &models.Payment{
		ID:                   dto.ID,
		PaymentMethod:        dto.PaymentMethod,
		TransactionReference: dto.TransactionReference,
		Status:               dto.Status,
		ProcessedAt:          processedAt,
		FailureReason:        dto.FailureReason,
	}, nil
}

// GetPaymentStatusByOrder fetches only the payment status, for polling.
// PaymentStatusAbsent is returned while no payment exists.
func (c *Client) GetPaymentStatusByOrder(ctx context.Context, orderID string) (models.PaymentStatus, error) {
	const op = "GetPaymentStatusByOrder"

	env, err := c.call(ctx, op, http.MethodGet, pathPaymentsByOrder+url.PathEscape(orderID)+"/status", nil, nil)
	if IsNotFound(err) {
		return models.PaymentStatusAbsent, nil
	}
	if err != nil {
		return "", err
	}
	if env.dataIsNull() {
		return models.PaymentStatusAbsent, nil
	}
	if !env.ok() {
		return "", &ServerError{Op: op, StatusCode: http.StatusOK, Message: env.Msg}
	}

	var dto statusDTO
	if err := c.decodeData(op, paymentStatusSchema, env, &dto); err != nil {
		return "", err
	}
	return models.PaymentStatus(dto.Status), nil
}
