package remote

import (
	"context"
	"net/http"
	"net/url"

	"order-portal/internal/util"

	"go.uber.org/zap"
)

// CancelResult is the classified answer to a cancel request
type CancelResult struct {
	Outcome CancelOutcome
	Message string
}

// CancelOrder asks the backend to start cancelling orderID. A stable outcome
// field wins; otherwise the legacy message table decides. Responses matching
// neither yield *AmbiguousOutcomeError.
func (c *Client) CancelOrder(ctx context.Context, orderID, reason string) (*CancelResult, error) {
	const op = "CancelOrder"

	var query url.Values
	if reason != "" {
		query = url.Values{"reason": []string{reason}}
	}

	env, err := c.call(ctx, op, http.MethodPost, pathOrders+url.PathEscape(orderID)+"/cancel", query, nil)
	if err != nil {
		util.CancelOutcomesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if env.Outcome != "" {
		result := &CancelResult{Outcome: CancelOutcome(env.Outcome), Message: env.Msg}
		util.CancelOutcomesTotal.WithLabelValues(string(result.Outcome)).Inc()
		return result, nil
	}

	outcome, notFound, ok := classifyLegacyCancel(env)
	switch {
	case notFound:
		util.CancelOutcomesTotal.WithLabelValues("not_found").Inc()
		return nil, &ClientError{Op: op, StatusCode: http.StatusNotFound, Message: env.Msg}
	case !ok:
		util.CancelOutcomesTotal.WithLabelValues("ambiguous").Inc()
		c.logger.Warn("Unrecognised cancel response",
			zap.String("order_id", orderID),
			zap.Int("status", env.Status),
			zap.String("msg", env.Msg))
		return nil, &AmbiguousOutcomeError{Message: env.Msg}
	}

	message := env.Msg
	if detail := dataText(env.Data); detail != "" && outcome != CancelAccepted {
		message = detail
	}
	util.CancelOutcomesTotal.WithLabelValues(string(outcome)).Inc()
	c.logger.Info("Cancel request classified",
		zap.String("order_id", orderID),
		zap.String("outcome", string(outcome)))
	return &CancelResult{Outcome: outcome, Message: message}, nil
}
