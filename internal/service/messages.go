package service

// Notification texts shown after a cancel attempt.
const (
	MsgCancelAccepted  = "Order cancellation has been initiated successfully. The order status will be updated shortly."
	MsgCancelRetryable = "Payment is currently being processed. Please wait for payment completion before cancelling."
	MsgCancelTerminal  = "This order cannot be cancelled as it has already been processed or delivered."
	MsgCancelFailed    = "Failed to cancel order. Please try again."
	MsgCancelInFlight  = "A cancellation for this order is already being processed. Please try again shortly."
	MsgOrderNotFound   = "Order not found. Please refresh the page."
	MsgServerError     = "Server error occurred. Please try again later."
	MsgNetworkError    = "Network error occurred. Please check your connection and try again."
)
