package remote

import (
	"encoding/json"
	"strings"
)

// CancelOutcome is the three-way result of a cancel request.
type CancelOutcome string

// Cancel outcomes, matching the backend's stable "outcome" field.
const (
	CancelAccepted          CancelOutcome = "accepted"
	CancelRejectedRetryable CancelOutcome = "rejected_retryable"
	CancelRejectedTerminal  CancelOutcome = "rejected_terminal"
)

// Backends that predate the outcome field only signal the result through
// msg and data text. This table is the single place those texts are matched;
// entries are compared case-insensitively as substrings.
var legacyCancelMessages = []struct {
	fragment string
	outcome  CancelOutcome
}{
	{"order cancellation initiated", CancelAccepted},
	{"payment is currently being processed", CancelRejectedRetryable},
	{"order status changed while processing", CancelRejectedRetryable},
	{"order is currently being cancelled", CancelRejectedRetryable},
	{"failed to initiate cancellation", CancelRejectedRetryable},
	{"already been delivered", CancelRejectedTerminal},
	{"already been cancelled", CancelRejectedTerminal},
	{"cancellation not allowed", CancelRejectedTerminal},
	{"failed to cancel order", CancelRejectedTerminal},
}

// classifyLegacyCancel maps a cancel envelope without an outcome field.
// notFound is set when the backend reported an unknown order.
func classifyLegacyCancel(env *envelope) (outcome CancelOutcome, notFound bool, ok bool) {
	text := strings.ToLower(env.Msg + " " + dataText(env.Data))

	if strings.Contains(text, strings.ToLower(legacyOrderNotFound)) {
		return "", true, true
	}
	for _, entry := range legacyCancelMessages {
		if strings.Contains(text, entry.fragment) {
			return entry.outcome, false, true
		}
	}
	if env.ok() {
		return CancelAccepted, false, true
	}
	return "", false, false
}

// dataText returns data when it is a JSON string, otherwise nothing.
func dataText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
