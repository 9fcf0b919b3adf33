package model

type OutcomeStatus string

const (
	// OutcomeSubmitted means the gateway acknowledged the order and assigned
	// an identifier.
	OutcomeSubmitted OutcomeStatus = "SUBMITTED"
	// OutcomeRejected means the gateway explicitly refused the order.
	OutcomeRejected OutcomeStatus = "REJECTED"
	// OutcomeFailed means the order never reached the gateway.
	OutcomeFailed OutcomeStatus = "FAILED"
	// OutcomeTimedOut means no acknowledgment arrived in time. The order's
	// fate at the gateway is unknown: it may still be live there.
	OutcomeTimedOut OutcomeStatus = "TIMED_OUT"
)

// OrderOutcome is the terminal result of one submission attempt.
type OrderOutcome struct {
	OrderID string
	Status  OutcomeStatus
	Message string
}
