package model

import "time"

// OutcomeKind classifies a canonical callback result.
type OutcomeKind int

const (
	// OutcomeIgnore acks the provider without touching the order
	// (intermediate notifications such as WAIT_BUYER_PAY).
	OutcomeIgnore OutcomeKind = iota
	OutcomeSuccess
	OutcomeFailure
	OutcomeRefundSuccess
	OutcomeRefundAbnormal
	OutcomeRefundClosed
)

// Outcome is the provider-independent result extracted from an
// authenticated webhook.
type Outcome struct {
	Kind              OutcomeKind
	TransactionID     string
	FailMessage       string
	PayTime           *time.Time
	FinishedTime      *time.Time
	RefundSuccessTime *time.Time
}

// RefundStatus is the provider-reported state of a refund request.
type RefundStatus string

const (
	RefundStatusSuccess    RefundStatus = "SUCCESS"
	RefundStatusProcessing RefundStatus = "PROCESSING"
	RefundStatusClosed     RefundStatus = "CLOSED"
	RefundStatusAbnormal   RefundStatus = "ABNORMAL"
)
