package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyExists        = errors.New("already exists")
	ErrMerchantNotFound     = errors.New("merchant not found")
	ErrMerchantDisabled     = errors.New("merchant disabled")
	ErrUnsupportedTradeType = errors.New("unsupported trade type")
	ErrConfigMissing        = errors.New("merchant provider config missing")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrGatewayInvocation    = errors.New("gateway invocation failed")
	ErrSignatureInvalid     = errors.New("signature verification failed")
	ErrDecryptFailed        = errors.New("callback decryption failed")
	ErrWriteConflict        = errors.New("transient write conflict")
	ErrOperationInProgress  = errors.New("operation already in progress")
)

// StateError rejects an order status transition that is not allowed by
// the lifecycle graph. Reason is the human-readable rejection cause.
type StateError struct {
	OrderCode string
	Status    string
	Reason    string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("order %s in status %s: %s", e.OrderCode, e.Status, e.Reason)
}

// NewState builds a StateError for the given order and reason.
func NewState(orderCode, status, reason string) *StateError {
	return &StateError{OrderCode: orderCode, Status: status, Reason: reason}
}

// AsState extracts a StateError from an error chain.
func AsState(err error) (*StateError, bool) {
	var se *StateError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
