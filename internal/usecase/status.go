package usecase

import (
	"fmt"

	"paygate/internal/domain/model"
	"paygate/internal/provider"
)

// StatusMapper translates provider vocabulary into the canonical
// outcome taxonomy. Unknown statuses are errors, never silently
// ignored.
type StatusMapper struct{}

// Map converts an authenticated notification into an outcome.
func (m *StatusMapper) Map(providerName string, n *provider.Notification) (*model.Outcome, error) {
	kind, err := m.mapKind(providerName, n)
	if err != nil {
		return nil, err
	}
	return &model.Outcome{
		Kind:              kind,
		TransactionID:     n.TransactionID,
		FailMessage:       n.FailMessage,
		PayTime:           n.PayTime,
		FinishedTime:      n.FinishedTime,
		RefundSuccessTime: n.RefundSuccessTime,
	}, nil
}

func (m *StatusMapper) mapKind(providerName string, n *provider.Notification) (model.OutcomeKind, error) {
	switch n.Kind {
	case provider.CallbackPayment, provider.CallbackWalletPayment:
		return m.mapPayment(providerName, n.ProviderStatus)
	case provider.CallbackRefund:
		return m.mapRefund(n.ProviderStatus)
	case provider.CallbackTransfer:
		return m.mapTransfer(n.ProviderStatus)
	}
	return 0, fmt.Errorf("unknown callback kind %q", n.Kind)
}

func (m *StatusMapper) mapPayment(providerName, status string) (model.OutcomeKind, error) {
	switch providerName {
	case "wechat":
		switch status {
		case "SUCCESS":
			return model.OutcomeSuccess, nil
		case "PAYERROR", "CLOSED", "REVOKED":
			return model.OutcomeFailure, nil
		case "NOTPAY", "USERPAYING", "REFUND":
			return model.OutcomeIgnore, nil
		}
	case "alipay":
		switch status {
		case "TRADE_SUCCESS", "TRADE_FINISHED":
			return model.OutcomeSuccess, nil
		case "TRADE_CLOSED":
			return model.OutcomeFailure, nil
		case "WAIT_BUYER_PAY":
			return model.OutcomeIgnore, nil
		}
	case "unionpay":
		switch status {
		case "SUCCESS":
			return model.OutcomeSuccess, nil
		case "FAIL", "CLOSED":
			return model.OutcomeFailure, nil
		case "PROCESSING":
			return model.OutcomeIgnore, nil
		}
	}
	return 0, fmt.Errorf("provider %s: unknown payment status %q", providerName, status)
}

func (m *StatusMapper) mapRefund(status string) (model.OutcomeKind, error) {
	switch status {
	case "SUCCESS":
		return model.OutcomeRefundSuccess, nil
	case "ABNORMAL":
		return model.OutcomeRefundAbnormal, nil
	case "CLOSED":
		return model.OutcomeRefundClosed, nil
	case "PROCESSING":
		return model.OutcomeIgnore, nil
	}
	return 0, fmt.Errorf("unknown refund status %q", status)
}

func (m *StatusMapper) mapTransfer(status string) (model.OutcomeKind, error) {
	switch status {
	case "SUCCESS", "FINISHED":
		return model.OutcomeRefundSuccess, nil
	case "FAIL":
		return model.OutcomeRefundAbnormal, nil
	case "CLOSED", "CANCELLED", "CANCELING":
		return model.OutcomeRefundClosed, nil
	case "PROCESSING", "WAIT_PAY", "ACCEPTED":
		return model.OutcomeIgnore, nil
	}
	return 0, fmt.Errorf("unknown transfer state %q", status)
}

// RefundOrderStatus maps a synchronous refund-call status onto the
// order lifecycle. Wallet cancels settle to Cancelled where normal
// refunds settle to RefundSuccess.
func RefundOrderStatus(status model.RefundStatus, wallet bool) (model.OrderStatus, error) {
	switch status {
	case model.RefundStatusClosed:
		return model.StatusClosed, nil
	case model.RefundStatusProcessing:
		return model.StatusRefundProcessing, nil
	case model.RefundStatusAbnormal:
		return model.StatusRefundAbnormal, nil
	case model.RefundStatusSuccess:
		if wallet {
			return model.StatusCancelled, nil
		}
		return model.StatusRefundSuccess, nil
	}
	return "", fmt.Errorf("unknown refund status %q", status)
}
