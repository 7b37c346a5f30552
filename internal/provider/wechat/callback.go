package wechat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
	"paygate/internal/provider"
)

// envelope is the outer callback message; the interesting part is the
// AEAD-sealed resource.
type envelope struct {
	ID           string `json:"id"`
	EventType    string `json:"event_type"`
	ResourceType string `json:"resource_type"`
	Resource     struct {
		Algorithm      string `json:"algorithm"`
		Ciphertext     string `json:"ciphertext"`
		AssociatedData string `json:"associated_data"`
		Nonce          string `json:"nonce"`
		OriginalType   string `json:"original_type"`
	} `json:"resource"`
}

type transactionResource struct {
	TransactionID string `json:"transaction_id"`
	OutTradeNo    string `json:"out_trade_no"`
	TradeState    string `json:"trade_state"`
	TradeStateDesc string `json:"trade_state_desc"`
	SuccessTime   string `json:"success_time"`
}

type refundResource struct {
	RefundID     string `json:"refund_id"`
	OutRefundNo  string `json:"out_refund_no"`
	OutTradeNo   string `json:"out_trade_no"`
	RefundStatus string `json:"refund_status"`
	SuccessTime  string `json:"success_time"`
}

type transferResource struct {
	OutBillNo      string `json:"out_bill_no"`
	TransferBillNo string `json:"transfer_bill_no"`
	State          string `json:"state"`
	UpdateTime     string `json:"update_time"`
}

// CallbackParser authenticates WeChat webhooks. Authenticity comes from
// the AEAD tag: a wrong key or tampered payload fails decryption.
type CallbackParser struct {
	kind provider.CallbackKind
}

// Parse decrypts the sealed resource and extracts the provider-level
// notification. Any authentication or consistency failure is an error;
// the caller must not mutate the order in that case.
func (p *CallbackParser) Parse(ctx context.Context, cfg *model.ProviderConfig, order *model.Order, req provider.CallbackRequest) (*provider.Notification, error) {
	for _, h := range []string{provider.HeaderSignature, provider.HeaderNonce, provider.HeaderTimestamp} {
		if req.Headers[h] == "" {
			return nil, fmt.Errorf("%w: missing header %s", domainErrors.ErrSignatureInvalid, h)
		}
	}

	var env envelope
	if err := json.Unmarshal(req.Body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed callback body", domainErrors.ErrSignatureInvalid)
	}

	key := []byte(cfg.Setting(SettingAPIV3Key))
	plaintext, err := DecryptResource(key, env.Resource.AssociatedData, env.Resource.Nonce, env.Resource.Ciphertext)
	if err != nil {
		return nil, err
	}

	switch p.kind {
	case provider.CallbackRefund:
		return p.parseRefund(order, plaintext)
	case provider.CallbackTransfer:
		return p.parseTransfer(plaintext)
	default:
		return p.parsePayment(order, env.EventType, plaintext)
	}
}

func (p *CallbackParser) parsePayment(order *model.Order, eventType string, plaintext []byte) (*provider.Notification, error) {
	var res transactionResource
	if err := json.Unmarshal(plaintext, &res); err != nil {
		return nil, fmt.Errorf("%w: malformed transaction resource", domainErrors.ErrSignatureInvalid)
	}
	if res.OutTradeNo != order.Code {
		return nil, fmt.Errorf("%w: callback for order %s delivered to %s", domainErrors.ErrSignatureInvalid, res.OutTradeNo, order.Code)
	}

	n := &provider.Notification{
		Kind:           p.kind,
		ProviderStatus: res.TradeState,
		TransactionID:  res.TransactionID,
		FailMessage:    res.TradeStateDesc,
	}
	if eventType != "" && eventType != "TRANSACTION.SUCCESS" && n.ProviderStatus == "" {
		n.ProviderStatus = "PAYERROR"
	}
	if res.SuccessTime != "" {
		t, err := time.Parse(time.RFC3339, res.SuccessTime)
		if err == nil {
			n.PayTime = &t
			n.FinishedTime = &t
		}
	}
	return n, nil
}

func (p *CallbackParser) parseRefund(order *model.Order, plaintext []byte) (*provider.Notification, error) {
	var res refundResource
	if err := json.Unmarshal(plaintext, &res); err != nil {
		return nil, fmt.Errorf("%w: malformed refund resource", domainErrors.ErrSignatureInvalid)
	}
	if res.OutTradeNo != "" && res.OutTradeNo != order.Code {
		return nil, fmt.Errorf("%w: refund callback for order %s delivered to %s", domainErrors.ErrSignatureInvalid, res.OutTradeNo, order.Code)
	}

	n := &provider.Notification{
		Kind:           provider.CallbackRefund,
		ProviderStatus: res.RefundStatus,
		TransactionID:  res.RefundID,
	}
	if res.SuccessTime != "" {
		if t, err := time.Parse(time.RFC3339, res.SuccessTime); err == nil {
			n.RefundSuccessTime = &t
		}
	}
	return n, nil
}

func (p *CallbackParser) parseTransfer(plaintext []byte) (*provider.Notification, error) {
	var res transferResource
	if err := json.Unmarshal(plaintext, &res); err != nil {
		return nil, fmt.Errorf("%w: malformed transfer resource", domainErrors.ErrSignatureInvalid)
	}

	n := &provider.Notification{
		Kind:           provider.CallbackTransfer,
		ProviderStatus: res.State,
		TransactionID:  res.TransferBillNo,
	}
	if res.UpdateTime != "" {
		if t, err := time.Parse(time.RFC3339, res.UpdateTime); err == nil {
			n.RefundSuccessTime = &t
		}
	}
	return n, nil
}
