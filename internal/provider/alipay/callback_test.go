package alipay

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"testing"

	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
	"paygate/internal/provider"
)

func testKeyPair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pemText := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	return key, pemText
}

func signParams(t *testing.T, key *rsa.PrivateKey, params map[string]string) {
	t.Helper()
	digest := sha256.Sum256([]byte(signContent(params)))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	params["sign"] = base64.StdEncoding.EncodeToString(sig)
	params["sign_type"] = "RSA2"
}

func testConfig(pubPEM string) *model.ProviderConfig {
	return &model.ProviderConfig{
		MerchantCode: "m-1",
		TradeType:    provider.TradeTypeAlipayApp,
		Settings: map[string]string{
			SettingAppID:      "2021000000000001",
			SettingPublicKey:  pubPEM,
			SettingGatewayURL: "https://openapi.example.com",
		},
	}
}

func paidParams() map[string]string {
	return map[string]string{
		"out_trade_no": "P100",
		"trade_no":     "2026090122001",
		"trade_status": "TRADE_SUCCESS",
		"gmt_payment":  "2026-09-01 10:30:00",
		"total_amount": "19.90",
	}
}

func TestParseTradeSuccess(t *testing.T) {
	key, pubPEM := testKeyPair(t)
	params := paidParams()
	signParams(t, key, params)

	p := &CallbackParser{}
	order := &model.Order{Code: "P100"}
	n, err := p.Parse(context.Background(), testConfig(pubPEM), order, provider.CallbackRequest{Params: params})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n.ProviderStatus != "TRADE_SUCCESS" {
		t.Errorf("status = %q", n.ProviderStatus)
	}
	if n.TransactionID != "2026090122001" {
		t.Errorf("transaction id = %q", n.TransactionID)
	}
	if n.PayTime == nil || n.PayTime.Hour() != 10 {
		t.Errorf("pay time = %v", n.PayTime)
	}
}

func TestParseRejectsTamperedParams(t *testing.T) {
	key, pubPEM := testKeyPair(t)
	params := paidParams()
	signParams(t, key, params)
	params["total_amount"] = "0.01"

	p := &CallbackParser{}
	order := &model.Order{Code: "P100"}
	_, err := p.Parse(context.Background(), testConfig(pubPEM), order, provider.CallbackRequest{Params: params})
	if !errors.Is(err, domainErrors.ErrSignatureInvalid) {
		t.Fatalf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestParseRejectsMissingSignature(t *testing.T) {
	_, pubPEM := testKeyPair(t)
	p := &CallbackParser{}
	order := &model.Order{Code: "P100"}
	_, err := p.Parse(context.Background(), testConfig(pubPEM), order, provider.CallbackRequest{Params: paidParams()})
	if !errors.Is(err, domainErrors.ErrSignatureInvalid) {
		t.Fatalf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestParseRejectsForeignKey(t *testing.T) {
	key, _ := testKeyPair(t)
	_, otherPEM := testKeyPair(t)
	params := paidParams()
	signParams(t, key, params)

	p := &CallbackParser{}
	order := &model.Order{Code: "P100"}
	_, err := p.Parse(context.Background(), testConfig(otherPEM), order, provider.CallbackRequest{Params: params})
	if !errors.Is(err, domainErrors.ErrSignatureInvalid) {
		t.Fatalf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestParseRejectsOrderMismatch(t *testing.T) {
	key, pubPEM := testKeyPair(t)
	params := paidParams()
	signParams(t, key, params)

	p := &CallbackParser{}
	order := &model.Order{Code: "P999"}
	_, err := p.Parse(context.Background(), testConfig(pubPEM), order, provider.CallbackRequest{Params: params})
	if !errors.Is(err, domainErrors.ErrSignatureInvalid) {
		t.Fatalf("err = %v, want ErrSignatureInvalid", err)
	}
}

func TestSignContentExcludesSignatureFields(t *testing.T) {
	params := map[string]string{
		"b":         "2",
		"a":         "1",
		"sign":      "xxx",
		"sign_type": "RSA2",
		"empty":     "",
	}
	if got, want := signContent(params), "a=1&b=2"; got != want {
		t.Errorf("signContent = %q, want %q", got, want)
	}
}
