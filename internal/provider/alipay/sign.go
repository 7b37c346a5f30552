package alipay

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"sort"
	"strings"
)

func parsePublicKey(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unexpected key type %T", key)
	}
	return rsaKey, nil
}

// signContent joins the non-empty parameters in key order, excluding
// the signature fields themselves, as key=value pairs separated by '&'.
func signContent(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "sign" || k == "sign_type" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

func verify(pub *rsa.PublicKey, signType, content, signatureB64 string) error {
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return err
	}
	switch signType {
	case "RSA2":
		digest := sha256.Sum256([]byte(content))
		return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig)
	case "RSA":
		digest := sha1.Sum([]byte(content))
		return rsa.VerifyPKCS1v15(pub, crypto.SHA1, digest[:], sig)
	default:
		return fmt.Errorf("unsupported sign type %q", signType)
	}
}
