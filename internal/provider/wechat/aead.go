package wechat

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	domainErrors "paygate/internal/domain/errors"
)

const apiV3KeyLength = 32

// DecryptResource opens an AES-256-GCM sealed callback resource. The
// associated data is bound as AAD, so any tampering with it or the
// ciphertext surfaces as ErrDecryptFailed, never as a parse error.
func DecryptResource(key []byte, associatedData, nonce string, ciphertextB64 string) ([]byte, error) {
	if len(key) != apiV3KeyLength {
		return nil, fmt.Errorf("%w: api v3 key must be %d bytes", domainErrors.ErrDecryptFailed, apiV3KeyLength)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext is not valid base64", domainErrors.ErrDecryptFailed)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrDecryptFailed, err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrDecryptFailed, err)
	}

	plaintext, err := aead.Open(nil, []byte(nonce), ciphertext, []byte(associatedData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrDecryptFailed, err)
	}
	return plaintext, nil
}
