package crypto

import (
	"crypto/aes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/credstorage/go-credential-server/types"
)

// EnvelopeDecrypter is the client side of the envelope scheme. The server
// never holds a private key; this type exists for the standalone CLI client
// and for round-trip tests.
type EnvelopeDecrypter struct {
	privateKey *rsa.PrivateKey
}

// NewEnvelopeDecrypter parses a DER encoded (PKCS#8) RSA private key.
func NewEnvelopeDecrypter(privateKeyDER []byte) (*EnvelopeDecrypter, error) {
	key, err := x509.ParsePKCS8PrivateKey(privateKeyDER)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse private key: %v", types.ErrCrypto, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is not RSA", types.ErrCrypto)
	}
	return &EnvelopeDecrypter{privateKey: rsaKey}, nil
}

// DecryptKey recovers the raw AES key from its base64 RSA ciphertext.
func (d *EnvelopeDecrypter) DecryptKey(base64SymmetricKey string) ([]byte, error) {
	encrypted, err := base64.StdEncoding.DecodeString(base64SymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to base64 decode symmetric key: %v", types.ErrCrypto, err)
	}
	key, err := rsa.DecryptPKCS1v15(nil, d.privateKey, encrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decrypt symmetric key: %v", types.ErrCrypto, err)
	}
	return key, nil
}

// DecryptField reverses EncryptField. Absent ciphertext decrypts to absent.
func (d *EnvelopeDecrypter) DecryptField(symmetricKey []byte, base64CipherText string) (string, error) {
	if base64CipherText == "" {
		return "", nil
	}
	encrypted, err := base64.StdEncoding.DecodeString(base64CipherText)
	if err != nil {
		return "", fmt.Errorf("%w: failed to base64 decode field: %v", types.ErrCrypto, err)
	}
	block, err := aes.NewCipher(symmetricKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrCrypto, err)
	}
	if len(encrypted)%block.BlockSize() != 0 {
		return "", fmt.Errorf("%w: ciphertext is not block aligned", types.ErrCrypto)
	}
	decrypted := make([]byte, len(encrypted))
	ecbDecrypt(block, decrypted, encrypted)
	unpadded, err := pkcs7Unpad(decrypted, block.BlockSize())
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}
