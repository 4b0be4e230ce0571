package crypto

import (
	"crypto/aes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/credstorage/go-credential-server/types"
)

// EnvelopeCipher wraps the server side of the envelope scheme: a fresh AES
// key per write, encrypted with RSA PKCS#1 v1.5 under the caller's public
// key, and AES-ECB/PKCS#7 over the credential fields. ECB keeps every field
// a single self-contained base64 blob, which is what the deployed decrypting
// clients expect; it also means equal plaintexts under one key produce equal
// ciphertexts. The per-write key limits that leak to fields of a single
// entry.
//
// Instances are immutable and hold no per-entry state.
type EnvelopeCipher struct {
	publicKey        *rsa.PublicKey
	symmetricKeySize int
}

// NewEnvelopeCipher parses a DER encoded (PKIX) RSA public key.
// symmetricKeySize is the AES key size in bits.
func NewEnvelopeCipher(publicKeyDER []byte, symmetricKeySize int) (*EnvelopeCipher, error) {
	pub, err := x509.ParsePKIXPublicKey(publicKeyDER)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse public key: %v", types.ErrCrypto, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is not RSA", types.ErrCrypto)
	}
	return &EnvelopeCipher{
		publicKey:        rsaPub,
		symmetricKeySize: symmetricKeySize,
	}, nil
}

// NewEnvelopeCipherFromBase64 parses a base64 string of the DER public key,
// the format identities arrive in.
func NewEnvelopeCipherFromBase64(base64PublicKey string, symmetricKeySize int) (*EnvelopeCipher, error) {
	publicKeyDER, err := base64.StdEncoding.DecodeString(base64PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to base64 decode public key: %v", types.ErrCrypto, err)
	}
	return NewEnvelopeCipher(publicKeyDER, symmetricKeySize)
}

// GenerateSymmetricKey returns a fresh random AES key of the configured size.
func (e *EnvelopeCipher) GenerateSymmetricKey() ([]byte, error) {
	switch e.symmetricKeySize {
	case 128, 192, 256:
	default:
		return nil, fmt.Errorf("%w: unsupported AES key size %d", types.ErrKeyGeneration, e.symmetricKeySize)
	}
	key := make([]byte, e.symmetricKeySize/8)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrKeyGeneration, err)
	}
	return key, nil
}

// EncryptKey encrypts the raw AES key with the held public key. The result
// can only be decrypted with the matching private key, so the server cannot
// recover it after the write completes.
func (e *EnvelopeCipher) EncryptKey(symmetricKey []byte) (string, error) {
	encrypted, err := rsa.EncryptPKCS1v15(rand.Reader, e.publicKey, symmetricKey)
	if err != nil {
		return "", fmt.Errorf("%w: failed to encrypt symmetric key: %v", types.ErrCrypto, err)
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// EncryptField encrypts a credential field with the given AES key. Empty
// plaintext returns an empty string: missing values are stored as absent,
// never as a ciphertext of the empty string.
func (e *EnvelopeCipher) EncryptField(symmetricKey []byte, plainText string) (string, error) {
	if plainText == "" {
		return "", nil
	}
	block, err := aes.NewCipher(symmetricKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrCrypto, err)
	}
	padded := pkcs7Pad([]byte(plainText), block.BlockSize())
	encrypted := make([]byte, len(padded))
	ecbEncrypt(block, encrypted, padded)
	return base64.StdEncoding.EncodeToString(encrypted), nil
}
