package crypto

import (
	"bytes"
	"crypto/cipher"
	"fmt"

	"github.com/credstorage/go-credential-server/types"
)

// ECB and PKCS#7 helpers. The standard library deliberately omits ECB; it is
// implemented here only for wire compatibility with the existing clients.

func ecbEncrypt(block cipher.Block, dst, src []byte) {
	bs := block.BlockSize()
	for len(src) > 0 {
		block.Encrypt(dst[:bs], src[:bs])
		src = src[bs:]
		dst = dst[bs:]
	}
}

func ecbDecrypt(block cipher.Block, dst, src []byte) {
	bs := block.BlockSize()
	for len(src) > 0 {
		block.Decrypt(dst[:bs], src[:bs])
		src = src[bs:]
		dst = dst[bs:]
	}
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: invalid padded length %d", types.ErrCrypto, len(data))
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", types.ErrCrypto)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("%w: invalid padding", types.ErrCrypto)
		}
	}
	return data[:len(data)-padding], nil
}
