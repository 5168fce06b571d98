package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/handiism/dpm-downloader/internal/model"
)

// FieldSeparator separates the fields of a decrypted payload.
const FieldSeparator = "^"

// Decrypt decodes a base64 AES-CBC payload and splits the plaintext into fields.
//
// key and iv must both be 16 bytes long. The decoded ciphertext must be a
// non-empty multiple of the AES block size.
//
// Returns an error wrapping model.ErrDecryption if:
//   - The payload is not valid base64
//   - The ciphertext length is not block aligned
//   - The PKCS#7 padding is invalid (corrupted data or wrong key/iv)
//   - The plaintext is not valid UTF-8
func Decrypt(ciphertextB64 string, key, iv []byte) ([]string, error) {
	if len(key) != aes.BlockSize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", model.ErrDecryption, aes.BlockSize, len(key))
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", model.ErrDecryption, aes.BlockSize, len(iv))
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertextB64))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", model.ErrDecryption, err)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of %d", model.ErrDecryption, len(data), aes.BlockSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDecryption, err)
	}
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(data, data)

	plaintext, err := unpad(data, aes.BlockSize)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(plaintext) {
		return nil, fmt.Errorf("%w: plaintext is not valid UTF-8", model.ErrDecryption)
	}

	return strings.Split(string(plaintext), FieldSeparator), nil
}

// unpad strips PKCS#7 padding.
func unpad(data []byte, blockSize int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", model.ErrDecryption)
	}
	if !bytes.Equal(data[len(data)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return nil, fmt.Errorf("%w: invalid padding", model.ErrDecryption)
	}
	return data[:len(data)-n], nil
}

// UnescapeHex converts a hex escaped string into bytes.
//
// Both the escaped form used in scripts and bare hex are accepted:
//
//	UnescapeHex(`\x41\x42`) // []byte("AB")
//	UnescapeHex("4142")     // []byte("AB")
func UnescapeHex(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, `\x`, "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex constant: %v", model.ErrParse, err)
	}
	return b, nil
}
