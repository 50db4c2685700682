package crypto

import (
	"bytes"
	"crypto/cipher"
	"crypto/des"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	ErrKeySize = errors.New("triple DES key must be 24 bytes")
	ErrIVSize  = errors.New("triple DES IV must be 8 bytes")

	// ErrDecode wraps every decryption failure: bad base64, truncated or
	// non-block-aligned ciphertext, invalid padding.
	ErrDecode = errors.New("malformed ciphertext")
)

// TripleDESCodec encrypts and decrypts payloads with des-ede3-cbc and PKCS#7
// padding, using one key and IV fixed for the process lifetime.
//
// The static IV makes the transform deterministic: equal plaintexts always
// produce equal ciphertexts, and there is no authentication tag. That is the
// wire format deployed clients depend on, so it is kept as an explicit, named
// strategy here rather than hidden at call sites; replacing it with a
// randomized authenticated scheme means swapping this type, not the callers.
type TripleDESCodec struct {
	key []byte
	iv  []byte
}

// NewTripleDESCodec validates the key and IV sizes and returns a codec.
// The caller's slices are copied; the codec never mutates after construction.
func NewTripleDESCodec(key, iv []byte) (*TripleDESCodec, error) {
	if len(key) != 24 {
		return nil, ErrKeySize
	}
	if len(iv) != des.BlockSize {
		return nil, ErrIVSize
	}
	if _, err := des.NewTripleDESCipher(key); err != nil {
		return nil, err
	}
	return &TripleDESCodec{
		key: bytes.Clone(key),
		iv:  bytes.Clone(iv),
	}, nil
}

// EncryptBytes encrypts raw bytes, returning ciphertext padded to the DES
// block size.
func (c *TripleDESCodec) EncryptBytes(plaintext []byte) ([]byte, error) {
	block, err := des.NewTripleDESCipher(c.key)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, des.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, c.iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// DecryptBytes decrypts ciphertext produced by EncryptBytes.
func (c *TripleDESCodec) DecryptBytes(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%des.BlockSize != 0 {
		return nil, fmt.Errorf("%w: length %d not a positive multiple of %d", ErrDecode, len(ciphertext), des.BlockSize)
	}

	block, err := des.NewTripleDESCipher(c.key)
	if err != nil {
		return nil, err
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, c.iv).CryptBlocks(padded, ciphertext)
	return pkcs7Unpad(padded, des.BlockSize)
}

// EncryptText encrypts a UTF-8 string and returns base64 ciphertext.
func (c *TripleDESCodec) EncryptText(plaintext string) (string, error) {
	ciphertext, err := c.EncryptBytes([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptText decrypts base64 ciphertext back to a UTF-8 string.
func (c *TripleDESCodec) DecryptText(encoded string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64", ErrDecode)
	}
	plaintext, err := c.DecryptBytes(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrDecode)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", ErrDecode)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: invalid padding", ErrDecode)
		}
	}
	return data[:len(data)-n], nil
}
