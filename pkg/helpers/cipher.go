package helpers

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrCipherUnavailable is returned for every cipher fault: missing secrets,
// an unsupported method, or undecodable input. Callers treat it as a
// misconfiguration signal, not a programming error.
var ErrCipherUnavailable = errors.New("encryption unavailable")

// TokenCipher produces and consumes opaque verification tokens without any
// server-side token storage. A token is the user id encrypted with AES-CBC
// and carried as URL-safe base64.
type TokenCipher struct {
	secretKey string
	secretIV  string
	method    string
}

// NewTokenCipher builds a cipher from the two configured secrets.
// Supported methods: AES-128-CBC, AES-192-CBC, AES-256-CBC (default).
func NewTokenCipher(secretKey, secretIV, method string) *TokenCipher {
	if method == "" {
		method = "AES-256-CBC"
	}
	return &TokenCipher{secretKey: secretKey, secretIV: secretIV, method: method}
}

func (t *TokenCipher) keySize() int {
	switch strings.ToUpper(t.method) {
	case "AES-128-CBC":
		return 16
	case "AES-192-CBC":
		return 24
	case "AES-256-CBC":
		return 32
	default:
		return 0
	}
}

// material derives a fixed key and IV from the secrets: the key is the
// leading bytes of the hex sha256 digest of the key secret, the IV is the
// leading block-size bytes of the hex digest of the IV secret.
func (t *TokenCipher) material() ([]byte, []byte, error) {
	if t.secretKey == "" || t.secretIV == "" {
		return nil, nil, ErrCipherUnavailable
	}
	size := t.keySize()
	if size == 0 {
		return nil, nil, ErrCipherUnavailable
	}
	keyDigest := sha256.Sum256([]byte(t.secretKey))
	ivDigest := sha256.Sum256([]byte(t.secretIV))
	key := []byte(hex.EncodeToString(keyDigest[:]))[:size]
	iv := []byte(hex.EncodeToString(ivDigest[:]))[:aes.BlockSize]
	return key, iv, nil
}

// Encrypt turns plain into an opaque URL-safe token.
func (t *TokenCipher) Encrypt(plain string) (string, error) {
	key, iv, err := t.material()
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", ErrCipherUnavailable
	}
	src := pkcs7Pad([]byte(plain), aes.BlockSize)
	dst := make([]byte, len(src))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(dst, src)
	return base64.URLEncoding.EncodeToString(dst), nil
}

// Decrypt reverses Encrypt. Malformed base64, a bad length, or broken
// padding all come back as ErrCipherUnavailable; CBC carries no integrity
// tag, so a tampered token may also decrypt to garbage plaintext.
func (t *TokenCipher) Decrypt(token string) (string, error) {
	key, iv, err := t.material()
	if err != nil {
		return "", err
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil || len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", ErrCipherUnavailable
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", ErrCipherUnavailable
	}
	dst := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(dst, raw)
	out, ok := pkcs7Unpad(dst, aes.BlockSize)
	if !ok {
		return "", ErrCipherUnavailable
	}
	return string(out), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Unpad(b []byte, size int) ([]byte, bool) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, false
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}
