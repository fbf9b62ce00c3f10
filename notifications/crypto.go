package notifications

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	ierrors "github.com/jrsteele09/go-imagen-client/internal/errors"
)

// Payloads use the OpenSSL "Salted__" passphrase format produced by
// CryptoJS.AES.encrypt: base64("Salted__" | 8 byte salt | AES-256-CBC
// ciphertext), key and IV derived with EVP_BytesToKey over MD5.
const (
	saltHeader = "Salted__"
	saltLen    = 8
	keyLen     = 32
)

var ErrDecrypt = ierrors.ErrDecrypt

// KeyForEmail returns the passphrase for a user's payloads: the lowercase
// hex MD5 of their email address.
func KeyForEmail(email string) string {
	sum := md5.Sum([]byte(email))
	return hex.EncodeToString(sum[:])
}

// Decrypt opens a payload and decodes it as a JSON object.
func Decrypt(ciphertext, passphrase string) (map[string]any, error) {
	if ciphertext == "" || passphrase == "" {
		return nil, fmt.Errorf("%w: empty input", ErrDecrypt)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	if len(raw) < len(saltHeader)+saltLen || string(raw[:len(saltHeader)]) != saltHeader {
		return nil, fmt.Errorf("%w: missing salt header", ErrDecrypt)
	}
	salt := raw[len(saltHeader) : len(saltHeader)+saltLen]
	body := raw[len(saltHeader)+saltLen:]
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a whole number of blocks", ErrDecrypt)
	}

	key, iv := deriveKeyIV([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)
	plain, err = unpad(plain)
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal(plain, &obj); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object: %w", ErrDecrypt, err)
	}
	return obj, nil
}

// Encrypt produces a payload Decrypt can open. The backend is the usual
// producer; this exists for local feeds and tests.
func Encrypt(plaintext []byte, passphrase string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("encrypt salt: %w", err)
	}
	key, iv := deriveKeyIV([]byte(passphrase), salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	padded := pad(plaintext)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	var buf bytes.Buffer
	buf.WriteString(saltHeader)
	buf.Write(salt)
	buf.Write(out)
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// deriveKeyIV is OpenSSL's EVP_BytesToKey with MD5 and one iteration.
func deriveKeyIV(passphrase, salt []byte) (key, iv []byte) {
	var derived, prev []byte
	for len(derived) < keyLen+aes.BlockSize {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+aes.BlockSize]
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(append([]byte(nil), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrDecrypt)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, errBadPadding)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: %w", ErrDecrypt, errBadPadding)
		}
	}
	return b[:len(b)-n], nil
}

var errBadPadding = errors.New("bad padding")
