package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

var ErrCiphertext = errors.New("malformed ciphertext")

// PasswordVault keeps a reversible copy of each password so the recovery
// mail can send the original back. Format: hex(nonce):hex(sealed).
type PasswordVault struct {
	aead cipher.AEAD
}

func NewPasswordVault(key string) (*PasswordVault, error) {
	sum := sha256.Sum256([]byte(key))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &PasswordVault{aead: aead}, nil
}

func (v *PasswordVault) Encrypt(plain string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := v.aead.Seal(nil, nonce, []byte(plain), nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed), nil
}

func (v *PasswordVault) Decrypt(enc string) (string, error) {
	nonceHex, dataHex, ok := strings.Cut(enc, ":")
	if !ok {
		return "", ErrCiphertext
	}
	nonce, err := hex.DecodeString(nonceHex)
	if err != nil || len(nonce) != v.aead.NonceSize() {
		return "", ErrCiphertext
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", ErrCiphertext
	}
	plain, err := v.aead.Open(nil, nonce, data, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

const tempAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// TempPassword returns prefix + 6 random letters/digits + 2 digits, e.g. BMSCE@K7QX2M41.
func TempPassword(prefix string) (string, error) {
	var b strings.Builder
	b.WriteString(prefix)
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(tempAlphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(tempAlphabet[n.Int64()])
	}
	for i := 0; i < 2; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
