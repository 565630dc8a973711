package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// EncryptedPrefix marks a connection string argument sealed with
// EncryptionService. Host applications use it to keep credentials out of
// the process list.
const EncryptedPrefix = "enc:"

const keyInfo = "odbcbridge connection string"

// EncryptionService handles AES-256-GCM encryption/decryption
type EncryptionService struct {
	key []byte
}

// NewEncryptionService derives the AES-256 key from secret with HKDF-SHA256.
// The secret must be at least 32 characters.
func NewEncryptionService(secret string) (*EncryptionService, error) {
	if len(secret) < 32 {
		return nil, errors.New("key must be at least 32 characters")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, err
	}
	return &EncryptionService{key: key}, nil
}

// IsEncrypted reports whether s carries EncryptedPrefix.
func IsEncrypted(s string) bool {
	return strings.HasPrefix(s, EncryptedPrefix)
}

// Seal encrypts a connection string into its "enc:" form.
func (s *EncryptionService) Seal(connStr string) (string, error) {
	ct, err := s.Encrypt(connStr)
	if err != nil {
		return "", err
	}
	return EncryptedPrefix + ct, nil
}

// Open reverses Seal.
func (s *EncryptionService) Open(sealed string) (string, error) {
	if !IsEncrypted(sealed) {
		return "", errors.New("connection string is not encrypted")
	}
	return s.Decrypt(strings.TrimPrefix(sealed, EncryptedPrefix))
}

// Encrypt encrypts plaintext using AES-GCM and returns base64 encoded string
func (s *EncryptionService) Encrypt(plaintext string) (string, error) {
	aesGCM, err := s.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a base64 encoded ciphertext
func (s *EncryptionService) Decrypt(cryptoText string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(cryptoText))
	if err != nil {
		return "", err
	}

	aesGCM, err := s.aead()
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

func (s *EncryptionService) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
