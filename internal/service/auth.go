package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingToken = errors.New("missing token")
)

const tokenBytes = 32

// TokenAuth checks API bearer tokens against a bcrypt hash. With no hash
// configured every request is accepted.
type TokenAuth struct {
	hash []byte

	mu       sync.RWMutex
	verified []byte // sha256 of the last token that matched
}

func NewTokenAuth(hash string) (*TokenAuth, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return &TokenAuth{}, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid api token hash: %w", err)
	}
	return &TokenAuth{hash: []byte(hash)}, nil
}

func (a *TokenAuth) Enabled() bool {
	return len(a.hash) > 0
}

func (a *TokenAuth) Verify(token string) error {
	if !a.Enabled() {
		return nil
	}
	if token == "" {
		return ErrMissingToken
	}

	sum := sha256.Sum256([]byte(token))
	a.mu.RLock()
	cached := a.verified != nil && hmac.Equal(a.verified, sum[:])
	a.mu.RUnlock()
	if cached {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(token)); err != nil {
		return ErrInvalidToken
	}

	a.mu.Lock()
	a.verified = sum[:]
	a.mu.Unlock()
	return nil
}

// GenerateToken returns a random URL-safe token.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the bcrypt hash to configure as api_token_hash.
func HashToken(token string) (string, error) {
	if len(token) < 16 {
		return "", fmt.Errorf("token must be at least 16 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hash), nil
}
