package jwt

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims are the wallet session token payload.
type Claims struct {
	jwt.RegisteredClaims
	Address   string `json:"address"`
	SessionID string `json:"sid"`
}

// Manager issues and verifies HS256 wallet session tokens.
type Manager struct {
	secretKey []byte
	ttl       time.Duration
}

// NewManager signs with secret. An empty secret is replaced by a random
// per-process key, so tokens stop verifying after a restart.
func NewManager(secret string, ttl time.Duration) *Manager {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(err)
		}
	}
	return &Manager{secretKey: key, ttl: ttl}
}

// GenerateToken binds a token to a wallet session. A zero ttl issues tokens
// without expiry.
func (m *Manager) GenerateToken(sessionID, address string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  address,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Address:   address,
		SessionID: sessionID,
	}
	if m.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

func (m *Manager) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.SessionID != "" {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
