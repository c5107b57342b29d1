package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "agrisense-monitor"

// Roles carried in tokens
const (
	RoleViewer  = "viewer"
	RoleMonitor = "monitor"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the caller of the local API or the monitor itself when
// it queries the data service
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies HS256 tokens with one shared secret
type JWTManager struct {
	secretKey  []byte
	expiration time.Duration
	now        func() time.Time
}

func NewJWTManager(secretKey string, expiration time.Duration) *JWTManager {
	if expiration <= 0 {
		expiration = 30 * time.Minute
	}
	return &JWTManager{
		secretKey:  []byte(secretKey),
		expiration: expiration,
		now:        time.Now,
	}
}

// GenerateToken issues a token for subject
func (m *JWTManager) GenerateToken(subject, role string) (string, error) {
	now := m.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

// ValidateToken checks signature, algorithm and lifetime
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenFunc adapts the manager into a bearer token source for outbound calls
func (m *JWTManager) TokenFunc(subject string) func() (string, error) {
	return func() (string, error) {
		return m.GenerateToken(subject, RoleMonitor)
	}
}
