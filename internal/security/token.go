package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const quizTokenIssuer = "grammardrill"

// ErrInvalidToken is returned for a quiz token that is malformed, expired,
// or signed with another secret
var ErrInvalidToken = errors.New("invalid quiz token")

// QuizClaims binds a token holder to one quiz session of one drill
type QuizClaims struct {
	SessionID string `json:"sid"`
	DrillID   int64  `json:"did"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 quiz tokens.
// Tokens are self-contained, so any replica sharing the secret can verify them.
type TokenManager struct {
	secret []byte
}

// NewTokenManager creates a token manager. An empty secret is replaced by a
// random one, which invalidates outstanding tokens on restart.
func NewTokenManager(secret string) (*TokenManager, error) {
	if secret == "" {
		random, err := randomSecret(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
		log.Println("Warning: QUIZ_TOKEN_SECRET not set, using a random secret; quiz tokens will not survive a restart")
		secret = random
	}
	return &TokenManager{secret: []byte(secret)}, nil
}

// Issue signs a token for sessionID on drillID valid for ttl
func (m *TokenManager) Issue(sessionID string, drillID int64, ttl time.Duration) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session ID is required")
	}

	now := time.Now()
	claims := &QuizClaims{
		SessionID: sessionID,
		DrillID:   drillID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    quizTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign quiz token: %w", err)
	}
	return signed, nil
}

// Verify checks a token's signature and expiry and returns its claims
func (m *TokenManager) Verify(tokenString string) (*QuizClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(quizTokenIssuer),
		jwt.WithExpirationRequired(),
	)

	claims := &QuizClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session", ErrInvalidToken)
	}
	return claims, nil
}

func randomSecret(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
