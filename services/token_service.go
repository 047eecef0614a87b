package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind selects which signing key a token is bound to. Access and
// refresh tokens use distinct secrets so compromising one does not
// compromise the other.
type TokenKind int

const (
	AccessToken TokenKind = iota
	RefreshToken
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the signed, time-limited credentials
// carried by clients. HS256 throughout.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (t *TokenService) IssueAccessToken(userID string) (string, error) {
	return t.issue(userID, t.accessSecret, t.accessTTL)
}

func (t *TokenService) IssueRefreshToken(userID string) (string, error) {
	return t.issue(userID, t.refreshSecret, t.refreshTTL)
}

func (t *TokenService) issue(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Verify decodes a token with the key class it was issued under. Expiry is
// surfaced as ErrTokenExpired; every other failure (malformed input, bad
// signature, wrong algorithm) as ErrTokenInvalid.
func (t *TokenService) Verify(tokenStr string, kind TokenKind) (*Claims, error) {
	secret := t.accessSecret
	if kind == RefreshToken {
		secret = t.refreshSecret
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
