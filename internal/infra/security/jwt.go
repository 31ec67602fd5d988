package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a presented token fails signature or
// claim validation.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims are the registered and private claims carried by issued
// access tokens. Redirect tells the client where to land after login.
type AccessClaims struct {
	Redirect string `json:"redirect,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and parses HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer constructs a TokenIssuer signing with the given secret.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue signs an access token for the account, embedding the post-login
// redirect hint.
func (t *TokenIssuer) Issue(accountID, redirect string, now time.Time) (string, error) {
	claims := AccessClaims{
		Redirect: redirect,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Parse validates the token signature and expiry and returns its claims.
func (t *TokenIssuer) Parse(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
