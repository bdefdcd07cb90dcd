package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceTokenIssuer is the issuer stamped on internal service tokens.
const ServiceTokenIssuer = "lasz"

// ScopeSubscriptionUpdate grants access to the internal subscription update endpoint.
const ScopeSubscriptionUpdate = "billing:update-subscription"

var (
	ErrMissingServiceSecret = errors.New("service token secret is not configured")
	ErrInvalidServiceToken  = errors.New("invalid service token")
)

// ServiceClaims are the claims carried by an internal service token.
type ServiceClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// GenerateServiceToken signs an HS256 token for a trusted internal caller.
func GenerateServiceToken(secret, subject, scope string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrMissingServiceSecret
	}
	now := time.Now()
	claims := ServiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ServiceTokenIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scope: scope,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseServiceToken validates tokenString and checks it carries scope.
func ParseServiceToken(secret, tokenString, scope string) (*ServiceClaims, error) {
	if secret == "" {
		return nil, ErrMissingServiceSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &ServiceClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(ServiceTokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidServiceToken, err)
	}

	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidServiceToken
	}
	if claims.Scope != scope {
		return nil, fmt.Errorf("%w: scope %q not granted", ErrInvalidServiceToken, scope)
	}
	return claims, nil
}
