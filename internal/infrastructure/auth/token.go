// Package auth turns the shopper's bearer token into an identity.User. The
// token itself is issued by the storefront backend and forwarded unchanged.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/storefront/checkout/internal/domain/identity"
)

// Common errors
var (
	ErrMissingToken     = errors.New("missing bearer token")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

// Claims are the claims read from a storefront token
type Claims struct {
	jwt.RegisteredClaims
	Phone string `json:"phone,omitempty"`
}

// Inspector reads shopper tokens. With a secret, HMAC signatures are
// verified. Without one, JWTs are decoded unverified and non-JWT tokens are
// accepted as opaque, leaving verification to the backend. An unverified
// subject is never trusted: such users are keyed by their token.
type Inspector struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewInspector creates an Inspector. An empty secret disables verification.
func NewInspector(secret, issuer string) *Inspector {
	var key []byte
	if secret != "" {
		key = []byte(secret)
	}
	return &Inspector{secret: key, issuer: issuer, now: time.Now}
}

// Verifies reports whether signatures are checked
func (i *Inspector) Verifies() bool {
	return i.secret != nil
}

// ExtractBearer returns the token of an "Authorization: Bearer <token>" header
func ExtractBearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// Inspect returns the user carried by token
func (i *Inspector) Inspect(token string) (*identity.User, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := i.parse(token)
	if err != nil {
		if !i.Verifies() && errors.Is(err, ErrInvalidToken) {
			return &identity.User{Token: token}, nil
		}
		return nil, err
	}

	user := &identity.User{Token: token, Phone: claims.Phone}
	if i.Verifies() {
		user.Subject = claims.Subject
	}
	return user, nil
}

func (i *Inspector) parse(token string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(i.now)}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	parser := jwt.NewParser(opts...)

	if !i.Verifies() {
		claims := &Claims{}
		if _, _, err := parser.ParseUnverified(token, claims); err != nil {
			return nil, ErrInvalidToken
		}
		if err := i.checkTimes(claims); err != nil {
			return nil, err
		}
		return claims, nil
	}

	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, ErrInvalidClaims
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// checkTimes applies exp and nbf to an unverified token
func (i *Inspector) checkTimes(c *Claims) error {
	now := i.now()
	if c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time) {
		return ErrExpiredToken
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrTokenNotYetValid
	}
	if i.issuer != "" && c.Issuer != i.issuer {
		return ErrInvalidClaims
	}
	return nil
}

// Issue signs claims for subject with the inspector's secret. Used by tests
// and local tooling that stand in for the storefront backend.
func (i *Inspector) Issue(subject, phone string, ttl time.Duration) (string, error) {
	if !i.Verifies() {
		return "", errors.New("issuing tokens requires a secret")
	}
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Phone: phone,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}
