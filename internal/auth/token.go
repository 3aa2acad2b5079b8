package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const TokenTTL = 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims binds a wallet address to a time-limited session.
type Claims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies HS256 session tokens. The clock is injectable so
// expiry boundaries can be tested.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the issuer using the given clock.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	return &Issuer{secret: i.secret, ttl: i.ttl, now: now}
}

// Issue creates a bearer token for the address, lowercased, expiring after
// the issuer's TTL.
func (i *Issuer) Issue(address string) (string, error) {
	now := i.now()
	claims := &Claims{
		Address: strings.ToLower(address),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify checks the token's signature and expiry and returns the bound
// address. All failure modes collapse to ErrInvalidToken; callers never see
// parser internals.
func (i *Issuer) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid || claims.Address == "" {
		return "", ErrInvalidToken
	}
	return claims.Address, nil
}

// ExpiresAt reports the token's expiry without requiring it to be currently
// valid. Used for session bookkeeping after a successful Verify or Issue.
func (i *Issuer) ExpiresAt(tokenString string) (time.Time, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrInvalidToken
	}
	return claims.ExpiresAt.Time, nil
}
