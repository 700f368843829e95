// Package identity verifies bearer ID tokens issued by the external identity
// provider and mints session cookies for authenticated clients.
package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionIssuer = "medgen-session"

var (
	ErrNoToken      = errors.New("no token provided")
	ErrInvalidToken = errors.New("invalid token")
)

type Claims struct {
	jwt.RegisteredClaims
}

// Verifier checks ID tokens against a shared signing secret, tolerating a
// small amount of clock skew between this service and the token issuer.
type Verifier struct {
	secret     []byte
	leeway     time.Duration
	sessionTTL time.Duration
}

func New(secret string, leeway, sessionTTL time.Duration) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth secret is required")
	}
	if leeway < 0 {
		leeway = 0
	}
	if sessionTTL <= 0 {
		sessionTTL = 5 * 24 * time.Hour
	}
	return &Verifier{
		secret:     []byte(secret),
		leeway:     leeway,
		sessionTTL: sessionTTL,
	}, nil
}

// VerifyIDToken validates the token signature and time claims and returns the
// subject user id.
func (v *Verifier) VerifyIDToken(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", ErrNoToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// CreateSessionCookie verifies the ID token and exchanges it for a longer
// lived session token bound to the same user.
func (v *Verifier) CreateSessionCookie(idToken string) (string, time.Time, error) {
	userID, err := v.VerifyIDToken(idToken)
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt := now.Add(v.sessionTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
