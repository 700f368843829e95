package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string, issuedAt, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := New(testSecret, 5*time.Second, 120*time.Hour)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func TestVerifyIDToken(t *testing.T) {
	v := newTestVerifier(t)
	now := time.Now()

	token := signToken(t, testSecret, "user-1", now, now.Add(time.Hour))
	userID, err := v.VerifyIDToken(token)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1, got %q", userID)
	}
}

func TestVerifyIDTokenEmpty(t *testing.T) {
	v := newTestVerifier(t)
	if _, err := v.VerifyIDToken("  "); err != ErrNoToken {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestVerifyIDTokenWrongSecret(t *testing.T) {
	v := newTestVerifier(t)
	now := time.Now()
	token := signToken(t, "other-secret", "user-1", now, now.Add(time.Hour))
	if _, err := v.VerifyIDToken(token); err == nil {
		t.Fatal("expected verification to fail for wrong secret")
	}
}

func TestVerifyIDTokenClockSkew(t *testing.T) {
	v := newTestVerifier(t)
	now := time.Now()

	// Expired 3 seconds ago, inside the 5 second leeway.
	token := signToken(t, testSecret, "user-1", now.Add(-time.Hour), now.Add(-3*time.Second))
	if _, err := v.VerifyIDToken(token); err != nil {
		t.Fatalf("expected token inside leeway to verify, got %v", err)
	}

	// Expired well past the leeway.
	token = signToken(t, testSecret, "user-1", now.Add(-time.Hour), now.Add(-time.Minute))
	if _, err := v.VerifyIDToken(token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestCreateSessionCookie(t *testing.T) {
	v := newTestVerifier(t)
	now := time.Now()
	idToken := signToken(t, testSecret, "user-1", now, now.Add(time.Hour))

	cookie, expiresAt, err := v.CreateSessionCookie(idToken)
	if err != nil {
		t.Fatalf("create session cookie: %v", err)
	}
	if cookie == "" {
		t.Fatal("expected non-empty session cookie")
	}
	ttl := time.Until(expiresAt)
	if ttl < 119*time.Hour || ttl > 121*time.Hour {
		t.Fatalf("expected roughly 120h session ttl, got %s", ttl)
	}

	userID, err := v.VerifyIDToken(cookie)
	if err != nil {
		t.Fatalf("session cookie should verify: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1, got %q", userID)
	}
}

func TestCreateSessionCookieInvalidToken(t *testing.T) {
	v := newTestVerifier(t)
	if _, _, err := v.CreateSessionCookie("not-a-token"); err == nil {
		t.Fatal("expected invalid ID token to be rejected")
	}
}
