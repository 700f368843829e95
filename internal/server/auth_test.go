package server

import (
	"net/http"
	"testing"

	"medgen-server/internal/db"
)

func TestRequireAuthMissingHeader(t *testing.T) {
	srv, _ := newTestServer(t)
	engine := srv.Engine()

	rec := doRequest(t, engine, http.MethodPost, "/initialize-classic-game", "", map[string]any{})
	assertStatus(t, rec, http.StatusUnauthorized)
	body := decodeBody(t, rec)
	if body["error"] != "No token provided" {
		t.Fatalf("unexpected error: %v", body["error"])
	}
}

func TestRequireAuthBadToken(t *testing.T) {
	srv, _ := newTestServer(t)
	engine := srv.Engine()

	rec := doRequest(t, engine, http.MethodPost, "/initialize-classic-game", "not-a-jwt", map[string]any{})
	assertStatus(t, rec, http.StatusUnauthorized)
	body := decodeBody(t, rec)
	if body["error"] != "Invalid token" {
		t.Fatalf("unexpected error: %v", body["error"])
	}
	if body["details"] == nil || body["details"] == "" {
		t.Fatal("expected verification details")
	}
}

func TestCreateSession(t *testing.T) {
	srv, conn := newTestServer(t)
	engine := srv.Engine()

	rec := doRequest(t, engine, http.MethodPost, "/auth/session", "",
		map[string]any{"idToken": authToken(t, "session-user")})
	assertStatus(t, rec, http.StatusOK)
	body := decodeBody(t, rec)
	cookie, _ := body["sessionCookie"].(string)
	if cookie == "" {
		t.Fatal("expected a session cookie")
	}

	// First session creates the user row.
	var user db.User
	if err := conn.Where("external_id = ?", "session-user").First(&user).Error; err != nil {
		t.Fatalf("user not created: %v", err)
	}

	// The cookie itself is accepted as a bearer token.
	rec = doRequest(t, engine, http.MethodPost, "/initialize-classic-game", cookie,
		map[string]any{"imageCount": 0})
	if rec.Code == http.StatusUnauthorized {
		t.Fatalf("session cookie rejected: %s", rec.Body.String())
	}
}

func TestCreateSessionIdempotentUser(t *testing.T) {
	srv, conn := newTestServer(t)
	engine := srv.Engine()

	for i := 0; i < 2; i++ {
		rec := doRequest(t, engine, http.MethodPost, "/auth/session", "",
			map[string]any{"idToken": authToken(t, "repeat-user")})
		assertStatus(t, rec, http.StatusOK)
	}

	var count int64
	if err := conn.Model(&db.User{}).Where("external_id = ?", "repeat-user").Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 user row, got %d", count)
	}
}

func TestCreateSessionMissingToken(t *testing.T) {
	srv, _ := newTestServer(t)
	engine := srv.Engine()

	rec := doRequest(t, engine, http.MethodPost, "/auth/session", "", map[string]any{})
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestCreateSessionInvalidToken(t *testing.T) {
	srv, _ := newTestServer(t)
	engine := srv.Engine()

	rec := doRequest(t, engine, http.MethodPost, "/auth/session", "",
		map[string]any{"idToken": "garbage"})
	assertStatus(t, rec, http.StatusUnauthorized)
}
