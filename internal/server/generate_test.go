package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newGenerateUpstream(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)
	return upstream
}

func TestGenerateImagePassthrough(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	upstream := newGenerateUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("disease"); got != "melanoma" {
			t.Errorf("disease param = %q", got)
		}
		if got := r.URL.Query().Get("age"); got != "any" {
			t.Errorf("age param = %q", got)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(payload)
	})

	srv, _ := newTestServer(t)
	srv.generator = newGenerateClient(upstream.URL)
	engine := srv.Engine()

	rec := doRequest(t, engine, http.MethodGet, "/admin/generateImage?disease=melanoma&sex=female", "", nil)
	assertStatus(t, rec, http.StatusOK)
	if got := rec.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Fatalf("content type = %q", got)
	}
	if rec.Body.String() != string(payload) {
		t.Fatal("body does not match upstream payload")
	}
}

func TestGenerateImageNoMatch(t *testing.T) {
	upstream := newGenerateUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv, _ := newTestServer(t)
	srv.generator = newGenerateClient(upstream.URL)
	engine := srv.Engine()

	rec := doRequest(t, engine, http.MethodGet, "/admin/generateImage", "", nil)
	assertStatus(t, rec, http.StatusNotFound)
	body := decodeBody(t, rec)
	if body["error"] != "No matching images found" {
		t.Fatalf("unexpected error: %v", body["error"])
	}
}

func TestGenerateImageUpstreamFailure(t *testing.T) {
	upstream := newGenerateUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	srv, _ := newTestServer(t)
	srv.generator = newGenerateClient(upstream.URL)
	engine := srv.Engine()

	rec := doRequest(t, engine, http.MethodGet, "/admin/generateImage", "", nil)
	assertStatus(t, rec, http.StatusBadGateway)
}

func TestGenerateImageUnconfigured(t *testing.T) {
	srv, _ := newTestServer(t)
	engine := srv.Engine()

	rec := doRequest(t, engine, http.MethodGet, "/admin/generateImage", "", nil)
	assertStatus(t, rec, http.StatusServiceUnavailable)
}
