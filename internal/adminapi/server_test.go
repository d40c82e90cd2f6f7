package adminapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arimoto/sipcore/internal/dialogstore"
	"github.com/arimoto/sipcore/internal/registry"
)

type fakeRegistry struct {
	users map[string]registry.User
}

func (f *fakeRegistry) All() []registry.User {
	out := make([]registry.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out
}

func (f *fakeRegistry) Get(ext string) (registry.User, bool) {
	u, ok := f.users[ext]
	return u, ok
}

type fakeDialogs struct{}

func (fakeDialogs) IterActive(fn func(dialogstore.Dialog)) {}

func TestHealthEndpoint(t *testing.T) {
	s := NewServer(":0", &fakeRegistry{users: map[string]registry.User{}}, fakeDialogs{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected X-Request-Id header to be set")
	}
}

func TestUserByExtensionNotFound(t *testing.T) {
	s := NewServer(":0", &fakeRegistry{users: map[string]registry.User{}}, fakeDialogs{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/9999", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUserByExtensionFound(t *testing.T) {
	s := NewServer(":0", &fakeRegistry{users: map[string]registry.User{
		"200": {Extension: "200", InternalAddress: "192.168.100.10", SIPPort: 5060},
	}}, fakeDialogs{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/200", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var u registry.User
	if err := json.NewDecoder(rec.Body).Decode(&u); err != nil {
		t.Fatal(err)
	}
	if u.Extension != "200" {
		t.Fatalf("got %+v", u)
	}
}
