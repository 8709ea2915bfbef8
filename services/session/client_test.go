package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler, opts Options) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts.BaseURL = server.URL
	return NewClient(context.Background(), opts)
}

func TestLoginStoresSessionCookie(t *testing.T) {
	var gotCreds Credentials
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("login method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotCreds); err != nil {
			t.Errorf("decode login body: %v", err)
		}
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc123", Path: "/", HttpOnly: true})
	})
	var gotCookie string
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
	})

	store := NewMemoryTokenStore()
	client := newTestClient(t, mux, Options{
		Credentials: Credentials{User: "display", Password: "secret"},
		Store:       store,
	})

	token, err := client.Login(context.Background())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "sid=abc123" {
		t.Errorf("token = %q, want %q", token, "sid=abc123")
	}
	if gotCreds.User != "display" || gotCreds.Password != "secret" {
		t.Errorf("credentials sent = %+v", gotCreds)
	}
	if stored, _ := store.Load(context.Background()); stored != token {
		t.Errorf("stored token = %q, want %q", stored, token)
	}

	if _, err := client.Send(context.Background(), Request{Method: http.MethodGet, Path: "/ping"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotCookie != "sid=abc123" {
		t.Errorf("Cookie header = %q, want %q", gotCookie, "sid=abc123")
	}
}

func TestLoginRejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}), Options{})

	_, err := client.Login(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Login error = %v, want *AuthError", err)
	}
	if authErr.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", authErr.Status, http.StatusUnauthorized)
	}
	if client.Token() != "" {
		t.Errorf("token set after failed login: %q", client.Token())
	}
}

func TestLoginWithoutCookie(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), Options{})

	_, err := client.Login(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Login error = %v, want *AuthError", err)
	}
}

func TestSendReturnsForbiddenAsResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}), Options{})

	resp, err := client.Send(context.Background(), Request{Method: http.MethodPost, Path: UploadPath, Body: []byte(`{}`)})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestSendTimeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}), Options{Timeout: 50 * time.Millisecond})
	defer close(release)

	_, err := client.Send(context.Background(), Request{Method: http.MethodGet, Path: "/slow"})
	if !IsTimeout(err) {
		t.Fatalf("Send error = %v, want *TimeoutError", err)
	}
}

func TestSendConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(context.Background(), Options{BaseURL: url})
	_, err := client.Send(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Send error = %v, want *RequestError", err)
	}
	if IsTimeout(err) {
		t.Error("connection refused classified as timeout")
	}
}

func TestNewClientRestoresToken(t *testing.T) {
	store := NewMemoryTokenStore()
	if err := store.Save(context.Background(), "sid=restored"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	client := NewClient(context.Background(), Options{BaseURL: "http://127.0.0.1:0", Store: store})
	if client.Token() != "sid=restored" {
		t.Errorf("token = %q, want %q", client.Token(), "sid=restored")
	}
}
