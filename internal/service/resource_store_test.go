package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"pdf-workbench/internal/domain"
)

func TestIsURL(t *testing.T) {
	tests := map[string]bool{
		"https://keys.example.com/a.pem": true,
		"http://localhost:8080/files/":   true,
		"/home/user/keys/a.pem":          false,
		"key_files/a.pem":                false,
		"ftp://example.com/a.pem":        false,
	}
	for in, want := range tests {
		if got := IsURL(in); got != want {
			t.Fatalf("IsURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestResourceStore_LocalRoundTrip(t *testing.T) {
	store := NewResourceStore(time.Second, NewMockLogger())
	path := filepath.Join(t.TempDir(), "nested", "a.pem")

	if err := store.Put(context.Background(), path, []byte("key")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	data, err := store.Get(context.Background(), path)
	if err != nil || string(data) != "key" {
		t.Fatalf("unexpected Get result %q (%v)", data, err)
	}
	if _, err := store.Get(context.Background(), path+".missing"); !errors.Is(err, domain.ErrPublicKeyNotFound) {
		t.Fatalf("expected ErrPublicKeyNotFound, got %v", err)
	}
}

func TestResourceStore_Remote(t *testing.T) {
	stored := map[string][]byte{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			stored[r.URL.Path] = body
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			data, ok := stored[r.URL.Path]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Write(data)
		}
	}))
	defer server.Close()

	store := NewResourceStore(time.Second, NewMockLogger())
	ctx := context.Background()
	if err := store.Put(ctx, server.URL+"/files/a.pem", []byte("pem")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	data, err := store.Get(ctx, server.URL+"/files/a.pem")
	if err != nil || string(data) != "pem" {
		t.Fatalf("unexpected Get result %q (%v)", data, err)
	}
	if _, err := store.Get(ctx, server.URL+"/files/b.pem"); !errors.Is(err, domain.ErrPublicKeyNotFound) {
		t.Fatalf("expected ErrPublicKeyNotFound, got %v", err)
	}
}
