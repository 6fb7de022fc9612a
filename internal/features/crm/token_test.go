package crm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestTokenManager(accountsURL string, now func() time.Time) *TokenManagerImpl {
	return &TokenManagerImpl{
		accountsURL:  accountsURL + "?",
		clientId:     "client-id",
		clientSecret: "client-secret",
		refreshToken: "refresh-token",
		client:       &http.Client{},
		logger:       zap.NewNop(),
		now:          now,
	}
}

func TestGetValidTokenReuse(t *testing.T) {
	var refreshCalls int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token refresh method = %s, want POST", r.Method)
		}
		q := r.URL.Query()
		if q.Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %q, want refresh_token", q.Get("grant_type"))
		}
		if q.Get("refresh_token") != "refresh-token" {
			t.Errorf("refresh_token = %q, want refresh-token", q.Get("refresh_token"))
		}

		n := atomic.AddInt64(&refreshCalls, 1)
		fmt.Fprintf(w, `{"access_token":"token-%d","expires_in":3600}`, n)
	}))
	defer srv.Close()

	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := newTestTokenManager(srv.URL, func() time.Time { return current })

	// First call refreshes
	first, err := m.GetValidToken(context.Background())
	if err != nil {
		t.Fatalf("GetValidToken() error: %v", err)
	}
	if first != "token-1" {
		t.Errorf("token = %q, want token-1", first)
	}

	// Second call within the lifetime window reuses the cache
	second, err := m.GetValidToken(context.Background())
	if err != nil {
		t.Fatalf("GetValidToken() error: %v", err)
	}
	if second != first {
		t.Errorf("expected cached token, got %q", second)
	}
	if refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1", refreshCalls)
	}

	// Past lifetime minus the 5-minute margin the token must refresh again,
	// exactly once
	current = current.Add(3600*time.Second - 200*time.Second)
	third, err := m.GetValidToken(context.Background())
	if err != nil {
		t.Fatalf("GetValidToken() error: %v", err)
	}
	if third != "token-2" {
		t.Errorf("token after expiry = %q, want token-2", third)
	}
	if refreshCalls != 2 {
		t.Errorf("refresh calls = %d, want 2", refreshCalls)
	}
}

func TestGetValidTokenFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "Non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "Malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"access_token":`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			m := newTestTokenManager(srv.URL, time.Now)

			_, err := m.GetValidToken(context.Background())
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("expected AuthError, got %v", err)
			}
		})
	}
}
