package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestOrderService(baseURL string) *OrderServiceImpl {
	return &OrderServiceImpl{
		baseURL:        baseURL,
		consumerKey:    "ck_test",
		consumerSecret: "cs_test",
		pageSize:       2,
		client:         &http.Client{Timeout: 5 * time.Second},
		logger:         zap.NewNop(),
	}
}

func TestFetchOrdersSince(t *testing.T) {
	since := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ck_test" || pass != "cs_test" {
			t.Errorf("basic auth = %q/%q, ok=%v", user, pass, ok)
		}
		if got := r.URL.Query().Get("after"); got != "2024-01-01T10:30:00" {
			t.Errorf("after param = %q, want 2024-01-01T10:30:00", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "2" {
			t.Errorf("per_page param = %q, want 2", got)
		}

		fmt.Fprint(w, `[
			{"id":1,"date_created":"2024-01-01T11:00:00","total":"10.00",
			 "billing":{"first_name":"A","last_name":"B","email":"a@b.com"},
			 "line_items":[{"name":"Widget","quantity":1,"total":"10.00"}]},
			{"id":2,"date_created":"2024-01-01T11:05:00","total":"20.00",
			 "billing":{"first_name":"C","last_name":"D","email":"c@d.com"},
			 "line_items":[]}
		]`)
	}))
	defer srv.Close()

	svc := newTestOrderService(srv.URL)

	orders, err := svc.FetchOrdersSince(context.Background(), since)
	if err != nil {
		t.Fatalf("FetchOrdersSince() error: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("len(orders) = %d, want 2", len(orders))
	}
	if orders[0].ID != 1 || orders[0].Billing.Email != "a@b.com" {
		t.Errorf("first order decoded wrong: %+v", orders[0])
	}
	if orders[0].LineItems[0].Name != "Widget" {
		t.Errorf("line item = %+v, want Widget", orders[0].LineItems[0])
	}
}

func TestFetchOrdersSinceFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "Non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "Malformed payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"not":"a list"`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			svc := newTestOrderService(srv.URL)

			_, err := svc.FetchOrdersSince(context.Background(), time.Now())
			var srcErr *SourceAPIError
			if !errors.As(err, &srcErr) {
				t.Fatalf("expected SourceAPIError, got %v", err)
			}
		})
	}
}
