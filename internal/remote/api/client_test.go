package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kakebo/internal/remote"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		BaseURL: srv.URL,
		Token:   StaticToken("test-token"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewRequiresBaseURLAndToken(t *testing.T) {
	if _, err := New(Config{Token: StaticToken("x")}); err == nil {
		t.Error("missing base URL must be rejected")
	}
	if _, err := New(Config{BaseURL: "http://localhost:8080"}); err == nil {
		t.Error("missing token func must be rejected")
	}
}

func TestCreateExpenseSendsBearerAndDecodes(t *testing.T) {
	var gotAuth, gotPath, gotMethod string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotMethod = r.Method

		var p remote.ExpensePayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(remote.Record{
			ID:          p.ID,
			Description: p.Description,
			AmountCents: p.AmountCents,
			UpdatedAt:   time.Now().UTC(),
		})
	}))

	rec, err := client.CreateExpense(context.Background(), remote.ExpensePayload{
		ID: "e-1", Description: "Coffee", Category: "Spesa", AmountCents: 180,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("expected bearer header, got %q", gotAuth)
	}
	if gotMethod != http.MethodPost || gotPath != "/expenses" {
		t.Errorf("expected POST /expenses, got %s %s", gotMethod, gotPath)
	}
	if rec.ID != "e-1" || rec.AmountCents != 180 {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestUpdateAndDeletePaths(t *testing.T) {
	var paths []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))

	ctx := context.Background()
	if _, err := client.UpdateExpense(ctx, "e-1", remote.ExpensePayload{ID: "e-1"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := client.DeleteExpense(ctx, "e-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []string{"PUT /expenses/e-1", "DELETE /expenses/e-1"}
	for i, w := range want {
		if paths[i] != w {
			t.Errorf("call %d: expected %s, got %s", i, w, paths[i])
		}
	}
}

func TestNon2xxMapsToAPIError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		terminal   bool
		credential bool
	}{
		{"unprocessable", 422, `{"message":"amount must be positive"}`, true, false},
		{"not found", 404, `{"message":"no such expense"}`, true, false},
		{"unauthorized", 401, `{"message":"token expired"}`, false, true},
		{"server error", 500, ``, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			_, err := client.CreateExpense(context.Background(), remote.ExpensePayload{ID: "e-1"})
			if err == nil {
				t.Fatal("expected an error")
			}

			var apiErr *remote.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *remote.APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.StatusCode)
			}
			if remote.IsTerminal(err) != tt.terminal {
				t.Errorf("IsTerminal = %v, want %v", remote.IsTerminal(err), tt.terminal)
			}
			if remote.IsCredential(err) != tt.credential {
				t.Errorf("IsCredential = %v, want %v", remote.IsCredential(err), tt.credential)
			}
		})
	}
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(422)
		w.Write([]byte(`{"message":"description too long"}`))
	}))

	_, err := client.CreateExpense(context.Background(), remote.ExpensePayload{ID: "e-1"})
	var apiErr *remote.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "description too long" {
		t.Fatalf("expected message from server, got %v", err)
	}
}

func TestListExpenses(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/expenses" {
			t.Errorf("expected GET /expenses, got %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]remote.Record{
			{ID: "e-1", Description: "one"},
			{ID: "e-2", Description: "two"},
		})
	}))

	recs, err := client.ListExpenses(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "e-1" || recs[1].ID != "e-2" {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestPingHitsHealth(t *testing.T) {
	var gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if gotPath != "/health" {
		t.Errorf("expected /health, got %s", gotPath)
	}
}

func TestTransportErrorIsNotAPIError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // connection refused from here on

	client, err := New(Config{BaseURL: url, Token: StaticToken("x"), Timeout: time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.CreateExpense(context.Background(), remote.ExpensePayload{ID: "e-1"})
	if err == nil {
		t.Fatal("expected a transport error")
	}
	// Transport failures classify as transient: neither terminal nor
	// credential, so the engine retries them.
	if remote.IsTerminal(err) || remote.IsCredential(err) {
		t.Fatalf("transport error must be transient, got %v", err)
	}
}
