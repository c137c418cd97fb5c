package upload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	c := NewClient(ts.URL+"/", "secret")
	c.backoff = time.Millisecond
	t.Cleanup(func() {
		c.Close()
		ts.Close()
	})
	return c
}

// TestSendCSV verifies the request shape and result decoding.
func TestSendCSV(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/ingest/alpha" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q, want secret", got)
		}
		if got := r.Header.Get("Content-Type"); got != "text/csv" {
			t.Errorf("Content-Type = %q, want text/csv", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sessions_received":2,"sessions_inserted":2,"exercises_created":1,"sets_received":9,"sets_inserted":9}`))
	})

	result, err := c.SendCSV(context.Background(), []byte(exportCSV))
	if err != nil {
		t.Fatal(err)
	}
	if result.SessionsInserted != 2 || result.SetsInserted != 9 {
		t.Errorf("result = %+v, want 2 sessions 9 sets", result)
	}
}

// TestSendCSVRetriesServerErrors verifies 5xx responses are retried.
func TestSendCSVRetriesServerErrors(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"sessions_inserted":1}`))
	})

	if _, err := c.SendCSV(context.Background(), []byte(exportCSV)); err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

// TestSendCSVGivesUp verifies the error after three failed attempts.
func TestSendCSVGivesUp(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.SendCSV(context.Background(), []byte(exportCSV))
	if err == nil || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("err = %v, want after 3 attempts", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

// TestSendCSVNoRetryOnClientError verifies 4xx responses fail immediately.
func TestSendCSVNoRetryOnClientError(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	})

	_, err := c.SendCSV(context.Background(), []byte(exportCSV))
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("err = %v, want 401", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// TestPing verifies the health check.
func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
}
