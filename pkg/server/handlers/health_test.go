package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthCheckReportsLivenessOnly(t *testing.T) {
	h := NewHealthHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.HealthCheck(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if res.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("expected application/json, got %s", res.Header.Get("Content-Type"))
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "alive" {
		t.Fatalf("expected status alive, got %v", resp["status"])
	}
	if _, ok := resp["timestamp"]; !ok {
		t.Fatal("expected timestamp in response")
	}
	if _, ok := resp["database"]; ok {
		t.Fatal("health check must not report a database probe")
	}
}
