package contact

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cosentus/cose-chat/backend/internal/logging"
	"github.com/cosentus/cose-chat/backend/internal/service/hubspot"
	"github.com/cosentus/cose-chat/backend/internal/service/ratelimit"
)

func setupRouter(t *testing.T, upstream http.HandlerFunc, limit int) *chi.Mux {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	crm := hubspot.NewClient(hubspot.Config{AccessToken: "token", BaseURL: srv.URL}, logging.Discard())
	handler := New(crm, ratelimit.New(limit, time.Minute))
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func search(r http.Handler, email string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(map[string]string{"email": email})
	req := httptest.NewRequest(http.MethodPost, "/hubspot/contact/search", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSearchFound(t *testing.T) {
	r := setupRouter(t, func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": []map[string]string{{"id": "12345"}}})
	}, 10)

	resp := search(r, "jane@x.com")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["contactId"] != "12345" {
		t.Fatalf("unexpected contactId: %q", body["contactId"])
	}
}

func TestSearchNotFound(t *testing.T) {
	r := setupRouter(t, func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}, 10)

	resp := search(r, "jane@x.com")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSearchMissingEmail(t *testing.T) {
	r := setupRouter(t, func(w http.ResponseWriter, req *http.Request) {}, 10)

	resp := search(r, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSearchRateLimited(t *testing.T) {
	calls := 0
	r := setupRouter(t, func(w http.ResponseWriter, req *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]any{"results": []map[string]string{{"id": "1"}}})
	}, 2)

	if resp := search(r, "jane@x.com"); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp := search(r, "jane@x.com"); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	resp := search(r, "jane@x.com")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if calls != 2 {
		t.Fatalf("upstream must not be called for the rejected request, got %d calls", calls)
	}
}

func TestSearchUpstreamFailure(t *testing.T) {
	r := setupRouter(t, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}, 10)

	resp := search(r, "jane@x.com")
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}
