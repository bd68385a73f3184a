package hubspot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosentus/cose-chat/backend/internal/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{AccessToken: "token", BaseURL: srv.URL}, logging.Discard())
}

func TestSearchContactFound(t *testing.T) {
	var received searchRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crm/v3/objects/contacts/search", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{{"id": "12345"}, {"id": "67890"}},
		})
	})

	id, err := c.SearchContact(context.Background(), "Jane@X.com")
	require.NoError(t, err)
	assert.Equal(t, "12345", id)

	require.Len(t, received.FilterGroups, 1)
	require.Len(t, received.FilterGroups[0].Filters, 1)
	f := received.FilterGroups[0].Filters[0]
	assert.Equal(t, "email", f.PropertyName)
	assert.Equal(t, "EQ", f.Operator)
	assert.Equal(t, "jane@x.com", f.Value)
}

func TestSearchContactNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	})

	_, err := c.SearchContact(context.Background(), "jane@x.com")
	assert.ErrorIs(t, err, ErrContactNotFound)
}

func TestSearchContactAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	_, err := c.SearchContact(context.Background(), "jane@x.com")
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestSearchContactMalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := c.SearchContact(context.Background(), "jane@x.com")
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestSearchContactUnconfigured(t *testing.T) {
	c := NewClient(Config{}, logging.Discard())

	_, err := c.SearchContact(context.Background(), "jane@x.com")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
