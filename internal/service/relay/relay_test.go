package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosentus/cose-chat/backend/internal/logging"
	"github.com/cosentus/cose-chat/backend/internal/model/chat"
)

func TestNormalizeReply(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"Hi there!"}`, "Hi there!"},
		{"output field", `{"output":"Hi there!"}`, "Hi there!"},
		{"response field", `{"response":"Hi there!"}`, "Hi there!"},
		{"text field", `{"text":"Hi there!"}`, "Hi there!"},
		{"message wins over output", `{"output":"no","message":"yes"}`, "yes"},
		{"array of objects", `[{"output":"Hi there!"}]`, "Hi there!"},
		{"array of strings", `["Hi there!"]`, "Hi there!"},
		{"unrecognized object used verbatim", `{"foo":"bar"}`, `{"foo":"bar"}`},
		{"raw text", "plain reply", "plain reply"},
		{"raw text trimmed", "  padded reply \n", "padded reply"},
		{"empty body falls back", "", emptyReplyFallback},
		{"whitespace body falls back", "   \n", emptyReplyFallback},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeReply([]byte(tc.body)))
		})
	}
}

func TestSendMessagePostsEventAndNormalizes(t *testing.T) {
	var received chat.MessageEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"output":"Hi there!"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{ChatURL: srv.URL, Source: "test-widget"}, logging.Discard())

	reply, err := c.SendMessage(context.Background(), "  Hello ", "session_1_abc")
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", reply)

	assert.Equal(t, "Hello", received.Message)
	assert.Equal(t, "session_1_abc", received.SessionID)
	assert.Equal(t, "test-widget", received.Source)
	assert.NotEmpty(t, received.Timestamp)
}

func TestSendMessageNon2xxIsServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{ChatURL: srv.URL}, logging.Discard())

	_, err := c.SendMessage(context.Background(), "Hello", "s")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestSendMessageUnreachableIsServiceUnavailable(t *testing.T) {
	c := NewClient(Config{ChatURL: "http://127.0.0.1:1"}, logging.Discard())

	_, err := c.SendMessage(context.Background(), "Hello", "s")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestSendMessageWithoutURL(t *testing.T) {
	c := NewClient(Config{}, logging.Discard())

	_, err := c.SendMessage(context.Background(), "Hello", "s")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSendMessageEmptyBodyUsesFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{ChatURL: srv.URL}, logging.Discard())

	reply, err := c.SendMessage(context.Background(), "Hello", "s")
	require.NoError(t, err)
	assert.Equal(t, emptyReplyFallback, reply)
}

func TestSendSessionEndStampsEnvelope(t *testing.T) {
	var received chat.EndEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))
	defer srv.Close()

	c := NewClient(Config{SessionEndURL: srv.URL, Source: "test-widget"}, logging.Discard())

	c.SendSessionEnd(context.Background(), chat.EndEvent{
		SessionID: "session_1_abc",
		Reason:    chat.ReasonManual,
	})

	assert.Equal(t, "session_end", received.EventType)
	assert.Equal(t, "test-widget", received.Source)
	assert.NotEmpty(t, received.Timestamp)
}

func TestLifecycleEventsSwallowFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{SessionStartURL: srv.URL, SessionEndURL: srv.URL}, logging.Discard())

	// Neither call returns an error surface; they only log.
	c.SendSessionStart(context.Background(), chat.StartEvent{SessionID: "s"})
	c.SendSessionEnd(context.Background(), chat.EndEvent{SessionID: "s"})

	unconfigured := NewClient(Config{}, logging.Discard())
	unconfigured.SendSessionStart(context.Background(), chat.StartEvent{SessionID: "s"})
	unconfigured.SendSessionEnd(context.Background(), chat.EndEvent{SessionID: "s"})
}
