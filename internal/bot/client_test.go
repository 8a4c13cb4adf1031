package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("TOKEN", srv.URL)
	require.NoError(t, c.SendMessage(context.Background(), -100123, "power is down"))

	assert.Equal(t, "/botTOKEN/sendMessage", gotPath)
	assert.Equal(t, float64(-100123), gotBody["chat_id"])
	assert.Equal(t, "power is down", gotBody["text"])
	assert.NotContains(t, gotBody, "reply_to_message_id")
}

func TestClientSendReply(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("TOKEN", srv.URL)
	require.NoError(t, c.SendReply(context.Background(), 42, 99, "Power is UP"))
	assert.Equal(t, float64(99), gotBody["reply_to_message_id"])
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"ok":false,"description":"Too Many Requests: retry after 5"}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("TOKEN", srv.URL)
	err := c.SendMessage(context.Background(), 1, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Too Many Requests")
}

func TestClientGetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(100), req["offset"])
		assert.Equal(t, float64(25), req["timeout"])

		w.Write([]byte(`{"ok":true,"result":[
			{"update_id":100,"message":{"message_id":1,"from":{"id":555},"chat":{"id":-42},"date":1767268800,"text":"/status"}},
			{"update_id":101,"message":{"message_id":2,"chat":{"id":-42},"date":1767268801,"text":"no sender"}},
			{"update_id":102,"message":{"message_id":3,"from":{"id":556},"chat":{"id":-42},"date":1767268802,"text":""}},
			{"update_id":103,"message":{"message_id":4,"from":{"id":555},"chat":{"id":-42},"date":1767268803,"text":"hello"}}
		]}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("TOKEN", srv.URL)
	msgs, next, err := c.GetUpdates(context.Background(), 100, 25*time.Second)
	require.NoError(t, err)

	// Cursor advances past every update, including the skipped ones.
	assert.Equal(t, int64(104), next)

	require.Len(t, msgs, 2)
	assert.Equal(t, int64(100), msgs[0].UpdateID)
	assert.Equal(t, int64(555), msgs[0].SenderID)
	assert.Equal(t, int64(-42), msgs[0].ChatID)
	assert.Equal(t, "/status", msgs[0].Text)
	assert.Equal(t, time.Unix(1767268800, 0).UTC(), msgs[0].Date)
	assert.Equal(t, "hello", msgs[1].Text)
}

func TestClientGetUpdatesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"result":[]}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("TOKEN", srv.URL)
	msgs, next, err := c.GetUpdates(context.Background(), 7, time.Second)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, int64(7), next, "cursor unchanged with no updates")
}
