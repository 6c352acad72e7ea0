package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/fieldsense/fieldsense/internal/inference"
	"github.com/fieldsense/fieldsense/internal/pipeline"
	"github.com/fieldsense/fieldsense/internal/ratelimit"
	"github.com/fieldsense/fieldsense/internal/session"
	"github.com/fieldsense/fieldsense/internal/suggest"
)

type memStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemStore() *memStore { return &memStore{m: make(map[string][]byte)} }

func (s *memStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *memStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *memStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

type cannedCompleter struct{ response string }

func (c *cannedCompleter) Complete(ctx context.Context, req inference.Request) (string, error) {
	return c.response, nil
}

func newTestServer(t *testing.T, client pipeline.Completer) *Server {
	t.Helper()
	tracker := session.NewTracker(newMemStore())
	limiter := ratelimit.New(10, time.Minute)
	p := pipeline.New(tracker, limiter, client, pipeline.Options{Model: "m"}, nil)
	return New(p, "127.0.0.1:0", nil)
}

func TestHandleSuggest(t *testing.T) {
	srv := newTestServer(t, &cannedCompleter{
		response: `{"reason":"ok","suggestions":[{"text":"a useful completion","derivation":"session"}]}`,
	})
	body, _ := json.Marshal(map[string]any{
		"descriptor": map[string]string{"name": "q"},
		"value":      "some query",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/suggest", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res suggest.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Suggestions, 1)
	require.Equal(t, "Session: session", res.Suggestions[0].Derivation)
}

func TestHandleSuggestUnconfigured(t *testing.T) {
	srv := newTestServer(t, nil)
	body := []byte(`{"descriptor":{"name":"q"},"value":"x"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/suggest", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestHandleQuota(t *testing.T) {
	srv := newTestServer(t, &cannedCompleter{response: `{}`})
	req := httptest.NewRequest(http.MethodGet, "/v1/quota", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var q struct {
		Remaining  int   `json:"remaining"`
		NextSlotMs int64 `json:"nextSlotMs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	require.Equal(t, 10, q.Remaining)
}

func TestHandleSessionClear(t *testing.T) {
	srv := newTestServer(t, &cannedCompleter{response: `{}`})
	req := httptest.NewRequest(http.MethodPost, "/v1/session/clear", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStreamDeliversSuggestions(t *testing.T) {
	srv := newTestServer(t, &cannedCompleter{
		response: `{"reason":"ok","suggestions":[{"text":"stream completion"}]}`,
	})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	ev := streamEvent{Type: "update", FieldID: "f1"}
	ev.Request.Descriptor.Name = "q"
	ev.Request.Value = "hello world"
	require.NoError(t, conn.WriteJSON(ev))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var res streamResult
	require.NoError(t, conn.ReadJSON(&res))
	require.Equal(t, "suggestions", res.Type)
	require.Equal(t, "f1", res.FieldID)
	require.Len(t, res.Result.Suggestions, 1)
	require.Equal(t, "stream completion", res.Result.Suggestions[0].Text)
}
