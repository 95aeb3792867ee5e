package api

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

func TestListSessions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/sessions", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"session_id":"s1","title":"First","persona_id":1,"persona_name":"Assistant","updated_at":"2026-09-01T10:00:00"},
			{"session_id":"s2","title":"Second","persona_id":"p2"}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	sessions, err := client.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, ID("s1"), sessions[0].ID)
	assert.Equal(t, ID("1"), sessions[0].PersonaID, "numeric persona ids decode to strings")
	assert.Equal(t, "Assistant", sessions[0].PersonaName)
	assert.False(t, sessions[0].UpdatedAt.IsZero())
	assert.Equal(t, ID("p2"), sessions[1].PersonaID)
	assert.True(t, sessions[1].UpdatedAt.IsZero())
}

func TestCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/session", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "My chat", body["title"])
		assert.Equal(t, "p1", body["persona_id"])

		_, _ = w.Write([]byte(`{"session_id":"s-new"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	id, err := client.CreateSession(context.Background(), "My chat", "p1")
	require.NoError(t, err)
	assert.Equal(t, ID("s-new"), id)
}

func TestCreateSessionValidation(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.CreateSession(context.Background(), "", "p1")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = client.CreateSession(context.Background(), "title", "")
	require.ErrorAs(t, err, &verr)

	assert.Zero(t, requests, "validation failures must not reach the server")
}

func TestSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, ID("s1"), body.SessionID)
		assert.Equal(t, "hi", body.Message)
		assert.Equal(t, "local", body.Settings.AIProvider)
		_, _ = w.Write([]byte(`{"response":"hello there"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	settings := ChatSettings{AIProvider: "local", ModelName: "qwen2.5:7b", Temperature: 0.7}
	reply, err := client.SendMessage(context.Background(), "s1", "p1", "hi", settings)
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)
}

func TestSetSessionPersona(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/session/s1/persona", r.URL.Path)
		_, _ = w.Write([]byte(`{"persona":{"id":"p2","name":"Poet"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	persona, err := client.SetSessionPersona(context.Background(), "s1", "p2")
	require.NoError(t, err)
	require.NotNil(t, persona)
	assert.Equal(t, "Poet", persona.Name)
}

func TestDeleteSessionHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"session not found"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	err := client.DeleteSession(context.Background(), "missing")

	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusNotFound, herr.Status)
	assert.Equal(t, "session not found", herr.Detail)
}

func TestCreatePersonaConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":"persona name already exists"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.CreatePersona(context.Background(), "Poet", "desc", "prompt")

	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusConflict, herr.Status)
	assert.Contains(t, herr.Error(), "persona name already exists")
}

func TestDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages": not valid json`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.FetchHistory(context.Background(), "s1")

	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	client := NewClient(srv.URL, WithTimeout(time.Second))
	_, err := client.ListSessions(context.Background())

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
}

func TestOptimizePersona(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/personas/optimize", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"optimized_content":"{\"description\":\"d\",\"system_prompt\":\"p\"}"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	content, err := client.OptimizePersona(context.Background(), "Poet")
	require.NoError(t, err)
	assert.Contains(t, content, "system_prompt")
}

func TestOptimizePersonaNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.OptimizePersona(context.Background(), "Poet")

	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
}

func TestTimestampDecoding(t *testing.T) {
	cases := []struct {
		name string
		in   string
		zero bool
	}{
		{"rfc3339", `"2026-09-01T10:00:00Z"`, false},
		{"python isoformat", `"2026-09-01T10:00:00.123456"`, false},
		{"epoch seconds", `1756720800`, false},
		{"epoch millis", `1756720800000`, false},
		{"null", `null`, true},
		{"garbage", `"not a time"`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tc.in), &ts))
			assert.Equal(t, tc.zero, ts.IsZero())
		})
	}
}
