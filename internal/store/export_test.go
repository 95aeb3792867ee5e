package store

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatdeck/internal/api"
)

func TestExportTranscript(t *testing.T) {
	gw := newFakeGateway()
	gw.personas = []api.Persona{{ID: "p1", Name: "Assistant"}}
	s := New(gw, api.ChatSettings{}, nil)
	require.NoError(t, s.RefreshPersonas(context.Background()))
	require.NoError(t, s.CreateSession(context.Background(), "chat", "p1"))
	require.NoError(t, s.Send(context.Background(), "hi"))

	var b strings.Builder
	require.NoError(t, s.Export(&b))
	out := b.String()

	assert.Contains(t, out, "Chat export")
	assert.Contains(t, out, "Persona: Assistant")
	assert.Contains(t, out, "You: hi")
	assert.Contains(t, out, "AI: <reply>")
}

func TestExportSkipsSystemMessages(t *testing.T) {
	gw := newFakeGateway()
	s := New(gw, api.ChatSettings{}, nil)
	require.NoError(t, s.CreateSession(context.Background(), "chat", "p1"))
	gw.sendErr = &api.TransportError{Op: "send message", Err: os.ErrDeadlineExceeded}
	_ = s.Send(context.Background(), "hi")

	var b strings.Builder
	require.NoError(t, s.Export(&b))

	assert.Contains(t, b.String(), "You: hi")
	assert.NotContains(t, b.String(), "failed to send")
	assert.Contains(t, b.String(), "Persona: unknown")
}

func TestExportEmptyTranscript(t *testing.T) {
	gw := newFakeGateway()
	s := New(gw, api.ChatSettings{}, nil)

	var b strings.Builder
	var verr *api.ValidationError
	require.ErrorAs(t, s.Export(&b), &verr)
}

func TestExportFile(t *testing.T) {
	gw := newFakeGateway()
	s := New(gw, api.ChatSettings{}, nil)
	require.NoError(t, s.CreateSession(context.Background(), "chat", "p1"))
	require.NoError(t, s.Send(context.Background(), "hi"))

	dir := t.TempDir()
	path, err := s.ExportFile(dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "You: hi")
}
