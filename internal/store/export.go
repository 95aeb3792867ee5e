package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chatdeck/internal/api"
	"chatdeck/internal/utils"
)

// Export writes the current transcript as plain text: a small header, then
// one block per message. System messages are client-side notices and are
// skipped. Purely local; the server is not involved.
func (s *Store) Export(w io.Writer) error {
	s.mu.RLock()
	messages := append([]api.Message(nil), s.messages...)
	personaName := s.personaNameLocked(s.currentPersonaID)
	s.mu.RUnlock()

	if len(messages) == 0 {
		return &api.ValidationError{Msg: "nothing to export"}
	}
	if personaName == "" {
		personaName = "unknown"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Chat export\nTime: %s\nPersona: %s\n", time.Now().Format("2006-01-02 15:04:05"), personaName)
	for _, msg := range messages {
		if msg.Role == api.RoleSystem {
			continue
		}
		label := "AI"
		if msg.Role == api.RoleUser {
			label = "You"
		}
		fmt.Fprintf(&b, "\n%s: %s\n", label, msg.Content)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// ExportFile writes the transcript into dir and returns the file path.
func (s *Store) ExportFile(dir string) (string, error) {
	var b strings.Builder
	if err := s.Export(&b); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("chat_export_%d.txt", time.Now().Unix()))
	if err := utils.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
