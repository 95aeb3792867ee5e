// Package view derives renderable values from store state. Everything here
// is a pure function of its inputs: no store access, no terminal access,
// and no state of its own. Formatting policy (timestamp humanization,
// preview truncation, fallback labels) lives here and nowhere else.
package view

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"

	"chatdeck/internal/api"
	"chatdeck/internal/store"
)

const (
	// FallbackPersonaLabel renders when neither the session nor the
	// catalogue yields a persona name.
	FallbackPersonaLabel = "General Assistant"
	// FallbackTitle renders for sessions without a usable title.
	FallbackTitle = "New Chat"
	// EmptyPreview renders for sessions with no fetched messages.
	EmptyPreview = "No messages yet"

	previewLimit = 30
)

// WelcomeLines is the placeholder shown for an empty transcript.
var WelcomeLines = []string{
	"Hello! I'm your AI assistant.",
	"I can answer questions, write code, and help with creative work.",
	"Pick a persona and start the conversation.",
}

// SidebarEntry is one row of the session sidebar.
type SidebarEntry struct {
	ID           api.ID
	Title        string
	PersonaLabel string
	Timestamp    string
	Preview      string
	Active       bool
}

// Bubble is one rendered transcript message.
type Bubble struct {
	Role      string
	Content   string
	Timestamp string
}

// SidebarEntries derives the sidebar rows from a snapshot, newest data
// as the store holds it (server order is preserved).
func SidebarEntries(snap store.Snapshot, now time.Time) []SidebarEntry {
	entries := make([]SidebarEntry, 0, len(snap.Sessions))
	for _, sess := range snap.Sessions {
		entries = append(entries, SidebarEntry{
			ID:           sess.ID,
			Title:        titleOf(sess),
			PersonaLabel: personaLabel(sess, snap.Personas),
			Timestamp:    sessionTime(sess, now),
			Preview:      PreviewLine(snap.Previews[sess.ID]),
			Active:       sess.ID == snap.CurrentSessionID,
		})
	}
	return entries
}

// Transcript derives the message bubbles; welcome reports whether the
// welcome placeholder should render instead.
func Transcript(snap store.Snapshot, now time.Time) (bubbles []Bubble, welcome bool) {
	if len(snap.Messages) == 0 {
		return nil, true
	}
	bubbles = make([]Bubble, 0, len(snap.Messages))
	for _, msg := range snap.Messages {
		bubbles = append(bubbles, Bubble{
			Role:      msg.Role,
			Content:   Sanitize(msg.Content),
			Timestamp: messageTime(msg, now),
		})
	}
	return bubbles, false
}

// PersonaBadge resolves the header badge label for the current persona.
func PersonaBadge(snap store.Snapshot) string {
	for _, p := range snap.Personas {
		if p.ID == snap.CurrentPersonaID && p.Name != "" {
			return p.Name
		}
	}
	return FallbackPersonaLabel
}

// ChatTitle resolves the header title for the current session.
func ChatTitle(snap store.Snapshot) string {
	for _, sess := range snap.Sessions {
		if sess.ID == snap.CurrentSessionID {
			return titleOf(sess)
		}
	}
	return FallbackTitle
}

// PreviewLine condenses the last fetched messages of a session into the
// sidebar preview: role-labelled, truncated lines.
func PreviewLine(msgs []api.Message) string {
	if len(msgs) == 0 {
		return EmptyPreview
	}
	if len(msgs) > 2 {
		msgs = msgs[len(msgs)-2:]
	}
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		label := "AI"
		if msg.Role == api.RoleUser {
			label = "You"
		}
		lines = append(lines, label+": "+Truncate(Sanitize(msg.Content), previewLimit))
	}
	return strings.Join(lines, "\n")
}

// FormatTime humanizes a timestamp: HH:mm for today, MM-DD otherwise,
// empty for the zero time.
func FormatTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return t.Format("15:04")
	}
	return t.Format("01-02")
}

// Truncate cuts s to limit runes, appending an ellipsis when it was longer.
func Truncate(s string, limit int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

// Sanitize strips ANSI escape sequences and carriage returns from remote
// text so it cannot corrupt the terminal.
func Sanitize(s string) string {
	return strings.ReplaceAll(ansi.Strip(s), "\r", "")
}

func titleOf(sess api.Session) string {
	if strings.TrimSpace(sess.Title) == "" {
		return FallbackTitle
	}
	return strings.TrimSpace(sess.Title)
}

// personaLabel resolves the persona tag for a sidebar row: the session's
// own name, then a catalogue lookup by id, then the fixed fallback.
func personaLabel(sess api.Session, personas []api.Persona) string {
	if sess.PersonaName != "" {
		return sess.PersonaName
	}
	if sess.PersonaID != "" {
		for _, p := range personas {
			if p.ID == sess.PersonaID && p.Name != "" {
				return p.Name
			}
		}
	}
	return FallbackPersonaLabel
}

func sessionTime(sess api.Session, now time.Time) string {
	ts := sess.UpdatedAt
	if ts.IsZero() {
		ts = sess.CreatedAt
	}
	return FormatTime(ts.Time, now)
}

func messageTime(msg api.Message, now time.Time) string {
	return FormatTime(msg.Timestamp.Time, now)
}
