package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chatdeck/internal/api"
	"chatdeck/internal/view"
)

func TestSessionItemRendering(t *testing.T) {
	item := sessionItem{entry: view.SidebarEntry{
		ID:           "s1",
		Title:        "Trip planning",
		PersonaLabel: "Poet",
		Timestamp:    "14:30",
		Preview:      "see you there\nsecond line",
	}}

	assert.Equal(t, "Trip planning  14:30", item.Title())
	assert.Equal(t, "Poet · see you there", item.Description())
	assert.Equal(t, "Trip planning Poet", item.FilterValue())
}

func TestSessionItemWithoutTimestamp(t *testing.T) {
	item := sessionItem{entry: view.SidebarEntry{Title: "New Chat"}}
	assert.Equal(t, "New Chat", item.Title())
}

func TestBuildSessionItems(t *testing.T) {
	entries := []view.SidebarEntry{{ID: "a"}, {ID: "b"}}
	items := buildSessionItems(entries)
	assert.Len(t, items, 2)
	assert.Equal(t, api.ID("a"), items[0].(sessionItem).entry.ID)
}
