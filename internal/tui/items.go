package tui

import (
	"github.com/charmbracelet/bubbles/list"

	"chatdeck/internal/view"
)

type sessionItem struct {
	entry view.SidebarEntry
}

func (i sessionItem) Title() string {
	title := i.entry.Title
	if i.entry.Timestamp != "" {
		title += "  " + i.entry.Timestamp
	}
	return title
}

func (i sessionItem) Description() string {
	return i.entry.PersonaLabel + " · " + firstLine(i.entry.Preview)
}

func (i sessionItem) FilterValue() string {
	return i.entry.Title + " " + i.entry.PersonaLabel
}

func buildSessionItems(entries []view.SidebarEntry) []list.Item {
	items := make([]list.Item, 0, len(entries))
	for _, entry := range entries {
		items = append(items, sessionItem{entry: entry})
	}
	return items
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

func newSessionList() list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return l
}
