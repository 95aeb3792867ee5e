package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"chatdeck/internal/view"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	badgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	confirmStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	aiStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	systemStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	sidebarStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	mainStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	modalStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(1, 2)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

const sidebarWidth = 34

func (m *model) layout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	mainWidth := m.width - sidebarWidth - 6
	if mainWidth < 20 {
		mainWidth = 20
	}
	// header + input box + footer
	bodyHeight := m.height - 10
	if bodyHeight < 5 {
		bodyHeight = 5
	}
	m.sessionList.SetSize(sidebarWidth, bodyHeight)
	m.transcript.Width = mainWidth
	m.transcript.Height = bodyHeight
	m.input.SetWidth(mainWidth)
	m.help.Width = m.width
}

func (m model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	header := m.renderHeader()
	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		sidebarStyle.Render(m.sessionList.View()),
		mainStyle.Render(m.transcript.View()),
	)
	footer := m.renderFooter()

	content := strings.Join([]string{header, body, m.renderInput(), footer}, "\n")

	switch m.mode {
	case modeNewChat:
		return m.placeModal(m.renderNewChatModal())
	case modePersona:
		return m.placeModal(m.renderPersonaModal())
	case modeConfirmDelete:
		return m.placeModal(m.renderDeleteModal())
	}
	return content
}

func (m model) renderHeader() string {
	title := headerStyle.Render(view.ChatTitle(m.snap))
	badge := badgeStyle.Render(view.PersonaBadge(m.snap))
	line := title + dimStyle.Render("  ·  ") + badge
	if m.initializing {
		line += "  " + m.spin.View() + dimStyle.Render(" loading")
	} else if m.sending {
		line += "  " + m.spin.View() + dimStyle.Render(" waiting for reply")
	} else if m.switching {
		line += "  " + m.spin.View() + dimStyle.Render(" loading chat")
	}
	return line
}

func (m model) renderInput() string {
	count := dimStyle.Render(fmt.Sprintf("%d/%d", len([]rune(m.input.Value())), m.cfg.Settings.UI.MaxMessageLength))
	return m.input.View() + "\n" + count
}

func (m model) renderFooter() string {
	lines := []string{footerStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp()))}
	if m.showHelp {
		lines = append(lines, m.help.FullHelpView(m.keys.FullHelp()))
	}
	if m.toast != "" {
		style := okStyle
		if m.toastErr {
			style = errStyle
		}
		lines = append(lines, style.Render(m.toast))
	}
	return strings.Join(lines, "\n")
}

func (m model) renderTranscript() string {
	bubbles, welcome := view.Transcript(m.snap, time.Now())
	if welcome {
		return dimStyle.Render(strings.Join(view.WelcomeLines, "\n"))
	}
	width := m.transcript.Width
	if width <= 0 {
		width = 60
	}
	wrap := lipgloss.NewStyle().Width(width)
	parts := make([]string, 0, len(bubbles))
	for _, b := range bubbles {
		var label string
		switch b.Role {
		case "user":
			label = userStyle.Render("You")
		case "system":
			label = systemStyle.Render("System")
		default:
			label = aiStyle.Render("AI")
		}
		head := label
		if m.cfg.Settings.UI.ShowTimestamps && b.Timestamp != "" {
			head += dimStyle.Render("  " + b.Timestamp)
		}
		parts = append(parts, head+"\n"+wrap.Render(b.Content))
	}
	return strings.Join(parts, "\n\n")
}

func (m model) renderNewChatModal() string {
	title := headerStyle.Render("New Chat")
	personaLine := m.renderPersonaPicker(m.personaIndex)
	lines := []string{
		title,
		"",
		"Title: " + m.titleInput.View(),
		"",
		"Persona: " + personaLine,
		"",
		dimStyle.Render("enter create · left/right persona · esc cancel"),
	}
	if m.creating {
		lines = append(lines, m.spin.View()+dimStyle.Render(" creating"))
	}
	return modalStyle.Render(strings.Join(lines, "\n"))
}

func (m model) renderPersonaPicker(selected int) string {
	if len(m.snap.Personas) == 0 {
		return dimStyle.Render(view.FallbackPersonaLabel)
	}
	parts := make([]string, 0, len(m.snap.Personas))
	for i, p := range m.snap.Personas {
		name := p.Name
		if name == "" {
			name = string(p.ID)
		}
		if i == selected {
			parts = append(parts, badgeStyle.Render("["+name+"]"))
		} else {
			parts = append(parts, dimStyle.Render(name))
		}
	}
	return strings.Join(parts, "  ")
}

func (m model) renderPersonaModal() string {
	title := headerStyle.Render("Personas")
	if m.creatingPersona {
		lines := []string{
			title,
			"",
			"Name:   " + m.nameInput.View(),
		}
		if m.nameWarning != "" {
			lines = append(lines, warnStyle.Render(m.nameWarning))
		}
		lines = append(lines,
			"",
			"Prompt:",
			m.promptInput.View(),
			"",
			dimStyle.Render("enter save · tab switch field · ctrl+o optimize · esc back"),
		)
		if m.optimizing {
			lines = append(lines, m.spin.View()+dimStyle.Render(" optimizing"))
		}
		return modalStyle.Render(strings.Join(lines, "\n"))
	}

	lines := []string{title, ""}
	for i, p := range m.snap.Personas {
		marker := "  "
		name := p.Name
		if p.ID == m.snap.CurrentPersonaID {
			marker = "* "
		}
		row := marker + name
		if p.Description != "" {
			row += dimStyle.Render(" - " + view.Truncate(p.Description, 40))
		}
		if i == m.personaSel {
			row = badgeStyle.Render(row)
		}
		lines = append(lines, row)
	}
	if len(m.snap.Personas) == 0 {
		lines = append(lines, dimStyle.Render("no personas available"))
	}
	lines = append(lines, "", dimStyle.Render("enter apply · n new persona · esc close"))
	return modalStyle.Render(strings.Join(lines, "\n"))
}

func (m model) renderDeleteModal() string {
	lines := []string{
		confirmStyle.Render("Delete chat?"),
		"",
		view.Truncate(m.deleteTitle, 50),
		"",
		dimStyle.Render("y/enter delete · n/esc cancel"),
	}
	return modalStyle.Render(strings.Join(lines, "\n"))
}

func (m model) placeModal(modal string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}
