// Package tui is the rendering sink: a Bubble Tea program that projects
// store state onto the terminal and turns key presses into store commands.
// All conversation state lives in the store; the model here holds only
// transient UI flags (focus, modal visibility, input drafts).
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"chatdeck/internal/api"
	"chatdeck/internal/config"
	"chatdeck/internal/store"
	"chatdeck/internal/view"
)

const (
	modeChat = iota
	modeNewChat
	modePersona
	modeConfirmDelete
)

const (
	focusInput = iota
	focusSidebar
)

type model struct {
	cfg    config.Config
	logger *zap.Logger
	store  *store.Store

	width  int
	height int

	keys     keyMap
	help     help.Model
	showHelp bool

	sessionList list.Model
	transcript  viewport.Model
	input       textarea.Model
	spin        spinner.Model

	mode       int
	focusIndex int

	// In-flight flags. The matching control stays disabled while one is
	// set; with no client-side timeout a hung request holds it until the
	// request resolves.
	initializing bool
	sending      bool
	switching    bool
	deleting     bool
	creating     bool
	optimizing   bool

	// new-chat modal
	titleInput   textinput.Model
	personaIndex int

	// persona modal
	personaSel      int
	creatingPersona bool
	nameInput       textinput.Model
	promptInput     textarea.Model
	nameWarning     string

	// delete confirmation
	deleteTarget api.ID
	deleteTitle  string

	toast    string
	toastErr bool
	toastSeq int

	snap store.Snapshot
}

type initDoneMsg struct {
	res store.InitResult
	err error
}

type switchedMsg struct {
	id  api.ID
	err error
}

type sentMsg struct{ err error }

type chatCreatedMsg struct{ err error }

type deletedMsg struct {
	res store.DeleteResult
	err error
}

type clearedMsg struct{ err error }

type refreshedMsg struct{ err error }

type personaSetMsg struct{ err error }

type personaCreatedMsg struct {
	name string
	err  error
}

type optimizedMsg struct {
	opt store.OptimizedPersona
	err error
}

type exportedMsg struct {
	path string
	err  error
}

type toastClearMsg struct{ seq int }

// Run builds the model and blocks until the program exits.
func Run(cfg config.Config, st *store.Store, logger *zap.Logger) error {
	input := textarea.New()
	input.Placeholder = "message"
	input.Prompt = ""
	input.ShowLineNumbers = false
	input.CharLimit = cfg.Settings.UI.MaxMessageLength
	input.SetHeight(3)
	input.Focus()

	titleInput := textinput.New()
	titleInput.Placeholder = "chat title"
	titleInput.CharLimit = 120

	nameInput := textinput.New()
	nameInput.Placeholder = "persona name"
	nameInput.CharLimit = 60

	promptInput := textarea.New()
	promptInput.Placeholder = "system prompt"
	promptInput.Prompt = ""
	promptInput.ShowLineNumbers = false
	promptInput.SetHeight(4)

	spin := spinner.New()
	spin.Spinner = spinner.Line
	spin.Style = dimStyle

	m := model{
		cfg:          cfg,
		logger:       logger,
		store:        st,
		keys:         defaultKeyMap,
		help:         help.New(),
		sessionList:  newSessionList(),
		transcript:   viewport.New(0, 0),
		input:        input,
		spin:         spin,
		titleInput:   titleInput,
		nameInput:    nameInput,
		promptInput:  promptInput,
		initializing: true,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd {
	return tea.Batch(initCmd(m.store), m.spin.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.sync()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		switch m.mode {
		case modeNewChat:
			return m.updateNewChat(msg)
		case modePersona:
			return m.updatePersona(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		default:
			return m.updateChat(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case initDoneMsg:
		m.initializing = false
		m.sync()
		if msg.err != nil {
			return m.showError(msg.err)
		}
		if msg.res.NeedNewSession {
			return m.openNewChat(), nil
		}
		return m, nil

	case switchedMsg:
		m.switching = false
		m.sync()
		if msg.err != nil {
			return m.showError(msg.err)
		}
		return m, nil

	case sentMsg:
		m.sending = false
		m.sync()
		if msg.err != nil {
			return m.showError(msg.err)
		}
		return m, nil

	case chatCreatedMsg:
		m.creating = false
		if msg.err != nil {
			m.sync()
			return m.showError(msg.err)
		}
		m.mode = modeChat
		m.titleInput.SetValue("")
		m.focusInput()
		m.sync()
		return m.showSuccess("chat created")

	case deletedMsg:
		m.deleting = false
		m.sync()
		if msg.err != nil {
			return m.showError(msg.err)
		}
		m.toast = "session deleted"
		m.toastErr = false
		m.toastSeq++
		cmd := expireToastCmd(m.toastSeq, 3*time.Second)
		if msg.res.NeedNewSession {
			return m.openNewChat(), cmd
		}
		return m, cmd

	case clearedMsg:
		m.sync()
		if msg.err != nil {
			return m.showError(msg.err)
		}
		return m.showSuccess("chat cleared")

	case refreshedMsg:
		m.sync()
		if msg.err != nil {
			return m.showError(msg.err)
		}
		return m, nil

	case personaSetMsg:
		m.sync()
		if msg.err != nil {
			return m.showError(msg.err)
		}
		m.mode = modeChat
		m.focusInput()
		return m.showSuccess("persona updated")

	case personaCreatedMsg:
		m.creating = false
		m.sync()
		if msg.err != nil {
			return m.showError(msg.err)
		}
		m.creatingPersona = false
		m.nameInput.SetValue("")
		m.promptInput.SetValue("")
		m.nameWarning = ""
		return m.showSuccess(fmt.Sprintf("persona %q created", msg.name))

	case optimizedMsg:
		m.optimizing = false
		if msg.err != nil {
			return m.showError(msg.err)
		}
		m.promptInput.SetValue(msg.opt.SystemPrompt)
		return m.showSuccess("prompt optimized")

	case exportedMsg:
		if msg.err != nil {
			return m.showError(msg.err)
		}
		return m.showSuccess("exported to " + msg.path)

	case toastClearMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil
	}

	return m, nil
}

func (m model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		if m.focusIndex == focusInput {
			m.focusIndex = focusSidebar
			m.input.Blur()
		} else {
			m.focusInput()
		}
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		return m.openNewChat(), nil

	case key.Matches(msg, m.keys.Personas):
		m.mode = modePersona
		m.creatingPersona = false
		m.personaSel = indexOfPersona(m.snap.Personas, m.snap.CurrentPersonaID)
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		entry, ok := m.selectedSession()
		if !ok || m.deleting {
			return m, nil
		}
		m.mode = modeConfirmDelete
		m.deleteTarget = entry.ID
		m.deleteTitle = entry.Title
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		return m, clearCmd(m.store)

	case key.Matches(msg, m.keys.Export):
		return m, exportCmd(m.store, m.cfg.DataDir)

	case key.Matches(msg, m.keys.Refresh):
		return m, refreshCmd(m.store)

	case key.Matches(msg, m.keys.Send):
		if m.focusIndex == focusSidebar {
			entry, ok := m.selectedSession()
			if !ok || m.switching {
				return m, nil
			}
			m.switching = true
			return m, switchCmd(m.store, entry.ID)
		}
		if m.sending {
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.snap.CurrentSessionID == "" {
			return m, nil
		}
		m.input.SetValue("")
		m.sending = true
		return m, sendCmd(m.store, text)
	}

	var cmd tea.Cmd
	if m.focusIndex == focusSidebar {
		m.sessionList, cmd = m.sessionList.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m model) updateNewChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		// Creation can only be dismissed once a session exists to fall
		// back to.
		if len(m.snap.Sessions) > 0 {
			m.mode = modeChat
			m.focusInput()
		}
		return m, nil
	case "left", "ctrl+k":
		if m.personaIndex > 0 {
			m.personaIndex--
		}
		return m, nil
	case "right", "ctrl+j":
		if m.personaIndex < len(m.snap.Personas)-1 {
			m.personaIndex++
		}
		return m, nil
	case "enter":
		if m.creating {
			return m, nil
		}
		title := strings.TrimSpace(m.titleInput.Value())
		var personaID api.ID
		if m.personaIndex >= 0 && m.personaIndex < len(m.snap.Personas) {
			personaID = m.snap.Personas[m.personaIndex].ID
		}
		m.creating = true
		return m, createChatCmd(m.store, title, personaID)
	}

	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

func (m model) updatePersona(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.creatingPersona {
		return m.updatePersonaCreate(msg)
	}

	switch msg.String() {
	case "esc":
		m.mode = modeChat
		m.focusInput()
		return m, nil
	case "up", "left", "ctrl+k":
		if m.personaSel > 0 {
			m.personaSel--
		}
		return m, nil
	case "down", "right", "ctrl+j":
		if m.personaSel < len(m.snap.Personas)-1 {
			m.personaSel++
		}
		return m, nil
	case "n":
		m.creatingPersona = true
		m.nameInput.Focus()
		m.promptInput.Blur()
		return m, nil
	case "enter":
		if m.personaSel < 0 || m.personaSel >= len(m.snap.Personas) {
			return m, nil
		}
		return m, setPersonaCmd(m.store, m.snap.Personas[m.personaSel].ID)
	}
	return m, nil
}

func (m model) updatePersonaCreate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.creatingPersona = false
		m.nameWarning = ""
		return m, nil
	case "tab":
		if m.nameInput.Focused() {
			m.nameInput.Blur()
			m.promptInput.Focus()
		} else {
			m.promptInput.Blur()
			m.nameInput.Focus()
		}
		return m, nil
	case "ctrl+o":
		if m.optimizing {
			return m, nil
		}
		name := strings.TrimSpace(m.nameInput.Value())
		if name == "" {
			return m.showError(&api.ValidationError{Msg: "enter a persona name first"})
		}
		m.optimizing = true
		return m, optimizeCmd(m.store, name)
	case "enter":
		if m.nameInput.Focused() {
			m.nameInput.Blur()
			m.promptInput.Focus()
			return m, nil
		}
		if m.creating {
			return m, nil
		}
		m.creating = true
		return m, createPersonaCmd(m.store, m.nameInput.Value(), m.promptInput.Value())
	}

	var cmd tea.Cmd
	if m.nameInput.Focused() {
		m.nameInput, cmd = m.nameInput.Update(msg)
		if m.store.PersonaNameTaken(strings.TrimSpace(m.nameInput.Value())) {
			m.nameWarning = fmt.Sprintf("persona name %q already exists", strings.TrimSpace(m.nameInput.Value()))
		} else {
			m.nameWarning = ""
		}
	} else {
		m.promptInput, cmd = m.promptInput.Update(msg)
	}
	return m, cmd
}

func (m model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "n":
		m.mode = modeChat
		m.deleteTarget = ""
		m.deleteTitle = ""
		m.focusInput()
		return m, nil
	case "enter", "y":
		if m.deleting || m.deleteTarget == "" {
			return m, nil
		}
		m.deleting = true
		m.mode = modeChat
		target := m.deleteTarget
		m.deleteTarget = ""
		return m, deleteCmd(m.store, target)
	}
	return m, nil
}

func (m *model) focusInput() {
	m.focusIndex = focusInput
	m.input.Focus()
}

func (m model) openNewChat() model {
	m.mode = modeNewChat
	m.titleInput.SetValue("")
	m.titleInput.Focus()
	m.input.Blur()
	m.personaIndex = indexOfPersona(m.snap.Personas, m.store.DefaultPersonaID())
	return m
}

func (m model) selectedSession() (view.SidebarEntry, bool) {
	item, ok := m.sessionList.SelectedItem().(sessionItem)
	if !ok {
		return view.SidebarEntry{}, false
	}
	return item.entry, true
}

func (m *model) sync() {
	m.snap = m.store.Snapshot()
	entries := view.SidebarEntries(m.snap, time.Now())
	m.sessionList.SetItems(buildSessionItems(entries))
	for i, entry := range entries {
		if entry.Active {
			m.sessionList.Select(i)
			break
		}
	}
	m.transcript.SetContent(m.renderTranscript())
	m.transcript.GotoBottom()
}

func (m model) showError(err error) (tea.Model, tea.Cmd) {
	m.logger.Warn("operation failed", zap.Error(err))
	m.toast = err.Error()
	m.toastErr = true
	m.toastSeq++
	return m, expireToastCmd(m.toastSeq, 5*time.Second)
}

func (m model) showSuccess(text string) (tea.Model, tea.Cmd) {
	m.toast = text
	m.toastErr = false
	m.toastSeq++
	return m, expireToastCmd(m.toastSeq, 3*time.Second)
}

func indexOfPersona(personas []api.Persona, id api.ID) int {
	for i, p := range personas {
		if p.ID == id {
			return i
		}
	}
	if len(personas) > 0 {
		return 0
	}
	return -1
}

func initCmd(s *store.Store) tea.Cmd {
	return func() tea.Msg {
		res, err := s.Init(context.Background())
		return initDoneMsg{res: res, err: err}
	}
}

func switchCmd(s *store.Store, id api.ID) tea.Cmd {
	return func() tea.Msg {
		return switchedMsg{id: id, err: s.SwitchTo(context.Background(), id)}
	}
}

func sendCmd(s *store.Store, text string) tea.Cmd {
	return func() tea.Msg {
		return sentMsg{err: s.Send(context.Background(), text)}
	}
}

func createChatCmd(s *store.Store, title string, personaID api.ID) tea.Cmd {
	return func() tea.Msg {
		return chatCreatedMsg{err: s.CreateSession(context.Background(), title, personaID)}
	}
}

func deleteCmd(s *store.Store, id api.ID) tea.Cmd {
	return func() tea.Msg {
		res, err := s.Delete(context.Background(), id)
		return deletedMsg{res: res, err: err}
	}
}

func clearCmd(s *store.Store) tea.Cmd {
	return func() tea.Msg {
		return clearedMsg{err: s.ClearCurrent(context.Background())}
	}
}

func refreshCmd(s *store.Store) tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: s.RefreshSessions(context.Background())}
	}
}

func setPersonaCmd(s *store.Store, id api.ID) tea.Cmd {
	return func() tea.Msg {
		return personaSetMsg{err: s.SetPersona(context.Background(), id)}
	}
}

func createPersonaCmd(s *store.Store, name, prompt string) tea.Cmd {
	return func() tea.Msg {
		created, err := s.CreatePersona(context.Background(), name, "", prompt)
		return personaCreatedMsg{name: created.Name, err: err}
	}
}

func optimizeCmd(s *store.Store, name string) tea.Cmd {
	return func() tea.Msg {
		opt, err := s.OptimizePersona(context.Background(), name)
		return optimizedMsg{opt: opt, err: err}
	}
}

func exportCmd(s *store.Store, dir string) tea.Cmd {
	return func() tea.Msg {
		path, err := s.ExportFile(dir)
		return exportedMsg{path: path, err: err}
	}
}

func expireToastCmd(seq int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return toastClearMsg{seq: seq}
	})
}
