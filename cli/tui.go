package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fahmaliyi/nspm/vault"
)

type viewState int

const (
	stateTable viewState = iota
	stateShow
	stateAdd
	stateConfirmQuit
)

// TUIConfig mirrors Config for the full-screen interface.
type TUIConfig struct {
	Clipboard      func(text string) error
	ClipboardClear time.Duration

	// RevealFor is how long a revealed password stays visible. Defaults to 5s.
	RevealFor time.Duration
}

type model struct {
	store      *vault.Store
	services   []string
	cursor     int
	state      viewState
	textInputs []textinput.Model
	selected   string
	revealed   bool
	revealGen  int
	clip       func(string) error
	clearAfter time.Duration
	revealFor  time.Duration
	dirty      bool
	msg        string
}

type hideSecretMsg struct{ gen int }

type clearClipboardMsg struct{}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	msgStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("0"))
)

// RunTUI starts the interactive TUI
func RunTUI(st *vault.Store, c TUIConfig) error {
	_, err := tea.NewProgram(newModel(st, c)).Run()
	return err
}

func newModel(st *vault.Store, c TUIConfig) model {
	m := model{
		store:      st,
		services:   st.Services(),
		state:      stateTable,
		clip:       clipboard.WriteAll,
		clearAfter: c.ClipboardClear,
		revealFor:  5 * time.Second,
	}
	if c.Clipboard != nil {
		m.clip = c.Clipboard
	}
	if c.RevealFor > 0 {
		m.revealFor = c.RevealFor
	}

	service := textinput.New()
	service.Placeholder = "Service"
	password := textinput.New()
	password.Placeholder = "Password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'
	m.textInputs = []textinput.Model{service, password}
	return m
}

// --- Tea Model interface ---
func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case hideSecretMsg:
		if msg.gen == m.revealGen {
			m.revealed = false
		}
		return m, nil
	case clearClipboardMsg:
		if err := m.clip(""); err != nil {
			m.msg = "Could not clear clipboard: " + err.Error()
		}
		return m, nil
	}

	switch m.state {
	case stateTable:
		return updateTable(m, msg)
	case stateShow:
		return updateShow(m, msg)
	case stateAdd:
		return updateAdd(m, msg)
	case stateConfirmQuit:
		return updateConfirmQuit(m, msg)
	default:
		return m, nil
	}
}

func (m model) View() string {
	switch m.state {
	case stateTable:
		return viewTable(m)
	case stateShow:
		return viewShow(m)
	case stateAdd:
		return viewAdd(m)
	case stateConfirmQuit:
		return viewConfirmQuit(m)
	default:
		return "Unknown state"
	}
}

func (m *model) refresh() {
	m.services = m.store.Services()
	if m.cursor >= len(m.services) && m.cursor > 0 {
		m.cursor = len(m.services) - 1
	}
}

func (m *model) fail(err error) {
	m.msg = errStyle.Render(err.Error())
}

func (m *model) copy(service string) tea.Cmd {
	pw, err := m.store.Get(service)
	if err != nil {
		m.fail(err)
		return nil
	}
	if err := m.clip(pw); err != nil {
		m.fail(err)
		return nil
	}
	if m.clearAfter <= 0 {
		m.msg = "Password copied!"
		return nil
	}
	m.msg = fmt.Sprintf("Password copied! (clears in %s)", m.clearAfter)
	return tea.Tick(m.clearAfter, func(time.Time) tea.Msg { return clearClipboardMsg{} })
}

func (m *model) save() bool {
	if err := m.store.Save(); err != nil {
		m.fail(err)
		return false
	}
	m.dirty = false
	m.msg = "Saved"
	return true
}

// --- Table ---
func updateTable(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		if m.dirty {
			m.state = stateConfirmQuit
			return m, nil
		}
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(m.services)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if len(m.services) > 0 {
			m.selected = m.services[m.cursor]
			m.revealed = false
			m.state = stateShow
		}
	case "a":
		return m.openAdd(""), textinput.Blink
	case "g":
		pw, err := vault.GeneratePassword(0)
		if err != nil {
			m.fail(err)
			return m, nil
		}
		generated := string(pw.Bytes())
		pw.Destroy()
		return m.openAdd(generated), textinput.Blink
	case "d":
		if len(m.services) == 0 {
			return m, nil
		}
		svc := m.services[m.cursor]
		if err := m.store.Remove(svc); err != nil {
			m.fail(err)
			return m, nil
		}
		m.dirty = true
		m.msg = "Removed " + svc
		m.refresh()
	case "c":
		if len(m.services) > 0 {
			return m, m.copy(m.services[m.cursor])
		}
	case "w":
		m.save()
	}
	return m, nil
}

func viewTable(m model) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Vault Entries") + "\n\n")
	if len(m.services) == 0 {
		b.WriteString("(empty)\n")
	}
	for i, svc := range m.services {
		line := fmt.Sprintf("%3d  %-40s", i+1, svc)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if m.dirty {
		b.WriteString("\n" + errStyle.Render("unsaved changes"))
	}
	if m.msg != "" {
		b.WriteString("\n" + msgStyle.Render(m.msg))
	}
	b.WriteString("\nCommands: j/k=move, enter=show, a=add, g=generate, d=delete, c=copy, w=save, q=quit")
	return b.String()
}

// --- Show Entry ---
func updateShow(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "esc", "q":
		m.state = stateTable
		m.selected = ""
		m.revealed = false
	case "v":
		// temporarily reveal secret
		m.revealed = true
		m.revealGen++
		gen := m.revealGen
		return m, tea.Tick(m.revealFor, func(time.Time) tea.Msg { return hideSecretMsg{gen: gen} })
	case "c":
		return m, m.copy(m.selected)
	}
	return m, nil
}

func viewShow(m model) string {
	secret := "********"
	if m.revealed {
		pw, err := m.store.Get(m.selected)
		if err != nil {
			secret = errStyle.Render(err.Error())
		} else {
			secret = pw
		}
	}
	s := fmt.Sprintf("Service: %s\nPassword: %s\n", m.selected, secret)
	if m.msg != "" {
		s += "\n" + msgStyle.Render(m.msg)
	}
	s += "\nPress 'v' to reveal, 'c' to copy, Esc to return"
	return s
}

// --- Add Entry ---
func (m model) openAdd(password string) model {
	for i := range m.textInputs {
		m.textInputs[i].Reset()
		m.textInputs[i].Blur()
	}
	m.textInputs[1].SetValue(password)
	m.textInputs[0].Focus()
	m.state = stateAdd
	m.msg = ""
	return m
}

func updateAdd(m model, msg tea.Msg) (model, tea.Cmd) {
	var cmds []tea.Cmd
	// Update the focused text input
	for i := range m.textInputs {
		ti := &m.textInputs[i]
		if ti.Focused() {
			var cmd tea.Cmd
			*ti, cmd = ti.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "shift+tab", "down", "up":
			// Move focus to next input
			m.focusNext(key.String() == "shift+tab" || key.String() == "up")
		case "esc":
			m.state = stateTable
		case "ctrl+g":
			pw, err := vault.GeneratePassword(0)
			if err != nil {
				m.fail(err)
				break
			}
			m.textInputs[1].SetValue(string(pw.Bytes()))
			pw.Destroy()
		case "enter":
			switch {
			case m.textInputs[len(m.textInputs)-1].Focused() && allInputsFilled(m.textInputs):
				m = saveAddEntry(m)
			case !m.textInputs[len(m.textInputs)-1].Focused():
				m.focusNext(false)
			}
		}
	}

	return m, tea.Batch(cmds...)
}

// Focus next or previous input
func (m *model) focusNext(backward bool) {
	n := len(m.textInputs)
	for i := 0; i < n; i++ {
		if m.textInputs[i].Focused() {
			m.textInputs[i].Blur()
			if backward {
				m.textInputs[(i-1+n)%n].Focus()
			} else {
				m.textInputs[(i+1)%n].Focus()
			}
			break
		}
	}
}

// Add the entry to the store; saving is explicit
func saveAddEntry(m model) model {
	service := strings.TrimSpace(m.textInputs[0].Value())
	pw := vault.NewSecretString(m.textInputs[1].Value())
	for i := range m.textInputs {
		m.textInputs[i].SetValue("")
	}
	m.state = stateTable

	if err := m.store.Add(service, pw); err != nil {
		m.fail(err)
		return m
	}
	m.dirty = true
	m.msg = "Added " + service
	m.refresh()
	return m
}

func viewAdd(m model) string {
	s := titleStyle.Render("Add New Entry") + "\n\n"
	for i, ti := range m.textInputs {
		s += fmt.Sprintf("%s: %s\n", ti.Placeholder, ti.View())
		if i < len(m.textInputs)-1 {
			s += "\n"
		}
	}
	if m.msg != "" {
		s += "\n" + m.msg + "\n"
	}
	s += "\nPress Enter to add, Ctrl+G to generate a password, Esc to cancel"
	return s
}

func allInputsFilled(inputs []textinput.Model) bool {
	for _, ti := range inputs {
		if strings.TrimSpace(ti.Value()) == "" {
			return false
		}
	}
	return true
}

// --- Quit ---
func updateConfirmQuit(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		if m.save() {
			return m, tea.Quit
		}
		m.state = stateTable
	case "n", "N", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.state = stateTable
	}
	return m, nil
}

func viewConfirmQuit(m model) string {
	return titleStyle.Render("Unsaved changes") + "\n\nSave before quitting? (y/n, Esc to cancel)"
}
