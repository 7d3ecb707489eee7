// Package ui is the terminal front end: a profile list, an add form, a
// password prompt and a command view over one session at a time.
package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/carlosrabelo/terminalnator/domain/entities"
	"github.com/carlosrabelo/terminalnator/internal/session"
)

// Backend is what the UI needs from the application.
type Backend interface {
	Profiles() []entities.Profile
	AddProfile(ctx context.Context, p entities.Profile) (int, error)
	RemoveProfile(ctx context.Context, id int) (bool, error)
	Connect(ctx context.Context, id int, creds entities.Credentials) (*session.Session, error)
	Disconnect(id int) error
}

type mode int

const (
	modeList mode = iota
	modeAdd
	modePassword
	modeSession
)

const (
	fieldHost = iota
	fieldPort
	fieldUser
	fieldFamily
	fieldTransport
	fieldCount
)

var fieldLabels = [fieldCount]string{"Host", "Port", "Username", "Family", "Transport"}

type profileItem struct {
	profile entities.Profile
}

func (i profileItem) Title() string {
	return fmt.Sprintf("%d  %s@%s", i.profile.ID, i.profile.Username, i.profile.Address())
}

func (i profileItem) Description() string {
	desc := fmt.Sprintf("%s over %s", i.profile.Family, i.profile.TransportName())
	if i.profile.Platform != "" {
		desc += ", " + i.profile.Platform
	}
	return desc
}

func (i profileItem) FilterValue() string { return i.profile.Host + " " + i.profile.Username }

// Model is the root bubbletea model.
type Model struct {
	backend        Backend
	commandTimeout time.Duration

	mode         mode
	list         list.Model
	fields       [fieldCount]textinput.Model
	focus        int
	password     textinput.Model
	secret       textinput.Model
	askingSecret bool
	command      textinput.Model
	output       viewport.Model
	transcript   strings.Builder

	selected entities.Profile
	sess     *session.Session
	busy     bool
	status   string
	isError  bool
	width    int
	height   int
}

// New builds the model. commandTimeout bounds every command sent.
func New(backend Backend, commandTimeout time.Duration) *Model {
	m := &Model{
		backend:        backend,
		commandTimeout: commandTimeout,
		list:           list.New(nil, list.NewDefaultDelegate(), 0, 0),
		output:         viewport.New(80, 20),
	}
	m.list.Title = "Device profiles"
	m.list.SetShowHelp(false)

	for i := range m.fields {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 128
		m.fields[i] = in
	}
	m.fields[fieldPort].Placeholder = "22"
	m.fields[fieldFamily].Placeholder = string(entities.FamilyGenericLine)
	m.fields[fieldTransport].Placeholder = entities.TransportSSH

	m.password = textinput.New()
	m.password.Placeholder = "password"
	m.password.EchoMode = textinput.EchoPassword
	m.password.CharLimit = 128

	m.secret = textinput.New()
	m.secret.Placeholder = "enable secret (blank to skip)"
	m.secret.EchoMode = textinput.EchoPassword
	m.secret.CharLimit = 128

	m.command = textinput.New()
	m.command.Placeholder = "command, :push <file>, :save or :quit"
	m.command.CharLimit = 512

	m.reload()
	return m
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) reload() {
	profiles := m.backend.Profiles()
	items := make([]list.Item, len(profiles))
	for i, p := range profiles {
		items[i] = profileItem{profile: p}
	}
	m.list.SetItems(items)
}

func (m *Model) setStatus(msg string, isError bool) {
	m.status = msg
	m.isError = isError
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width, msg.Height-3)
		m.output.Width = msg.Width
		m.output.Height = max(msg.Height-6, 3)
		return m, nil
	case connectedMsg:
		return m.onConnected(msg)
	case resultMsg:
		return m.onResult(msg)
	case errMsg:
		m.busy = false
		m.setStatus(msg.err.Error(), true)
		if m.mode == modePassword {
			m.mode = modeList
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.closeSession()
			return m, tea.Quit
		}
		switch m.mode {
		case modeAdd:
			return m.updateAdd(msg)
		case modePassword:
			return m.updatePassword(msg)
		case modeSession:
			return m.updateSession(msg)
		default:
			return m.updateList(msg)
		}
	}

	var cmd tea.Cmd
	if m.mode == modeList {
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "a":
		m.mode = modeAdd
		m.focus = 0
		for i := range m.fields {
			m.fields[i].SetValue("")
			m.fields[i].Blur()
		}
		m.setStatus("", false)
		return m, m.fields[0].Focus()
	case "d":
		item, ok := m.list.SelectedItem().(profileItem)
		if !ok {
			return m, nil
		}
		removed, err := m.backend.RemoveProfile(context.Background(), item.profile.ID)
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		if removed {
			m.setStatus(fmt.Sprintf("Deleted profile %d", item.profile.ID), false)
		}
		m.reload()
		return m, nil
	case "enter":
		item, ok := m.list.SelectedItem().(profileItem)
		if !ok {
			m.setStatus("No profile selected", true)
			return m, nil
		}
		m.selected = item.profile
		m.mode = modePassword
		m.askingSecret = false
		m.password.SetValue("")
		m.secret.SetValue("")
		m.secret.Blur()
		m.setStatus("", false)
		return m, m.password.Focus()
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeList
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		return m, m.focusField((m.focus + 1) % fieldCount)
	case tea.KeyShiftTab, tea.KeyUp:
		return m, m.focusField((m.focus + fieldCount - 1) % fieldCount)
	case tea.KeyEnter:
		if m.focus < fieldCount-1 {
			return m, m.focusField(m.focus + 1)
		}
		return m.submitProfile()
	}
	var cmd tea.Cmd
	m.fields[m.focus], cmd = m.fields[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) focusField(i int) tea.Cmd {
	m.fields[m.focus].Blur()
	m.focus = i
	return m.fields[i].Focus()
}

func (m *Model) submitProfile() (tea.Model, tea.Cmd) {
	p := entities.Profile{
		Host:      strings.TrimSpace(m.fields[fieldHost].Value()),
		Username:  strings.TrimSpace(m.fields[fieldUser].Value()),
		Transport: strings.TrimSpace(m.fields[fieldTransport].Value()),
	}
	if port := strings.TrimSpace(m.fields[fieldPort].Value()); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			m.setStatus(fmt.Sprintf("invalid port %q", port), true)
			return m, nil
		}
		p.Port = n
	}
	family, err := entities.ParseFamily(m.fields[fieldFamily].Value())
	if err != nil {
		m.setStatus(err.Error(), true)
		return m, nil
	}
	p.Family = family

	id, err := m.backend.AddProfile(context.Background(), p)
	if err != nil {
		m.setStatus(err.Error(), true)
		return m, nil
	}
	m.reload()
	m.mode = modeList
	m.setStatus(fmt.Sprintf("Added profile %d", id), false)
	return m, nil
}

func (m *Model) updatePassword(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeList
		return m, nil
	case tea.KeyEnter:
		if m.busy {
			return m, nil
		}
		if !m.askingSecret && needsSecret(m.selected) {
			m.askingSecret = true
			m.password.Blur()
			return m, m.secret.Focus()
		}
		m.busy = true
		m.setStatus(fmt.Sprintf("Connecting to %s...", m.selected.Address()), false)
		creds := entities.Credentials{Password: m.password.Value(), Secret: m.secret.Value()}
		return m, connectCmd(m.backend, m.selected.ID, creds)
	}
	var cmd tea.Cmd
	if m.askingSecret {
		m.secret, cmd = m.secret.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func needsSecret(p entities.Profile) bool {
	return p.Family.RequiresEscalation() || !p.Family.Known()
}

func (m *Model) onConnected(msg connectedMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.sess = msg.sess
	m.mode = modeSession
	m.transcript.Reset()
	m.output.SetContent("")
	p := msg.sess.Profile()
	m.setStatus(fmt.Sprintf("Connected to %s@%s (%s)", p.Username, p.Host, msg.sess.Family()), false)
	m.command.SetValue("")
	return m, m.command.Focus()
}

func (m *Model) updateSession(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeSession()
		m.mode = modeList
		m.setStatus("Disconnected", false)
		return m, nil
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		return m, cmd
	case tea.KeyEnter:
		if m.busy {
			return m, nil
		}
		line := strings.TrimSpace(m.command.Value())
		m.command.SetValue("")
		if line == "" {
			return m, nil
		}
		return m.dispatch(line)
	}
	var cmd tea.Cmd
	m.command, cmd = m.command.Update(msg)
	return m, cmd
}

func (m *Model) dispatch(line string) (tea.Model, tea.Cmd) {
	switch {
	case line == ":quit" || line == ":q":
		m.closeSession()
		m.mode = modeList
		m.setStatus("Disconnected", false)
		return m, nil
	case line == ":save":
		m.busy = true
		return m, saveCmd(m.sess, m.commandTimeout)
	case strings.HasPrefix(line, ":push "):
		m.busy = true
		return m, pushCmd(m.sess, strings.TrimSpace(strings.TrimPrefix(line, ":push ")), m.commandTimeout)
	default:
		m.busy = true
		return m, runCmd(m.sess, line, m.commandTimeout)
	}
}

func (m *Model) onResult(msg resultMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	for _, r := range msg.results {
		prefix := "$ "
		if r.Rejected {
			prefix = "! "
		}
		m.transcript.WriteString(prefix + r.Command + "\n")
		if r.Output != "" {
			m.transcript.WriteString(r.Output + "\n")
		}
	}
	m.output.SetContent(m.transcript.String())
	m.output.GotoBottom()

	if msg.err != nil {
		m.setStatus(msg.err.Error(), true)
	} else {
		m.setStatus(msg.summary, false)
	}
	if st := m.sess.State(); st == session.StateClosing || st == session.StateClosed {
		m.sess = nil
		m.mode = modeList
		m.setStatus("Session closed: "+m.status, true)
	}
	return m, nil
}

func (m *Model) closeSession() {
	if m.sess == nil {
		return
	}
	if err := m.backend.Disconnect(m.sess.ProfileID()); err != nil {
		m.setStatus(err.Error(), true)
	}
	m.sess = nil
}

func (m *Model) View() string {
	var b strings.Builder
	switch m.mode {
	case modeAdd:
		b.WriteString(TitleStyle.Render("New profile") + "\n\n")
		for i, f := range m.fields {
			b.WriteString(LabelStyle.Render(fieldLabels[i]) + " " + f.View() + "\n")
		}
		b.WriteString("\n" + HelpStyle.Render("tab: next field • enter: save • esc: cancel"))
	case modePassword:
		b.WriteString(TitleStyle.Render(fmt.Sprintf("Connect to %s@%s", m.selected.Username, m.selected.Address())) + "\n\n")
		b.WriteString(LabelStyle.Render("Password") + " " + m.password.View() + "\n")
		if m.askingSecret {
			b.WriteString(LabelStyle.Render("Secret") + " " + m.secret.View() + "\n")
		}
		b.WriteString("\n" + HelpStyle.Render("enter: connect • esc: back"))
	case modeSession:
		b.WriteString(OutputStyle.Render(m.output.View()) + "\n")
		b.WriteString(m.command.View() + "\n")
		b.WriteString(HelpStyle.Render("enter: send • pgup/pgdn: scroll • esc: disconnect"))
	default:
		b.WriteString(m.list.View() + "\n")
		b.WriteString(HelpStyle.Render("enter: connect • a: add • d: delete • /: filter • q: quit"))
	}
	if m.status != "" {
		style := SuccessStyle
		if m.isError {
			style = ErrorStyle
		}
		b.WriteString("\n" + style.Render(m.status))
	}
	return lipgloss.NewStyle().MaxWidth(max(m.width, 80)).Render(b.String())
}
