package app

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stomp-debugger/tui/internal/endpoint"
	"github.com/stomp-debugger/tui/internal/session"
	"github.com/stomp-debugger/tui/internal/theme"
	"github.com/stomp-debugger/tui/internal/views/confirm"
	"github.com/stomp-debugger/tui/internal/views/status"
	"github.com/stomp-debugger/tui/internal/views/subscriptions"
	"github.com/stomp-debugger/tui/internal/views/traffic"
)

// Focus identifies the widget receiving keys.
type Focus int

const (
	FocusURL Focus = iota
	FocusToken
	FocusSubscribe
	FocusSendDestination
	FocusBody
	FocusSubscriptions
	FocusLog
	focusCount
)

// ChangedMsg is sent whenever the controller reports a change.
type ChangedMsg struct{}

// DisconnectedMsg is sent once a requested disconnect has finished.
type DisconnectedMsg struct{}

const (
	formWidth  = 52
	bodyHeight = 5
)

// Model is the root Bubble Tea model.
type Model struct {
	ctrl   *session.Controller
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int
	focus  Focus

	// Form inputs.
	url      textinput.Model
	token    textinput.Model
	subDest  textinput.Model
	sendDest textinput.Model
	body     textarea.Model

	// Sub-views.
	statusBar status.Model
	subs      subscriptions.Model
	log       traffic.Model

	snap  session.Snapshot
	flash string
	ok    bool // flash is a success note rather than an error
}

// New creates the root model around a controller.
func New(ctrl *session.Controller) Model {
	ctx, cancel := context.WithCancel(context.Background())
	form := ctrl.Form()

	m := Model{
		ctrl:      ctrl,
		ctx:       ctx,
		cancel:    cancel,
		keys:      DefaultKeyMap(),
		url:       newInput("http://host:port/path", form.URL),
		token:     newInput("bearer token (optional)", form.Token),
		subDest:   newInput("/topic/...", form.SubscribeDestination),
		sendDest:  newInput("/app/...", form.SendDestination),
		statusBar: status.New(),
		subs:      subscriptions.New(),
		log:       traffic.New(),
	}
	m.token.EchoMode = textinput.EchoPassword
	m.token.EchoCharacter = '•'

	m.body = textarea.New()
	m.body.ShowLineNumbers = false
	m.body.Prompt = ""
	m.body.SetWidth(formWidth - 4)
	m.body.SetHeight(bodyHeight)
	m.body.SetValue(form.Body)

	m.url.Focus()
	m.refresh()
	return m
}

func newInput(placeholder, value string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.Width = formWidth - 22
	ti.SetValue(value)
	return ti
}

// Init starts listening for controller changes.
func (m Model) Init() tea.Cmd {
	return m.listen()
}

// listen waits for the next controller change. Like a read loop, it must
// be re-armed after every ChangedMsg.
func (m Model) listen() tea.Cmd {
	ctx, ch := m.ctx, m.ctrl.Changes()
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			return ChangedMsg{}
		}
	}
}

func waitDisconnected(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return DisconnectedMsg{}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		return m, nil

	case ChangedMsg:
		m.refresh()
		return m, m.listen()

	case DisconnectedMsg:
		m.setNote("Disconnected")
		m.refresh()
		return m, nil

	case subscriptions.UnsubscribeMsg:
		m.setError(m.ctrl.Unsubscribe(msg.Destination))
		m.refresh()
		return m, nil

	case subscriptions.SelectMsg:
		if msg.Destination != "" {
			m.ctrl.AcknowledgeRead(msg.Destination)
		}
		m.setFilter(msg.Destination)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m.quit()
	}

	if m.snap.ConfirmPending {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			return m, waitDisconnected(m.ctrl.ConfirmDisconnect())
		case key.Matches(msg, m.keys.Cancel):
			m.ctrl.CancelDisconnect()
			m.refresh()
		}
		return m, nil
	}

	m.flash = ""

	switch {
	case key.Matches(msg, m.keys.Next):
		return m, m.setFocus((m.focus + 1) % focusCount)

	case key.Matches(msg, m.keys.Prev):
		return m, m.setFocus((m.focus - 1 + focusCount) % focusCount)

	case key.Matches(msg, m.keys.Publish):
		m.publish()
		return m, nil

	case key.Matches(msg, m.keys.Disconnect):
		return m.disconnect()

	case key.Matches(msg, m.keys.ClearLog):
		m.ctrl.ClearLog()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.log.ScrollUp(m.logLines())
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.log.ScrollDown(m.logLines())
		return m, nil
	}

	switch m.focus {
	case FocusSubscriptions:
		if key.Matches(msg, m.keys.Quit) {
			return m.quit()
		}
		var cmd tea.Cmd
		m.subs, cmd = m.subs.Update(msg)
		return m, cmd

	case FocusLog:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		case key.Matches(msg, m.keys.Up):
			m.log.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.log.ScrollDown(1)
		case key.Matches(msg, m.keys.Escape):
			m.setFilter("")
		}
		return m, nil

	case FocusBody:
		var cmd tea.Cmd
		m.body, cmd = m.body.Update(msg)
		m.syncForm()
		return m, cmd
	}

	// Single-line inputs: enter submits the section the field belongs to.
	if key.Matches(msg, m.keys.Submit) {
		switch m.focus {
		case FocusURL, FocusToken:
			m.setError(m.ctrl.Connect(strings.TrimSpace(m.url.Value()), m.token.Value()))
		case FocusSubscribe:
			m.setError(m.ctrl.Subscribe(strings.TrimSpace(m.subDest.Value())))
		case FocusSendDestination:
			m.publish()
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case FocusURL:
		m.url, cmd = m.url.Update(msg)
	case FocusToken:
		m.token, cmd = m.token.Update(msg)
	case FocusSubscribe:
		m.subDest, cmd = m.subDest.Update(msg)
	case FocusSendDestination:
		m.sendDest, cmd = m.sendDest.Update(msg)
	}
	m.syncForm()
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	return m, tea.Quit
}

func (m *Model) publish() {
	dest := strings.TrimSpace(m.sendDest.Value())
	if err := m.ctrl.Publish(dest, m.body.Value()); err != nil {
		m.setError(err)
		return
	}
	m.setNote("Sent to " + dest)
	m.refresh()
}

func (m Model) disconnect() (tea.Model, tea.Cmd) {
	needsConfirm, done, err := m.ctrl.RequestDisconnect()
	if err != nil {
		m.setError(err)
		return m, nil
	}
	m.refresh()
	if needsConfirm {
		return m, nil
	}
	return m, waitDisconnected(done)
}

func (m *Model) setFocus(f Focus) tea.Cmd {
	m.url.Blur()
	m.token.Blur()
	m.subDest.Blur()
	m.sendDest.Blur()
	m.body.Blur()
	m.focus = f
	m.subs.Focused = f == FocusSubscriptions
	m.log.Focused = f == FocusLog

	switch f {
	case FocusURL:
		return m.url.Focus()
	case FocusToken:
		return m.token.Focus()
	case FocusSubscribe:
		return m.subDest.Focus()
	case FocusSendDestination:
		return m.sendDest.Focus()
	case FocusBody:
		return m.body.Focus()
	}
	return nil
}

func (m *Model) setFilter(dest string) {
	m.log.SetFilter(dest)
	m.subs.Filter = dest
}

// syncForm pushes the input values to the controller.
func (m *Model) syncForm() {
	m.ctrl.SetForm(session.Form{
		URL:                  m.url.Value(),
		Token:                m.token.Value(),
		SubscribeDestination: m.subDest.Value(),
		SendDestination:      m.sendDest.Value(),
		Body:                 m.body.Value(),
	})
}

// refresh pulls a fresh snapshot into the sub-views.
func (m *Model) refresh() {
	m.snap = m.ctrl.Snapshot()
	m.statusBar.SetSnapshot(m.snap)
	m.subs.SetItems(m.snap.Subscriptions)
	m.log.SetEntries(m.snap.Log)
}

func (m *Model) setError(err error) {
	if err == nil {
		return
	}
	m.flash = errorText(err)
	m.ok = false
}

func (m *Model) setNote(note string) {
	m.flash = note
	m.ok = true
}

// errorText keeps the user-facing part of local errors.
func errorText(err error) string {
	for _, sentinel := range []error{
		session.ErrInvalidConfig,
		session.ErrDuplicateSubscription,
		session.ErrInvalidPayload,
		session.ErrInvalidState,
		session.ErrUnknownSubscription,
	} {
		if errors.Is(err, sentinel) {
			return err.Error()
		}
	}
	return "Error: " + err.Error()
}

func (m Model) logLines() int {
	n := m.height / 3
	if n < 3 {
		n = 3
	}
	return n
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.snap.ConfirmPending {
		dialog := confirm.New(m.snap.URL, len(m.snap.Subscriptions)).View()
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderForms(),
		m.subs.View(max(m.width-formWidth, 24)),
	)
	topHeight := lipgloss.Height(top)
	statusBar := m.statusBar.View()

	logHeight := m.height - topHeight - lipgloss.Height(statusBar) - 2
	sections := []string{
		statusBar,
		top,
		m.log.View(m.width, logHeight),
		m.renderFlash(),
		theme.StyleDimmed.Render("  tab:field  enter:connect/subscribe/send  ctrl+s:send  ctrl+x:disconnect  ctrl+l:clear  pgup/pgdn:scroll  ctrl+c:quit"),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderFlash() string {
	if m.flash == "" {
		return ""
	}
	if m.ok {
		return theme.StyleOK.Render("  " + m.flash)
	}
	return theme.StyleError.Render("  " + m.flash)
}

func (m Model) renderForms() string {
	conn := lipgloss.JoinVertical(lipgloss.Left,
		m.field("URL", FocusURL, m.url.View()),
		"  "+m.urlFeedback(),
		m.field("Token", FocusToken, m.token.View()),
	)
	sub := m.field("Destination", FocusSubscribe, m.subDest.View())
	pub := lipgloss.JoinVertical(lipgloss.Left,
		m.field("Destination", FocusSendDestination, m.sendDest.View()),
		m.field("Body", FocusBody, ""),
		m.body.View(),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.section("CONNECTION", conn, m.focus == FocusURL || m.focus == FocusToken),
		m.section("SUBSCRIBE", sub, m.focus == FocusSubscribe),
		m.section("PUBLISH", pub, m.focus == FocusSendDestination || m.focus == FocusBody),
	)
}

func (m Model) section(title, body string, focused bool) string {
	style := theme.StyleBorder
	if focused {
		style = theme.StyleFocused
	}
	content := lipgloss.JoinVertical(lipgloss.Left, theme.StyleHeader.Render(title), body)
	return style.Width(formWidth - 2).Padding(0, 1).Render(content)
}

func (m Model) field(label string, f Focus, input string) string {
	prefix := "  "
	style := theme.StyleDimmed
	if m.focus == f {
		prefix = "> "
		style = theme.StyleSelected
	}
	return style.Render(prefix+padRight(label+":", 14)) + input
}

// urlFeedback validates the URL field as it is typed.
func (m Model) urlFeedback() string {
	raw := strings.TrimSpace(m.url.Value())
	res := endpoint.Validate(raw)
	if !res.Valid {
		return theme.StyleError.Render("✗ " + res.Error)
	}
	via := "WebSocket"
	if endpoint.ModeOf(raw) == endpoint.Fallback {
		via = "HTTP fallback"
	}
	return theme.StyleOK.Render("✓ valid, " + via)
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
