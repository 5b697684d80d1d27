// Package editor implements the inline username editor of the account
// dashboard as a Bubble Tea component.
//
// The editor is either Viewing (field read-only, action "Edit") or Editing
// (field writable, action "Confirm"). Confirming submits the field value
// once; the outcome is shown inline, and a successful rename logs the
// session out after a fixed delay.
package editor

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mkrupp/accountdash/internal/domain"
	"github.com/mkrupp/accountdash/internal/infra/logging"
)

// Texts shown by the editor.
const (
	ButtonEdit    = "Edit"
	ButtonConfirm = "Confirm"

	StatusUpdated          = "Success, username changed. Logging out..."
	StatusTransportFailure = "An error occurred. Please try again."
)

// EditState is the mode of the username field.
type EditState int

const (
	Viewing EditState = iota
	Editing
)

func (s EditState) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	default:
		return "unknown"
	}
}

// StatusClass selects how the status line is styled.
type StatusClass int

const (
	StatusNone StatusClass = iota
	StatusSuccess
	StatusError
)

// Updater submits a username change. A returned error means the request did
// not complete or its response could not be decoded.
type Updater interface {
	UpdateUsername(ctx context.Context, newUsername string) (domain.UsernameUpdateResult, error)
}

// Navigator moves the session to another page.
type Navigator interface {
	Navigate(ctx context.Context, path string) error
}

// Config contains editor settings.
type Config struct {
	// RedirectDelay is the pause between a successful rename and the logout
	RedirectDelay time.Duration `env:"REDIRECT_DELAY" default:"2s"`

	// LogoutPath is navigated to after a successful rename
	LogoutPath string `env:"LOGOUT_PATH" default:"/logout"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		RedirectDelay: 2 * time.Second,
		LogoutPath:    "/logout",
	}
}

type updateResultMsg struct {
	result domain.UsernameUpdateResult
	err    error
}

type logoutMsg struct{}

// NavigatedMsg reports that the post-rename logout navigation finished.
type NavigatedMsg struct {
	Path string
	Err  error
}

type keyMap struct {
	Action key.Binding
	Cancel key.Binding
}

// Model is the editor component.
type Model struct {
	ctx       context.Context //nolint:containedctx
	cfg       Config
	updater   Updater
	navigator Navigator
	log       logging.Logger
	keys      keyMap

	username string
	input    textinput.Model
	spinner  spinner.Model

	state      EditState
	pending    bool
	status     string
	class      StatusClass
	loggingOut bool
	navigated  bool
}

// New creates an editor in the Viewing state showing username. Calls to
// updater and navigator run with ctx.
func New(ctx context.Context, username string, updater Updater, navigator Navigator, cfg Config) Model {
	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = "username"
	input.SetValue(username)
	input.Blur()
	_ = input.Cursor.SetMode(cursor.CursorStatic)

	spin := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle))

	return Model{
		ctx:       ctx,
		cfg:       cfg,
		updater:   updater,
		navigator: navigator,
		log:       logging.GetLogger("ui.editor"),
		keys: keyMap{
			Action: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "edit/confirm"),
			),
			Cancel: key.NewBinding(
				key.WithKeys("esc"),
				key.WithHelp("esc", "cancel edit"),
			),
		},
		username: username,
		input:    input,
		spinner:  spin,
		state:    Viewing,
	}
}

// State returns the current edit state.
func (m Model) State() EditState {
	return m.state
}

// Value returns the current field value.
func (m Model) Value() string {
	return m.input.Value()
}

// Status returns the status text and its class.
func (m Model) Status() (string, StatusClass) {
	return m.status, m.class
}

// Pending reports whether an update request is in flight.
func (m Model) Pending() bool {
	return m.pending
}

// Renamed reports whether the backend accepted a new username. The session
// that made the change is no longer valid from then on.
func (m Model) Renamed() bool {
	return m.loggingOut
}

// ButtonLabel returns the label of the action button for the current state.
func (m Model) ButtonLabel() string {
	if m.state == Editing {
		return ButtonConfirm
	}

	return ButtonEdit
}

// ReadOnly reports whether the field rejects input.
func (m Model) ReadOnly() bool {
	return m.state == Viewing || m.loggingOut
}

// KeyBindings returns the editor's bindings for help views.
func (m Model) KeyBindings() []key.Binding {
	return []key.Binding{m.keys.Action, m.keys.Cancel}
}

// Press activates the action button: Viewing enters edit mode, Editing
// submits the field value. Presses while a request is in flight or a logout
// is scheduled are ignored.
func (m Model) Press() (Model, tea.Cmd) {
	if m.pending || m.loggingOut {
		return m, nil
	}

	switch m.state {
	case Viewing:
		return m.startEditing()
	case Editing:
		return m.submit()
	default:
		return m, nil
	}
}

// Edit enters edit mode unless the editor is already editing or busy.
func (m Model) Edit() (Model, tea.Cmd) {
	if m.state == Editing || m.pending || m.loggingOut {
		return m, nil
	}

	return m.startEditing()
}

// Cancel leaves edit mode and restores the username shown before editing.
// The status line is kept until edit mode is entered again.
func (m Model) Cancel() Model {
	if m.state != Editing || m.pending || m.loggingOut {
		return m
	}

	m.state = Viewing
	m.input.Blur()
	m.input.SetValue(m.username)

	return m
}

func (m Model) startEditing() (Model, tea.Cmd) {
	m.state = Editing
	m.status = ""
	m.class = StatusNone

	cmd := m.input.Focus()
	m.input.CursorEnd()

	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	m.pending = true

	ctx, updater, newUsername := m.ctx, m.updater, m.input.Value()

	update := func() tea.Msg {
		result, err := updater.UpdateUsername(ctx, newUsername)

		return updateResultMsg{result: result, err: err}
	}

	return m, tea.Batch(update, m.spinner.Tick)
}

// Update handles key presses and the results of the editor's own commands.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Action) {
			return m.Press()
		}

		if key.Matches(msg, m.keys.Cancel) {
			return m.Cancel(), nil
		}

		if m.ReadOnly() {
			return m, nil
		}

		var cmd tea.Cmd

		m.input, cmd = m.input.Update(msg)

		return m, cmd

	case updateResultMsg:
		return m.handleResult(msg)

	case logoutMsg:
		if m.navigated {
			return m, nil
		}

		m.navigated = true

		ctx, navigator, path := m.ctx, m.navigator, m.cfg.LogoutPath

		return m, func() tea.Msg {
			return NavigatedMsg{Path: path, Err: navigator.Navigate(ctx, path)}
		}

	case NavigatedMsg:
		if msg.Err != nil {
			m.log.ErrorContext(m.ctx, "logout navigation failed", "path", msg.Path, "error", msg.Err)
		}

		return m, nil

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}

		var cmd tea.Cmd

		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	default:
		var cmd tea.Cmd

		m.input, cmd = m.input.Update(msg)

		return m, cmd
	}
}

func (m Model) handleResult(msg updateResultMsg) (Model, tea.Cmd) {
	m.pending = false

	if msg.err != nil {
		m.log.ErrorContext(m.ctx, "username update failed", "error", msg.err)
		m.status = StatusTransportFailure
		m.class = StatusError

		return m, nil
	}

	if !msg.result.Updated() {
		m.log.DebugContext(m.ctx, "username update rejected", "reason", msg.result.Error)
		m.status = msg.result.Error
		m.class = StatusError

		return m, nil
	}

	m.log.InfoContext(m.ctx, "username updated", "new_username", m.input.Value())
	m.status = StatusUpdated
	m.class = StatusSuccess
	m.loggingOut = true
	m.input.Blur()

	return m, tea.Tick(m.cfg.RedirectDelay, func(time.Time) tea.Msg {
		return logoutMsg{}
	})
}
