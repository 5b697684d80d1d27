// Package dashboard is the account dashboard screen: an account dropdown
// menu next to the inline username editor.
package dashboard

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mkrupp/accountdash/internal/infra/logging"
	"github.com/mkrupp/accountdash/internal/ui/editor"
)

// Menu entries.
const (
	MenuEditUsername = "Edit username"
	MenuLogout       = "Log out"
)

//nolint:gochecknoglobals
var menuEntries = []string{MenuEditUsername, MenuLogout}

//nolint:gochecknoglobals
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(editor.PrimaryColor).
			Bold(true).
			MarginBottom(1)

	MenuStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(editor.PrimaryColor).
			Padding(0, 1)

	MenuItemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	SelectedMenuItemStyle = lipgloss.NewStyle().
				Foreground(editor.PrimaryColor).
				Bold(true)
)

// loggedOutMsg reports the end of a logout chosen from the menu.
type loggedOutMsg struct {
	err error
}

type keyMap struct {
	Menu   key.Binding
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Close  key.Binding
	Quit   key.Binding

	editor []key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	bindings := []key.Binding{k.Menu}
	bindings = append(bindings, k.editor...)

	return append(bindings, k.Quit)
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Menu, k.Up, k.Down, k.Select, k.Close},
		append(append([]key.Binding{}, k.editor...), k.Quit),
	}
}

// Model is the dashboard screen. It implements tea.Model.
type Model struct {
	ctx       context.Context //nolint:containedctx
	username  string
	navigator editor.Navigator
	logoutURL string
	log       logging.Logger

	editor editor.Model
	help   help.Model
	keys   keyMap

	menuOpen  bool
	cursor    int
	loggedOut bool
	err       error
}

var _ tea.Model = Model{}

// New creates the dashboard for username. The editor submits through
// updater; logouts go through navigator.
func New(
	ctx context.Context,
	username string,
	updater editor.Updater,
	navigator editor.Navigator,
	cfg editor.Config,
) Model {
	ed := editor.New(ctx, username, updater, navigator, cfg)

	return Model{
		ctx:       ctx,
		username:  username,
		navigator: navigator,
		logoutURL: cfg.LogoutPath,
		log:       logging.GetLogger("ui.dashboard"),
		editor:    ed,
		help:      help.New(),
		keys: keyMap{
			Menu: key.NewBinding(
				key.WithKeys("tab"),
				key.WithHelp("tab", "account menu"),
			),
			Up: key.NewBinding(
				key.WithKeys("up"),
				key.WithHelp("↑", "up"),
			),
			Down: key.NewBinding(
				key.WithKeys("down"),
				key.WithHelp("↓", "down"),
			),
			Select: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "select"),
			),
			Close: key.NewBinding(
				key.WithKeys("esc"),
				key.WithHelp("esc", "close menu"),
			),
			Quit: key.NewBinding(
				key.WithKeys("ctrl+c"),
				key.WithHelp("ctrl+c", "quit"),
			),
			editor: ed.KeyBindings(),
		},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// MenuOpen reports whether the account dropdown is visible.
func (m Model) MenuOpen() bool {
	return m.menuOpen
}

// Selected returns the highlighted menu entry.
func (m Model) Selected() string {
	return menuEntries[m.cursor]
}

// Editor returns the embedded username editor.
func (m Model) Editor() editor.Model {
	return m.editor
}

// LoggedOut reports whether the session ended, either from the menu or after
// a rename.
func (m Model) LoggedOut() bool {
	return m.loggedOut
}

// Renamed reports whether the username was changed. The stored session is
// stale even if the logout after the rename never ran.
func (m Model) Renamed() bool {
	return m.editor.Renamed()
}

// Err returns the error of the logout navigation, if any.
func (m Model) Err() error {
	return m.err
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case loggedOutMsg:
		m.loggedOut = true
		m.err = msg.err

		if msg.err != nil {
			m.log.ErrorContext(m.ctx, "logout failed", "error", msg.err)
		}

		return m, tea.Quit

	case editor.NavigatedMsg:
		var cmd tea.Cmd

		m.editor, cmd = m.editor.Update(msg)
		m.loggedOut = true
		m.err = msg.Err

		return m, tea.Batch(cmd, tea.Quit)
	}

	var cmd tea.Cmd

	m.editor, cmd = m.editor.Update(msg)

	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if key.Matches(msg, m.keys.Menu) {
		m.menuOpen = !m.menuOpen
		m.cursor = 0

		return m, nil
	}

	if !m.menuOpen {
		var cmd tea.Cmd

		m.editor, cmd = m.editor.Update(msg)

		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.cursor = (m.cursor + len(menuEntries) - 1) % len(menuEntries)
	case key.Matches(msg, m.keys.Down):
		m.cursor = (m.cursor + 1) % len(menuEntries)
	case key.Matches(msg, m.keys.Close):
		m.menuOpen = false
	case key.Matches(msg, m.keys.Select):
		return m.selectEntry()
	}

	return m, nil
}

func (m Model) selectEntry() (tea.Model, tea.Cmd) {
	m.menuOpen = false

	switch menuEntries[m.cursor] {
	case MenuEditUsername:
		var cmd tea.Cmd

		m.editor, cmd = m.editor.Edit()

		return m, cmd
	case MenuLogout:
		ctx, navigator, path := m.ctx, m.navigator, m.logoutURL

		return m, func() tea.Msg {
			return loggedOutMsg{err: navigator.Navigate(ctx, path)}
		}
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Dashboard · " + m.username))
	b.WriteString("\n")

	if m.menuOpen {
		items := make([]string, len(menuEntries))

		for i, entry := range menuEntries {
			if i == m.cursor {
				items[i] = SelectedMenuItemStyle.Render("> " + entry)
			} else {
				items[i] = MenuItemStyle.Render(entry)
			}
		}

		b.WriteString(MenuStyle.Render(lipgloss.JoinVertical(lipgloss.Left, items...)))
		b.WriteString("\n")
	}

	b.WriteString(m.editor.View())
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}
