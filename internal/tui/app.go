package tui

import (
	"context"
	"fmt"

	"acm/internal/core"
	"acm/internal/domain"
	"acm/internal/tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Manager is what the TUI needs from the profile manager
type Manager interface {
	View(ctx context.Context, query string) *core.ListView
	Apply(ctx context.Context, index int) (*core.ApplyResult, error)
	Delete(index int) (domain.Profile, error)
	CycleSortMode() domain.SortMode
	ToggleGroup(group string) bool
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Err error
}

type viewMsg struct {
	view *core.ListView
}

type appliedMsg struct {
	name string
	res  *core.ApplyResult
	err  error
}

type modelSelectedMsg struct {
	name     string
	model    string
	selected bool
	err      error
}

type hostChangedMsg struct{}

// App is the main TUI application model
type App struct {
	manager  Manager
	keys     *KeyMap
	changes  <-chan struct{}
	profiles views.Profiles

	query    string
	showHelp bool
	status   string
	err      error
	width    int
	height   int
}

// NewApp creates a new TUI application. Each value received on changes
// reloads the list; changes may be nil.
func NewApp(manager Manager, keys *KeyMap, changes <-chan struct{}) App {
	if keys == nil {
		keys = NewKeyMap("")
	}
	return App{
		manager:  manager,
		keys:     keys,
		changes:  changes,
		profiles: views.NewProfiles(keys, nil),
		width:    80,
		height:   24,
	}
}

// Profiles returns the profile list sub-model
func (a App) Profiles() views.Profiles {
	return a.profiles
}

// Status returns the last status line
func (a App) Status() string {
	return a.status
}

// Err returns the last error shown
func (a App) Err() error {
	return a.err
}

// Init implements tea.Model
func (a App) Init() tea.Cmd {
	if a.changes == nil {
		return a.refresh()
	}
	return tea.Batch(a.refresh(), a.watch())
}

func (a App) refresh() tea.Cmd {
	manager, query := a.manager, a.query
	return func() tea.Msg {
		if manager == nil {
			return viewMsg{}
		}
		return viewMsg{view: manager.View(context.Background(), query)}
	}
}

func (a App) watch() tea.Cmd {
	changes := a.changes
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return hostChangedMsg{}
	}
}

func waitForModel(name, model string, w *core.ModelWait) tea.Cmd {
	return func() tea.Msg {
		<-w.Done()
		return modelSelectedMsg{name: name, model: model, selected: w.Selected(), err: w.Err()}
	}
}

// Update implements tea.Model
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case viewMsg:
		a.profiles = a.profiles.SetView(msg.view)
		return a, nil

	case hostChangedMsg:
		return a, tea.Batch(a.refresh(), a.watch())

	case views.ApplyProfileMsg:
		if a.manager == nil {
			return a, nil
		}
		a.status = fmt.Sprintf("Applying %s...", msg.Name)
		manager := a.manager
		return a, func() tea.Msg {
			res, err := manager.Apply(context.Background(), msg.Index)
			return appliedMsg{name: msg.Name, res: res, err: err}
		}

	case appliedMsg:
		if msg.err != nil {
			a.err = msg.err
			a.status = ""
			return a, a.refresh()
		}
		a.status = fmt.Sprintf("Applied %s", msg.name)
		if msg.res.Wait != nil {
			a.status += fmt.Sprintf(", waiting to select %s", msg.res.Profile.Model)
			return a, tea.Batch(a.refresh(), waitForModel(msg.name, msg.res.Profile.Model, msg.res.Wait))
		}
		return a, a.refresh()

	case modelSelectedMsg:
		switch {
		case msg.err != nil:
			a.err = fmt.Errorf("selecting %s: %w", msg.model, msg.err)
		case msg.selected:
			a.status = fmt.Sprintf("Applied %s with model %s", msg.name, msg.model)
		}
		return a, a.refresh()

	case views.DeleteProfileMsg:
		if a.manager == nil {
			return a, nil
		}
		if _, err := a.manager.Delete(msg.Index); err != nil {
			a.err = err
		} else {
			a.status = fmt.Sprintf("Deleted %s", msg.Name)
		}
		return a, a.refresh()

	case views.ToggleGroupMsg:
		if a.manager != nil {
			a.manager.ToggleGroup(msg.Group)
		}
		return a, a.refresh()

	case views.CycleSortMsg:
		if a.manager != nil {
			a.status = fmt.Sprintf("Sorted by %s", a.manager.CycleSortMode())
		}
		return a, a.refresh()

	case views.SearchMsg:
		a.query = msg.Query
		return a, a.refresh()

	case ErrorMsg:
		a.err = msg.Err
		return a, nil
	}

	// Delegate to the profile list
	var cmd tea.Cmd
	var model tea.Model
	model, cmd = a.profiles.Update(msg)
	a.profiles = model.(views.Profiles)
	return a, cmd
}

func (a App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.err = nil

	// Global keybindings, unless a text field or prompt has the keyboard
	if !a.profiles.Searching() && !a.profiles.Confirming() {
		switch {
		case a.keys.IsQuit(msg):
			return a, tea.Quit
		case a.keys.IsHelp(msg):
			a.showHelp = !a.showHelp
			return a, nil
		case a.keys.IsRefresh(msg):
			return a, a.refresh()
		}
	}
	if msg.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}

	model, cmd := a.profiles.Update(msg)
	a.profiles = model.(views.Profiles)
	return a, cmd
}

// View implements tea.Model
func (a App) View() string {
	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	// Header
	header := titleStyle.Render("acm - API Connection Manager")

	// Content
	content := a.profiles.View()
	if a.showHelp {
		content = a.keys.FullHelp()
	}

	// Status and error display
	statusLine := ""
	if a.status != "" {
		statusLine = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render(a.status)
	}
	if a.err != nil {
		statusLine = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(fmt.Sprintf("Error: %v", a.err))
	}

	// Footer
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	footer := footerStyle.Render(a.keys.NavigationHelp() + "  d: delete  ?: help  q: quit")

	return fmt.Sprintf("%s\n%s\n\n%s\n%s", header, content, statusLine, footer)
}

// Run starts the TUI application
func Run(manager Manager, keys *KeyMap, changes <-chan struct{}) error {
	app := NewApp(manager, keys, changes)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
