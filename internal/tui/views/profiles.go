package views

import (
	"fmt"
	"strings"

	"acm/internal/core"
	"acm/internal/domain"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ApplyProfileMsg is sent to apply a profile
type ApplyProfileMsg struct {
	Index int
	Name  string
}

// DeleteProfileMsg is sent once a delete has been confirmed
type DeleteProfileMsg struct {
	Index int
	Name  string
}

// ToggleGroupMsg is sent to collapse or expand a group
type ToggleGroupMsg struct {
	Group string
}

// CycleSortMsg is sent to advance the list order
type CycleSortMsg struct{}

// SearchMsg is sent whenever the search query changes
type SearchMsg struct {
	Query string
}

// Keys is the subset of the keymap the profile list reacts to
type Keys interface {
	IsUp(msg tea.KeyMsg) bool
	IsDown(msg tea.KeyMsg) bool
	IsHome(msg tea.KeyMsg) bool
	IsEnd(msg tea.KeyMsg) bool
	IsConfirm(msg tea.KeyMsg) bool
	IsCancel(msg tea.KeyMsg) bool
	IsSearch(msg tea.KeyMsg) bool
	IsDelete(msg tea.KeyMsg) bool
	IsSort(msg tea.KeyMsg) bool
}

// chromeLines is the height taken by everything but the rows: this view's
// title, info, search, detail, scroll and confirm lines plus the app's
// header, status and footer
const chromeLines = 16

const minVisibleRows = 3

// row is one visible line: a group header or a profile
type row struct {
	header  bool
	section core.Section
	entry   core.Entry
}

// Profiles is the ranked profile list
type Profiles struct {
	keys       Keys
	view       *core.ListView
	rows       []row
	selected   int
	searching  bool
	confirming bool
	search     textinput.Model
	width      int
	height     int
}

// NewProfiles creates a new profiles view
func NewProfiles(keys Keys, view *core.ListView) Profiles {
	ti := textinput.New()
	ti.Placeholder = "name, group, URL or model..."
	ti.Prompt = "/"
	ti.CharLimit = 100
	ti.Width = 40

	p := Profiles{
		keys:   keys,
		search: ti,
		width:  80,
		height: 24,
	}
	return p.SetView(view)
}

// SetView replaces the listed profiles, keeping the cursor on the same
// profile or group when it is still visible
func (p Profiles) SetView(view *core.ListView) Profiles {
	if view == nil {
		view = &core.ListView{Mode: domain.SortGroup, Active: -1}
	}

	var prev *row
	if p.selected >= 0 && p.selected < len(p.rows) {
		prev = &p.rows[p.selected]
	}

	p.view = view
	p.rows = buildRows(view.Sections)
	p.selected = 0
	if prev != nil {
		for i, r := range p.rows {
			if r.header == prev.header &&
				((r.header && r.section.Group == prev.section.Group) || (!r.header && r.entry.Index == prev.entry.Index)) {
				p.selected = i
				break
			}
		}
	}
	if p.confirming {
		if _, ok := p.SelectedEntry(); !ok {
			p.confirming = false
		}
	}
	return p
}

func buildRows(sections []core.Section) []row {
	var rows []row
	for _, s := range sections {
		if s.Group != "" {
			rows = append(rows, row{header: true, section: s})
			if s.Collapsed {
				continue
			}
		}
		for _, e := range s.Entries {
			rows = append(rows, row{section: s, entry: e})
		}
	}
	return rows
}

// Selected returns the currently selected row
func (p Profiles) Selected() int {
	return p.selected
}

// RowCount returns the number of visible rows
func (p Profiles) RowCount() int {
	return len(p.rows)
}

// Searching reports whether the search input has focus
func (p Profiles) Searching() bool {
	return p.searching
}

// Confirming reports whether a delete is awaiting confirmation
func (p Profiles) Confirming() bool {
	return p.confirming
}

// Query returns the current search query
func (p Profiles) Query() string {
	return p.search.Value()
}

// SelectedEntry returns the profile under the cursor
func (p Profiles) SelectedEntry() (core.Entry, bool) {
	if p.selected < 0 || p.selected >= len(p.rows) || p.rows[p.selected].header {
		return core.Entry{}, false
	}
	return p.rows[p.selected].entry, true
}

// SelectedGroup returns the group header under the cursor
func (p Profiles) SelectedGroup() (string, bool) {
	if p.selected < 0 || p.selected >= len(p.rows) || !p.rows[p.selected].header {
		return "", false
	}
	return p.rows[p.selected].section.Group, true
}

// Init implements tea.Model
func (p Profiles) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (p Profiles) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case p.searching:
			return p.handleSearchMode(msg)
		case p.confirming:
			return p.handleConfirm(msg)
		}
		return p.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil
	}

	if p.searching {
		var cmd tea.Cmd
		p.search, cmd = p.search.Update(msg)
		return p, cmd
	}
	return p, nil
}

func (p Profiles) handleSearchMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		p.searching = false
		p.search.Blur()
		if p.search.Value() == "" {
			return p, nil
		}
		p.search.Reset()
		return p, searchCmd("")

	case tea.KeyEnter:
		p.searching = false
		p.search.Blur()
		return p, nil
	}

	before := p.search.Value()
	var cmd tea.Cmd
	p.search, cmd = p.search.Update(msg)
	if after := p.search.Value(); after != before {
		return p, tea.Batch(cmd, searchCmd(after))
	}
	return p, cmd
}

func searchCmd(query string) tea.Cmd {
	return func() tea.Msg {
		return SearchMsg{Query: query}
	}
}

func (p Profiles) handleConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p.confirming = false
	entry, ok := p.SelectedEntry()
	if !ok || (msg.String() != "y" && msg.String() != "Y") {
		return p, nil
	}
	return p, func() tea.Msg {
		return DeleteProfileMsg{Index: entry.Index, Name: entry.Profile.Name}
	}
}

func (p Profiles) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case p.keys.IsUp(msg):
		if len(p.rows) > 0 {
			p.selected--
			if p.selected < 0 {
				p.selected = len(p.rows) - 1
			}
		}

	case p.keys.IsDown(msg):
		if len(p.rows) > 0 {
			p.selected++
			if p.selected >= len(p.rows) {
				p.selected = 0
			}
		}

	case p.keys.IsHome(msg):
		p.selected = 0

	case p.keys.IsEnd(msg):
		if len(p.rows) > 0 {
			p.selected = len(p.rows) - 1
		}

	case p.keys.IsConfirm(msg):
		if group, ok := p.SelectedGroup(); ok {
			return p, func() tea.Msg {
				return ToggleGroupMsg{Group: group}
			}
		}
		if entry, ok := p.SelectedEntry(); ok {
			return p, func() tea.Msg {
				return ApplyProfileMsg{Index: entry.Index, Name: entry.Profile.Name}
			}
		}

	case p.keys.IsDelete(msg):
		if _, ok := p.SelectedEntry(); ok {
			p.confirming = true
		}

	case p.keys.IsSort(msg):
		return p, func() tea.Msg {
			return CycleSortMsg{}
		}

	case p.keys.IsSearch(msg):
		p.searching = true
		p.search.Focus()
		return p, textinput.Blink

	case p.keys.IsCancel(msg):
		if p.search.Value() != "" {
			p.search.Reset()
			return p, searchCmd("")
		}
	}

	return p, nil
}

// View implements tea.Model
func (p Profiles) View() string {
	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("69")).
		MarginBottom(1)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	itemStyle := lipgloss.NewStyle().
		PaddingLeft(2)

	selectedStyle := lipgloss.NewStyle().
		PaddingLeft(2).
		Foreground(lipgloss.Color("205")).
		Bold(true)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true)

	activeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("82")).
		Bold(true)

	detailStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		PaddingLeft(6)

	warnStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	var b strings.Builder
	b.WriteString(titleStyle.Render("Profiles") + "\n")

	shown := len(core.Flatten(p.view.Sections))
	info := fmt.Sprintf("Sort: %s  Showing %d of %d", p.view.Mode, shown, p.view.Total)
	b.WriteString(infoStyle.Render(info) + "\n")
	if p.searching || p.search.Value() != "" {
		b.WriteString(p.search.View() + "\n")
	}
	b.WriteString("\n")

	if len(p.rows) == 0 {
		if p.view.Total == 0 {
			b.WriteString(itemStyle.Render("No profiles yet.") + "\n\n")
			b.WriteString(infoStyle.Render("Add one with: acm profile add <name>") + "\n")
		} else {
			b.WriteString(itemStyle.Render("No profile matches the search.") + "\n")
		}
		return b.String()
	}

	start, end := p.visibleRange()
	if start > 0 {
		b.WriteString(infoStyle.Render(fmt.Sprintf("  ↑ %d more", start)) + "\n")
	}
	for i := start; i < end; i++ {
		r := p.rows[i]
		cursor := "  "
		style := itemStyle
		if i == p.selected {
			cursor = "▸ "
			style = selectedStyle
		}

		if r.header {
			marker := "▾"
			if r.section.Collapsed {
				marker = "▸"
			}
			line := fmt.Sprintf("%s%s %s (%d)", cursor, marker, r.section.Group, len(r.section.Entries))
			if r.section.Usage > 0 {
				line += fmt.Sprintf("  %d uses", r.section.Usage)
			}
			b.WriteString(style.Render(headerStyle.Render(line)) + "\n")
			continue
		}

		indent := ""
		if r.section.Group != "" {
			indent = "  "
		}
		status := ""
		if r.entry.Index == p.view.Active {
			status = activeStyle.Render(" ON")
		}
		line := fmt.Sprintf("%s%s%s%s", cursor, indent, r.entry.Profile.Name, status)
		b.WriteString(style.Render(line) + "\n")

		if i == p.selected {
			b.WriteString(detailStyle.Render(describe(&r.entry)) + "\n")
		}
	}

	if end < len(p.rows) {
		b.WriteString(infoStyle.Render(fmt.Sprintf("  ↓ %d more", len(p.rows)-end)) + "\n")
	}

	if p.confirming {
		if entry, ok := p.SelectedEntry(); ok {
			b.WriteString("\n" + warnStyle.Render(fmt.Sprintf("Delete %q? y: delete  any other key: keep", entry.Profile.Name)))
		}
	}

	return b.String()
}

// visibleRange returns the rows that fit the window, keeping the cursor
// near the middle
func (p Profiles) visibleRange() (start, end int) {
	n := max(p.height-chromeLines, minVisibleRows)
	if len(p.rows) <= n {
		return 0, len(p.rows)
	}
	start = max(p.selected-n/2, 0)
	start = min(start, len(p.rows)-n)
	return start, start + n
}

func describe(e *core.Entry) string {
	p := &e.Profile
	src := domain.NormalizeSource(p.Source)
	parts := []string{domain.SourceLabel(p.Source)}
	if endpoint := p.EndpointValue(); endpoint != "" {
		parts = append(parts, fmt.Sprintf("%s: %s", domain.EndpointLabel(src), endpoint))
	}
	if model := strings.TrimSpace(p.Model); model != "" {
		parts = append(parts, "model: "+model)
	}
	if e.Usage > 0 {
		parts = append(parts, fmt.Sprintf("%d uses this week", e.Usage))
	}
	return strings.Join(parts, "  ")
}
