package tui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type action int

const (
	actUp action = iota
	actDown
	actHome
	actEnd
	actConfirm
	actDelete
	actSort
	actSearch
	actRefresh
	actHelp
	actQuit
	actCancel
)

// binding lists the key names for one action. vim keys are only active in
// vim mode. Names are as reported by tea.KeyMsg.String.
type binding struct {
	keys     []string
	vim      []string
	label    string // Help label in standard mode
	vimLabel string // Help label in vim mode, when different
	help     string
}

var bindings = map[action]binding{
	actUp:      {keys: []string{"up"}, vim: []string{"k"}, label: "↑", vimLabel: "k", help: "Move up"},
	actDown:    {keys: []string{"down"}, vim: []string{"j"}, label: "↓", vimLabel: "j", help: "Move down"},
	actHome:    {keys: []string{"home"}, vim: []string{"g"}, label: "Home", vimLabel: "g", help: "Go to first item"},
	actEnd:     {keys: []string{"end"}, vim: []string{"G"}, label: "End", vimLabel: "G", help: "Go to last item"},
	actConfirm: {keys: []string{"enter", " "}, label: "Enter", vimLabel: "enter", help: "Apply profile / collapse group"},
	actDelete:  {keys: []string{"d", "delete"}, label: "Delete", vimLabel: "d", help: "Delete profile"},
	actSort:    {keys: []string{"s"}, label: "s", help: "Cycle sort (group, usage, name)"},
	actSearch:  {keys: []string{"/"}, label: "/", help: "Search"},
	actRefresh: {keys: []string{"r", "ctrl+r"}, label: "Ctrl+R", vimLabel: "r", help: "Reload"},
	actHelp:    {keys: []string{"?"}, label: "?", help: "Help"},
	actQuit:    {keys: []string{"q", "ctrl+c"}, label: "q", help: "Quit"},
	actCancel:  {keys: []string{"esc"}},
}

var (
	navigationActions = []action{actUp, actDown, actHome, actEnd}
	commandActions    = []action{actConfirm, actDelete, actSort, actSearch, actRefresh, actHelp, actQuit}
)

// KeyMap defines keybindings for the TUI
type KeyMap struct {
	mode string
}

// NewKeyMap creates a new keymap for the given mode
func NewKeyMap(mode string) *KeyMap {
	if mode == "" {
		mode = "vim"
	}
	return &KeyMap{mode: mode}
}

// Mode returns the current keybinding mode
func (k *KeyMap) Mode() string {
	return k.mode
}

func (k *KeyMap) vim() bool {
	return k.mode == "vim"
}

func (k *KeyMap) matches(a action, msg tea.KeyMsg) bool {
	b := bindings[a]
	key := msg.String()
	if slices.Contains(b.keys, key) {
		return true
	}
	return k.vim() && slices.Contains(b.vim, key)
}

// IsUp returns true if the key is an "up" navigation key
func (k *KeyMap) IsUp(msg tea.KeyMsg) bool { return k.matches(actUp, msg) }

// IsDown returns true if the key is a "down" navigation key
func (k *KeyMap) IsDown(msg tea.KeyMsg) bool { return k.matches(actDown, msg) }

// IsHome returns true if the key should go to first item
func (k *KeyMap) IsHome(msg tea.KeyMsg) bool { return k.matches(actHome, msg) }

// IsEnd returns true if the key should go to last item
func (k *KeyMap) IsEnd(msg tea.KeyMsg) bool { return k.matches(actEnd, msg) }

// IsConfirm returns true if the key applies a profile or toggles a group
func (k *KeyMap) IsConfirm(msg tea.KeyMsg) bool { return k.matches(actConfirm, msg) }

// IsCancel returns true if the key is a cancel/back key
func (k *KeyMap) IsCancel(msg tea.KeyMsg) bool { return k.matches(actCancel, msg) }

// IsQuit returns true if the key is a quit key
func (k *KeyMap) IsQuit(msg tea.KeyMsg) bool { return k.matches(actQuit, msg) }

// IsSearch returns true if the key should focus search
func (k *KeyMap) IsSearch(msg tea.KeyMsg) bool { return k.matches(actSearch, msg) }

// IsHelp returns true if the key should show help
func (k *KeyMap) IsHelp(msg tea.KeyMsg) bool { return k.matches(actHelp, msg) }

// IsDelete returns true if the key is a delete key
func (k *KeyMap) IsDelete(msg tea.KeyMsg) bool { return k.matches(actDelete, msg) }

// IsSort returns true if the key cycles the list order
func (k *KeyMap) IsSort(msg tea.KeyMsg) bool { return k.matches(actSort, msg) }

// IsRefresh returns true if the key reloads the list
func (k *KeyMap) IsRefresh(msg tea.KeyMsg) bool { return k.matches(actRefresh, msg) }

func (k *KeyMap) label(a action) string {
	b := bindings[a]
	if k.vim() && b.vimLabel != "" {
		return b.vimLabel
	}
	return b.label
}

// NavigationHelp returns the one-line footer hint
func (k *KeyMap) NavigationHelp() string {
	nav := k.label(actUp) + "/" + k.label(actDown)
	if k.vim() {
		nav = k.label(actDown) + "/" + k.label(actUp)
	}
	return fmt.Sprintf("%s: navigate  %s: apply  %s: sort  %s: search",
		nav, strings.ToLower(k.label(actConfirm)), k.label(actSort), k.label(actSearch))
}

// FullHelp returns complete help text
func (k *KeyMap) FullHelp() string {
	var b strings.Builder
	section := func(title string, actions []action) {
		b.WriteString(title + ":\n")
		for _, a := range actions {
			fmt.Fprintf(&b, "  %-7s %s\n", k.label(a), bindings[a].help)
		}
	}
	section("Navigation", navigationActions)
	b.WriteString("\n")
	section("Actions", commandActions)
	return strings.TrimRight(b.String(), "\n")
}
