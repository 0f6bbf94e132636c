package tui_test

import (
	"testing"

	"acm/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeyMap_VimMode(t *testing.T) {
	km := tui.NewKeyMap("vim")

	assert.True(t, km.IsUp(runes("k")))
	assert.True(t, km.IsDown(runes("j")))
	assert.True(t, km.IsHome(runes("g")))
	assert.True(t, km.IsEnd(runes("G")))
	assert.True(t, km.IsConfirm(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.True(t, km.IsCancel(tea.KeyMsg{Type: tea.KeyEsc}))
	assert.True(t, km.IsQuit(runes("q")))
	assert.True(t, km.IsSort(runes("s")))
	assert.True(t, km.IsRefresh(runes("r")))
}

func TestKeyMap_StandardMode(t *testing.T) {
	km := tui.NewKeyMap("standard")

	// Standard mode should still support arrow keys
	assert.True(t, km.IsUp(tea.KeyMsg{Type: tea.KeyUp}))
	assert.True(t, km.IsDown(tea.KeyMsg{Type: tea.KeyDown}))
	assert.True(t, km.IsHome(tea.KeyMsg{Type: tea.KeyHome}))

	// But not vim keys for navigation
	assert.False(t, km.IsUp(runes("k")))
	assert.False(t, km.IsDown(runes("j")))
	assert.False(t, km.IsEnd(runes("G")))
}

func TestKeyMap_ArrowKeysWorkInBothModes(t *testing.T) {
	vimKm := tui.NewKeyMap("vim")
	stdKm := tui.NewKeyMap("standard")

	upKey := tea.KeyMsg{Type: tea.KeyUp}
	downKey := tea.KeyMsg{Type: tea.KeyDown}

	assert.True(t, vimKm.IsUp(upKey))
	assert.True(t, stdKm.IsUp(upKey))
	assert.True(t, vimKm.IsDown(downKey))
	assert.True(t, stdKm.IsDown(downKey))
}

func TestKeyMap_Help(t *testing.T) {
	vimKm := tui.NewKeyMap("vim")
	stdKm := tui.NewKeyMap("standard")

	assert.Contains(t, vimKm.NavigationHelp(), "j/k")
	assert.Contains(t, stdKm.NavigationHelp(), "↑/↓")
	assert.Contains(t, vimKm.FullHelp(), "Cycle sort")
	assert.Contains(t, stdKm.FullHelp(), "Ctrl+R")
}

func TestKeyMap_DefaultsToVim(t *testing.T) {
	km := tui.NewKeyMap("")

	assert.Equal(t, "vim", km.Mode())
	assert.True(t, km.IsUp(runes("k")))
}

func TestKeyMap_ActionKeys(t *testing.T) {
	km := tui.NewKeyMap("standard")

	assert.True(t, km.IsConfirm(tea.KeyMsg{Type: tea.KeySpace}))
	assert.True(t, km.IsDelete(tea.KeyMsg{Type: tea.KeyDelete}))
	assert.True(t, km.IsDelete(runes("d")))
	assert.True(t, km.IsRefresh(tea.KeyMsg{Type: tea.KeyCtrlR}))
	assert.True(t, km.IsQuit(tea.KeyMsg{Type: tea.KeyCtrlC}))
	assert.True(t, km.IsSearch(runes("/")))
	assert.True(t, km.IsHelp(runes("?")))
	assert.False(t, km.IsSort(runes("S")))
}

func TestKeyMap_FullHelpFollowsMode(t *testing.T) {
	vim := tui.NewKeyMap("vim").FullHelp()
	std := tui.NewKeyMap("standard").FullHelp()

	assert.Contains(t, vim, "k       Move up")
	assert.Contains(t, std, "↑       Move up")
	assert.NotContains(t, std, "Move up\n  k")
	assert.Contains(t, std, "Delete  Delete profile")
}
