package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit           key.Binding
	reload         key.Binding
	toggleHelp     key.Binding
	cancel         key.Binding
	moveLeft       key.Binding
	moveRight      key.Binding
	moveUp         key.Binding
	moveDown       key.Binding
	pickUp         key.Binding
	linkMode       key.Binding
	click          key.Binding
	moveTaskLeft   key.Binding
	moveTaskRight  key.Binding
	filterPriority key.Binding
	filterProject  key.Binding
	filterAssignee key.Binding
	resetFilters   key.Binding
	yankID         key.Binding
	deleteTask     key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:           key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:         key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		cancel:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		moveLeft:       key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:      key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:         key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "task up")),
		moveDown:       key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "task down")),
		pickUp:         key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "pick up / drop")),
		linkMode:       key.NewBinding(key.WithKeys("L", "shift+l"), key.WithHelp("L", "link mode")),
		click:          key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select / details")),
		moveTaskLeft:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move task left")),
		moveTaskRight:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move task right")),
		filterPriority: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "priority filter")),
		filterProject:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "project filter")),
		filterAssignee: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "assignee filter")),
		resetFilters:   key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset filters")),
		yankID:         key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy task id")),
		deleteTask:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete task")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.pickUp, k.linkMode, k.click, k.moveTaskLeft, k.moveTaskRight, k.filterPriority, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.moveTaskLeft, k.moveTaskRight},
		{k.pickUp, k.linkMode, k.click, k.cancel, k.yankID, k.deleteTask},
		{k.filterPriority, k.filterProject, k.filterAssignee, k.resetFilters, k.reload, k.toggleHelp, k.quit},
	}
}
