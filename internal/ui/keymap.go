// internal/ui/keymap.go
package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keys of the confirmation prompt.
type KeyMap struct {
	Yes  key.Binding
	No   key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Yes: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "yes"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N", "enter"),
			key.WithHelp("n/enter", "no"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c", "q"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// Help renders the bindings as "y yes · n/enter no".
func (k KeyMap) Help() string {
	return k.Yes.Help().Key + " " + k.Yes.Help().Desc + " · " + k.No.Help().Key + " " + k.No.Help().Desc
}
