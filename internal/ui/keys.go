package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NextTab   key.Binding
	PrevTab   key.Binding
	AutoFill  key.Binding
	SmartNav  key.Binding
	Edit      key.Binding
	Test      key.Binding
	Quick     key.Binding
	Tutorial  key.Binding
	Addresses key.Binding
	DelayUp   key.Binding
	DelayDown key.Binding
	Payment   key.Binding
	Refresh   key.Binding
	Quit      key.Binding
	NextField key.Binding
	PrevField key.Binding
	Save      key.Binding
	Close     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		NextTab:   key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next tab")),
		PrevTab:   key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("shift+tab", "prev tab")),
		AutoFill:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "auto-fill")),
		SmartNav:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "smart nav")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit profile")),
		Test:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "test fill")),
		Quick:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "quick fill")),
		Tutorial:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "tutorial")),
		Addresses: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "addresses")),
		DelayUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "delay")),
		DelayDown: key.NewBinding(key.WithKeys("-", "_")),
		Payment:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "payment")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		NextField: key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		PrevField: key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		Save:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Close:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}
