package traymenu

// Host is the controller driving the tray.
//
// Callbacks run on the UI thread and must not block. They may call any
// [Tray] method; commands issued from a callback run after the callback
// returns.
type Host interface {
	// OnReady is called once, after the native tray has been set up. Commands
	// posted before OnReady are applied right after it returns.
	OnReady()

	// OnMenuItemSelected is called when the user activates the menu item with
	// the given id.
	OnMenuItemSelected(id int32)

	// OnMenuOpened is called before the tray menu is shown.
	OnMenuOpened()
}

// HostFuncs adapts plain functions to [Host]. Nil functions are skipped.
type HostFuncs struct {
	Ready        func()
	ItemSelected func(id int32)
	MenuOpened   func()
}

func (h HostFuncs) OnReady() {
	if h.Ready != nil {
		h.Ready()
	}
}

func (h HostFuncs) OnMenuItemSelected(id int32) {
	if h.ItemSelected != nil {
		h.ItemSelected(id)
	}
}

func (h HostFuncs) OnMenuOpened() {
	if h.MenuOpened != nil {
		h.MenuOpened()
	}
}
