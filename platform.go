package traymenu

import "errors"

// ErrNotSupported is returned by platforms for operations their native tray
// API cannot express.
var ErrNotSupported = errors.New("not supported")

// Platform is the native tray and menu implementation.
//
// Except for Wake and Quit, methods of Platform and of the [Container] and
// [Widget] values it hands out are only called on the UI thread.
type Platform interface {
	// Loop performs one-time native setup, calls ready once on the UI thread
	// with the root menu container, and then blocks running the native event
	// loop until Quit is called.
	//
	// While running, the loop calls drain on the UI thread after every Wake
	// and delivers native events to sink on the UI thread.
	Loop(ready func(root Container), drain func(), sink EventSink) error

	// Wake asks the loop to call drain soon. It never blocks and may be called
	// from any goroutine, before or after Loop starts.
	Wake()

	// Quit ends the loop. It may be called from any goroutine.
	Quit()

	// IconLoader returns the icon loading strategy the platform requires.
	IconLoader() IconLoader

	// SetIcon installs icon as the tray icon and makes it visible.
	SetIcon(icon *LoadedIcon, title, tooltip string) error

	// HideIcon makes the tray icon invisible. The icon may be shown again
	// with SetIcon.
	HideIcon() error

	// Redraw makes all menu changes made since the previous Redraw visible.
	Redraw()
}

// Container is a native menu that entries can be appended to.
type Container interface {
	AddItem(id int32, attrs Attrs) (Widget, error)
	AddSeparator(id int32) (Widget, error)
	AddSubmenu(id int32, attrs Attrs) (Widget, Container, error)
}

// Widget is a native menu entry.
type Widget interface {
	// Update applies title, tooltip and enabled state. The Checked field of
	// attrs is ignored.
	Update(attrs Attrs) error

	// SetChecked changes the check mark. Native toolkits may report it as an
	// activation of the entry.
	SetChecked(checked bool) error
}

// EventSink receives native events on the UI thread.
type EventSink interface {
	// ItemActivated reports activation of the entry created with id.
	ItemActivated(id int32)

	// MenuOpened reports that the tray menu is about to be shown.
	MenuOpened()
}
