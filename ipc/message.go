// Package ipc implements a line-delimited JSON protocol for driving a tray
// from another process.
//
// The controlling process writes one [Command] per line to the tray's input
// and reads one [Event] per line from its output.
package ipc

type CommandType string

const (
	ShowTray          CommandType = "show-tray"
	HideTray          CommandType = "hide-tray"
	UpsertItem        CommandType = "upsert-item"
	UpsertSeparator   CommandType = "upsert-separator"
	UpsertSubmenu     CommandType = "upsert-submenu"
	UpsertSubmenuItem CommandType = "upsert-submenu-item"
	Quit              CommandType = "quit"
)

// Command is a request from the controlling process.
//
// ID is required by upsert commands. A missing ParentID refers to the root
// menu. Icon is base64 encoded on the wire.
type Command struct {
	Type      CommandType `json:"type"`
	ID        *int32      `json:"id,omitempty"`
	ParentID  *int32      `json:"parentId,omitempty"`
	Title     string      `json:"title,omitempty"`
	Tooltip   string      `json:"tooltip,omitempty"`
	Icon      []byte      `json:"icon,omitempty"`
	Disabled  bool        `json:"disabled,omitempty"`
	Checkable bool        `json:"checkable,omitempty"`
	Checked   bool        `json:"checked,omitempty"`
}

type EventType string

const (
	Ready            EventType = "ready"
	MenuItemSelected EventType = "menu-item-selected"
	MenuOpened       EventType = "menu-opened"
	Error            EventType = "error"
)

// Event is a notification for the controlling process.
type Event struct {
	Type  EventType `json:"type"`
	ID    *int32    `json:"id,omitempty"`
	Error string    `json:"error,omitempty"`
}
