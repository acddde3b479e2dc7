package traymenu

import "fmt"

// RootID is the default id of the root menu.
const RootID int32 = -1

// Kind is the kind of a menu node. It never changes after the node is
// created.
type Kind int

const (
	KindItem Kind = iota
	KindSeparator
	KindSubmenu
	KindSubmenuItem
)

func (k Kind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindSeparator:
		return "separator"
	case KindSubmenu:
		return "submenu"
	case KindSubmenuItem:
		return "submenu-item"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// selectable reports whether activation of a node of this kind is forwarded
// to the host.
func (k Kind) selectable() bool {
	return k == KindItem || k == KindSubmenuItem
}

// Attrs are the display attributes of a menu node.
type Attrs struct {
	Title     string
	Tooltip   string
	Disabled  bool
	Checkable bool
	Checked   bool
}

// MenuNode is an addressable entry of the tray menu.
type MenuNode struct {
	ID       int32
	ParentID int32
	Kind     Kind
	Attrs
}

// TrayIconState is the state of the tray icon.
type TrayIconState struct {
	Visible bool

	// Encoded image currently installed, nil until the first successful show.
	Icon []byte
}
