package traymenu

import (
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	"go.uber.org/zap"
)

const (
	StatusNotifierItemInterface = "org.kde.StatusNotifierItem"
	StatusNotifierItemPath      = "/StatusNotifierItem"
)

type ItemCategory string

// StatusNotifierItem categories.
const (
	// The item describes the status of a generic application, for instance the
	// current state of a media player.
	ItemCategoryApplicationStatus ItemCategory = "ApplicationStatus"

	// The item describes the status of communication oriented applications, like
	// an instant messenger or an email client.
	ItemCategoryCommunications ItemCategory = "Communications"

	// The item describes services of the system not seen as a stand alone
	// application by the user, such as an indicator for the activity of a disk
	// indexing service.
	ItemCategorySystemServices ItemCategory = "SystemServices"

	// The item describes the state and control of a particular hardware, such as
	// an indicator of the battery charge or sound card volume control.
	ItemCategoryHardware ItemCategory = "Hardware"
)

type ItemStatus string

// StatusNotifierItem statuses.
const (
	// The item doesn't convey important information to the user, it can be
	// considered an "idle" status and is likely that visualizations will choose
	// to hide it.
	ItemStatusPassive ItemStatus = "Passive"

	// The item is active, is more important that the item will be shown in some
	// way to the user.
	ItemStatusActive ItemStatus = "Active"
)

// dbusPixmap is the (iiay) structure of icon pixmap properties.
type dbusPixmap struct {
	Width  int32
	Height int32
	Bytes  []byte
}

// dbusTooltip is the (sa(iiay)ss) structure of the ToolTip property: icon
// name, icon pixmaps, title and description.
type dbusTooltip struct {
	IconName    string
	IconPixmap  []dbusPixmap
	Title       string
	Description string
}

// statusNotifierItem implements the org.kde.StatusNotifierItem interface.
//
// Tray hosts read its properties and call its methods on D-Bus goroutines.
// The UI thread changes properties through setIcon and setStatus.
type statusNotifierItem struct {
	conn   *dbus.Conn
	props  *prop.Properties
	logger *zap.Logger
}

// itemProperties returns initial properties of a hidden item.
func itemProperties(id string, category ItemCategory) map[string]*prop.Prop {
	constant := func(value any) *prop.Prop {
		return &prop.Prop{Value: value, Writable: false, Emit: prop.EmitConst}
	}
	variable := func(value any) *prop.Prop {
		return &prop.Prop{Value: value, Writable: false, Emit: prop.EmitTrue}
	}

	return map[string]*prop.Prop{
		"Category":            constant(string(category)),
		"Id":                  constant(id),
		"WindowId":            constant(uint32(0)),
		"ItemIsMenu":          constant(true),
		"Menu":                constant(dbus.ObjectPath(MenuPath)),
		"Title":               variable(""),
		"Status":              variable(string(ItemStatusPassive)),
		"IconName":            variable(""),
		"IconThemePath":       variable(""),
		"IconPixmap":          variable([]dbusPixmap{}),
		"OverlayIconName":     constant(""),
		"OverlayIconPixmap":   constant([]dbusPixmap{}),
		"AttentionIconName":   constant(""),
		"AttentionIconPixmap": constant([]dbusPixmap{}),
		"AttentionMovieName":  constant(""),
		"ToolTip":             variable(dbusTooltip{IconPixmap: []dbusPixmap{}}),
	}
}

// setIcon installs icon together with title and tooltip and makes the item
// active.
func (item *statusNotifierItem) setIcon(icon *LoadedIcon, title, tooltip string) {
	pixmaps := []dbusPixmap{}
	iconName, themePath := "", ""

	switch {
	case icon.Pixmap != nil:
		pixmaps = append(pixmaps, dbusPixmap{
			Width:  icon.Pixmap.Width,
			Height: icon.Pixmap.Height,
			Bytes:  icon.Pixmap.Bytes,
		})
	case icon.Path != "":
		themePath, iconName = iconThemeName(icon.Path)
	}

	item.props.SetMust(StatusNotifierItemInterface, "IconThemePath", themePath)
	item.props.SetMust(StatusNotifierItemInterface, "IconName", iconName)
	item.props.SetMust(StatusNotifierItemInterface, "IconPixmap", pixmaps)
	item.props.SetMust(StatusNotifierItemInterface, "Title", title)
	item.props.SetMust(StatusNotifierItemInterface, "ToolTip", dbusTooltip{
		IconPixmap: []dbusPixmap{},
		Title:      tooltip,
	})

	item.signal("NewIcon")
	item.signal("NewTitle")
	item.signal("NewToolTip")
	item.setStatus(ItemStatusActive)
}

func (item *statusNotifierItem) setStatus(status ItemStatus) {
	item.props.SetMust(StatusNotifierItemInterface, "Status", string(status))
	item.signal("NewStatus", string(status))
}

func (item *statusNotifierItem) signal(member string, values ...any) {
	err := item.conn.Emit(StatusNotifierItemPath, StatusNotifierItemInterface+"."+member, values...)
	if err != nil {
		item.logger.Warn("failed to emit signal", zap.String("signal", member), zap.Error(err))
	}
}

// ContextMenu is called by tray hosts on right click. The menu is exported
// with ItemIsMenu set, so hosts show it themselves.
func (item *statusNotifierItem) ContextMenu(x, y int32) *dbus.Error {
	item.logger.Debug("context menu requested", zap.Int32("x", x), zap.Int32("y", y))
	return nil
}

// Activate is called by tray hosts on left click.
func (item *statusNotifierItem) Activate(x, y int32) *dbus.Error {
	item.logger.Debug("activation requested", zap.Int32("x", x), zap.Int32("y", y))
	return nil
}

// SecondaryActivate is called by tray hosts on middle click.
func (item *statusNotifierItem) SecondaryActivate(x, y int32) *dbus.Error {
	return nil
}

// Scroll is called by tray hosts on mouse wheel events over the icon.
func (item *statusNotifierItem) Scroll(delta int32, orientation string) *dbus.Error {
	return nil
}
