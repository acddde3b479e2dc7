package traymenu

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	MenuInterface = "com.canonical.dbusmenu"
	MenuPath      = "/MenuBar"
)

// menuEventKind is the kind of an event a tray host reports for the menu.
type menuEventKind int

const (
	menuEventClicked menuEventKind = iota
	menuEventAboutToShow
	menuEventOpened
	menuEventClosed
)

type menuEvent struct {
	kind   menuEventKind
	hostID int32
}

// dbusMenu implements the com.canonical.dbusmenu interface.
//
// Entries are mutated on the UI thread, which publishes a snapshot on every
// redraw. Exported methods run on D-Bus goroutines and only read snapshots.
type dbusMenu struct {
	root     *menuEntry
	nextID   int32
	snapshot atomic.Pointer[layoutSnapshot]
	events   chan menuEvent
	done     <-chan struct{}
	emit     func(member string, values ...any) error
	logger   *zap.Logger
}

func newDBusMenu(emit func(string, ...any) error, done <-chan struct{}, logger *zap.Logger) *dbusMenu {
	m := &dbusMenu{
		events: make(chan menuEvent, 64),
		done:   done,
		emit:   emit,
		logger: logger,
	}

	m.root = &menuEntry{menu: m, id: 0, kind: KindSubmenu}
	m.snapshot.Store(m.build(0))

	return m
}

// build copies the current entries into a snapshot.
func (m *dbusMenu) build(revision uint32) *layoutSnapshot {
	s := &layoutSnapshot{
		revision: revision,
		nodes:    make(map[int32]*LayoutNode),
		hostIDs:  make(map[int32]int32),
	}
	s.root = m.root.layout(s)
	return s
}

// redraw publishes the current entries and tells tray hosts what changed.
func (m *dbusMenu) redraw() {
	prev := m.snapshot.Load()
	next := m.build(prev.revision)

	if !prev.sameStructure(next) {
		next.revision++
		m.snapshot.Store(next)

		if err := m.emit("LayoutUpdated", next.revision, int32(0)); err != nil {
			m.logger.Warn("failed to emit LayoutUpdated", zap.Error(err))
		}
		return
	}

	updated, removed := prev.propertiesDiff(next)
	m.snapshot.Store(next)

	if len(updated) == 0 && len(removed) == 0 {
		return
	}

	updatedArg := make([]dbusProperties, 0, len(updated))
	for _, up := range updated {
		updatedArg = append(updatedArg, dbusProperties{
			ID:         up.NodeID,
			Properties: variantProperties(up.Properties, nil),
		})
	}

	removedArg := make([]dbusRemovedProperties, 0, len(removed))
	for _, rp := range removed {
		removedArg = append(removedArg, dbusRemovedProperties{
			ID:    rp.NodeID,
			Names: rp.Properties,
		})
	}

	if err := m.emit("ItemsPropertiesUpdated", updatedArg, removedArg); err != nil {
		m.logger.Warn("failed to emit ItemsPropertiesUpdated", zap.Error(err))
	}
}

// send hands an event to the UI thread. It gives up when the loop has ended.
func (m *dbusMenu) send(ev menuEvent) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

// GetLayout provides the layout and properties of the node with id parentID
// and recursionDepth levels of its children (-1 for all of them).
func (m *dbusMenu) GetLayout(parentID int32, recursionDepth int32, propertyNames []string) (uint32, dbusLayout, *dbus.Error) {
	s := m.snapshot.Load()

	node, ok := s.node(parentID)
	if !ok {
		return 0, dbusLayout{}, unknownMenuID(parentID)
	}

	return s.revision, node.toDBus(recursionDepth, propertyNames), nil
}

// GetGroupProperties returns properties of several nodes at once. Empty ids
// selects every node.
func (m *dbusMenu) GetGroupProperties(ids []int32, propertyNames []string) ([]dbusProperties, *dbus.Error) {
	s := m.snapshot.Load()

	if len(ids) == 0 {
		ids = sortedIDs(s.nodes)
	}

	result := make([]dbusProperties, 0, len(ids))
	for _, id := range ids {
		node, ok := s.node(id)
		if !ok {
			continue
		}

		result = append(result, dbusProperties{
			ID:         id,
			Properties: variantProperties(node.Properties, propertyNames),
		})
	}

	return result, nil
}

// GetProperty returns a single property of a node.
func (m *dbusMenu) GetProperty(id int32, name string) (dbus.Variant, *dbus.Error) {
	node, ok := m.snapshot.Load().node(id)
	if !ok {
		return dbus.Variant{}, unknownMenuID(id)
	}

	value, ok := node.Properties[name]
	if !ok {
		return dbus.Variant{}, dbus.NewError("org.freedesktop.DBus.Error.InvalidArgs", []any{
			fmt.Sprintf("menu node %d has no property %q", id, name),
		})
	}

	return dbus.MakeVariant(value), nil
}

// Event is called by tray hosts when something happens to a node.
//
// Handled events are "clicked", and "opened" and "closed" of the root node.
// Others, such as "hovered", are accepted and ignored.
func (m *dbusMenu) Event(id int32, eventID string, data dbus.Variant, timestamp uint32) *dbus.Error {
	return m.handleEvent(id, eventID)
}

// EventGroup delivers several events at once and returns ids it could not
// find.
func (m *dbusMenu) EventGroup(events []dbusEvent) ([]int32, *dbus.Error) {
	idErrors := []int32{}

	for _, ev := range events {
		if err := m.handleEvent(ev.ID, ev.EventID); err != nil {
			idErrors = append(idErrors, ev.ID)
		}
	}

	if len(events) > 0 && len(idErrors) == len(events) {
		return idErrors, dbus.NewError("org.freedesktop.DBus.Error.InvalidArgs", []any{"no valid menu ids"})
	}

	return idErrors, nil
}

// AboutToShow is called by tray hosts before showing the node. The layout is
// always current, so no update is ever needed.
func (m *dbusMenu) AboutToShow(id int32) (bool, *dbus.Error) {
	if _, ok := m.snapshot.Load().node(id); !ok {
		return false, unknownMenuID(id)
	}

	if id == 0 {
		m.send(menuEvent{kind: menuEventAboutToShow})
	}

	return false, nil
}

// AboutToShowGroup is the batched form of AboutToShow.
func (m *dbusMenu) AboutToShowGroup(ids []int32) ([]int32, []int32, *dbus.Error) {
	s := m.snapshot.Load()
	idErrors := []int32{}

	for _, id := range ids {
		if _, ok := s.node(id); !ok {
			idErrors = append(idErrors, id)
			continue
		}

		if id == 0 {
			m.send(menuEvent{kind: menuEventAboutToShow})
		}
	}

	return []int32{}, idErrors, nil
}

func (m *dbusMenu) handleEvent(id int32, eventID string) *dbus.Error {
	s := m.snapshot.Load()

	if _, ok := s.node(id); !ok {
		return unknownMenuID(id)
	}

	switch eventID {
	case "clicked":
		hostID, ok := s.hostIDs[id]
		if !ok {
			return nil
		}
		m.send(menuEvent{kind: menuEventClicked, hostID: hostID})
	case "opened":
		if id == 0 {
			m.send(menuEvent{kind: menuEventOpened})
		}
	case "closed":
		if id == 0 {
			m.send(menuEvent{kind: menuEventClosed})
		}
	}

	return nil
}

func unknownMenuID(id int32) *dbus.Error {
	return dbus.NewError("org.freedesktop.DBus.Error.InvalidArgs", []any{
		fmt.Sprintf("unknown menu id %d", id),
	})
}

// menuEntry is a menu node of the D-Bus platform. It implements both
// [Container] and [Widget].
type menuEntry struct {
	menu     *dbusMenu
	id       int32
	hostID   int32
	kind     Kind
	attrs    Attrs
	children []*menuEntry
}

func (e *menuEntry) AddItem(id int32, attrs Attrs) (Widget, error) {
	return e.add(id, KindItem, attrs), nil
}

func (e *menuEntry) AddSeparator(id int32) (Widget, error) {
	return e.add(id, KindSeparator, Attrs{}), nil
}

func (e *menuEntry) AddSubmenu(id int32, attrs Attrs) (Widget, Container, error) {
	entry := e.add(id, KindSubmenu, attrs)
	return entry, entry, nil
}

func (e *menuEntry) add(hostID int32, kind Kind, attrs Attrs) *menuEntry {
	e.menu.nextID++

	child := &menuEntry{
		menu:   e.menu,
		id:     e.menu.nextID,
		hostID: hostID,
		kind:   kind,
		attrs:  attrs,
	}
	e.children = append(e.children, child)

	return child
}

func (e *menuEntry) Update(attrs Attrs) error {
	attrs.Checked = e.attrs.Checked
	e.attrs = attrs
	return nil
}

func (e *menuEntry) SetChecked(checked bool) error {
	e.attrs.Checked = checked
	return nil
}

func (e *menuEntry) layout(s *layoutSnapshot) *LayoutNode {
	node := &LayoutNode{
		ID:         e.id,
		Properties: e.properties(),
		Children:   make([]*LayoutNode, 0, len(e.children)),
	}

	s.nodes[e.id] = node
	if e.id != 0 {
		s.hostIDs[e.id] = e.hostID
	}

	for _, child := range e.children {
		node.Children = append(node.Children, child.layout(s))
	}

	return node
}

// properties returns the dbusmenu properties of the entry. Properties equal
// to their protocol default are left out, except "enabled" and "visible".
func (e *menuEntry) properties() map[string]any {
	if e.id == 0 {
		return map[string]any{"children-display": "submenu"}
	}

	if e.kind == KindSeparator {
		return map[string]any{
			"type":    "separator",
			"visible": true,
		}
	}

	props := map[string]any{
		"label":   escapeLabel(e.attrs.Title),
		"enabled": !e.attrs.Disabled,
		"visible": true,
	}

	if e.attrs.Tooltip != "" {
		props["accessible-desc"] = e.attrs.Tooltip
	}

	switch {
	case e.kind == KindSubmenu:
		props["children-display"] = "submenu"
	case e.attrs.Checkable || e.attrs.Checked:
		props["toggle-type"] = "checkmark"
		props["toggle-state"] = int32(0)
		if e.attrs.Checked {
			props["toggle-state"] = int32(1)
		}
	}

	return props
}

// escapeLabel escapes underscores, which dbusmenu treats as mnemonic
// markers.
func escapeLabel(title string) string {
	return strings.ReplaceAll(title, "_", "__")
}
