package traymenu

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrUnresolvedParent is reported when an upsert names a parent that is
	// neither the root nor an existing submenu.
	ErrUnresolvedParent = errors.New("unresolved parent")

	// ErrKindMismatch is reported when an upsert reuses an id with a
	// different kind.
	ErrKindMismatch = errors.New("kind mismatch")

	// ErrReservedID is reported when an upsert uses the root id.
	ErrReservedID = errors.New("reserved id")
)

type treeNode struct {
	MenuNode
	widget Widget
}

// menuTree maps host ids to native menu objects. It is owned by the UI
// thread.
type menuTree struct {
	rootID     int32
	nodes      map[int32]*treeNode
	containers map[int32]Container
	redraw     func()
	suppressed func(fn func() error) error
	logger     *zap.Logger
}

func newMenuTree(rootID int32, logger *zap.Logger) *menuTree {
	return &menuTree{
		rootID:     rootID,
		nodes:      make(map[int32]*treeNode),
		containers: make(map[int32]Container),
		redraw:     func() {},
		suppressed: func(fn func() error) error { return fn() },
		logger:     logger,
	}
}

// attach registers the native root menu.
func (t *menuTree) attach(root Container) {
	t.containers[t.rootID] = root
}

func (t *menuTree) kindOf(id int32) (Kind, bool) {
	node, ok := t.nodes[id]
	if !ok {
		return 0, false
	}
	return node.Kind, true
}

// node returns a copy of the node with the given id.
func (t *menuTree) node(id int32) (MenuNode, bool) {
	node, ok := t.nodes[id]
	if !ok {
		return MenuNode{}, false
	}
	return node.MenuNode, true
}

// upsert creates the node if its id is unknown and updates its display
// attributes otherwise.
func (t *menuTree) upsert(n MenuNode) error {
	if n.ID == t.rootID {
		return fmt.Errorf("upsert %s %d: %w", n.Kind, n.ID, ErrReservedID)
	}

	var err error
	if existing, ok := t.nodes[n.ID]; ok {
		err = t.update(existing, n)
	} else {
		err = t.create(n)
	}
	if err != nil {
		return err
	}

	t.redraw()
	return nil
}

func (t *menuTree) create(n MenuNode) error {
	parent, ok := t.containers[n.ParentID]
	if !ok {
		return fmt.Errorf("upsert %s %d: parent %d: %w", n.Kind, n.ID, n.ParentID, ErrUnresolvedParent)
	}

	var (
		widget    Widget
		container Container
	)

	add := func() (err error) {
		switch n.Kind {
		case KindItem, KindSubmenuItem:
			widget, err = parent.AddItem(n.ID, n.Attrs)
		case KindSeparator:
			widget, err = parent.AddSeparator(n.ID)
		case KindSubmenu:
			widget, container, err = parent.AddSubmenu(n.ID, n.Attrs)
		default:
			err = fmt.Errorf("unknown kind %d", int(n.Kind))
		}
		return err
	}

	// Creating an entry that starts checked may fire an activation as well.
	var err error
	if n.Checked {
		err = t.suppressed(add)
	} else {
		err = add()
	}
	if err != nil {
		return fmt.Errorf("upsert %s %d: %w", n.Kind, n.ID, err)
	}

	t.nodes[n.ID] = &treeNode{MenuNode: n, widget: widget}
	if container != nil {
		t.containers[n.ID] = container
	}

	t.logger.Debug("created menu node",
		zap.Int32("id", n.ID),
		zap.Int32("parent", n.ParentID),
		zap.Stringer("kind", n.Kind),
	)

	return nil
}

func (t *menuTree) update(node *treeNode, n MenuNode) error {
	if node.Kind != n.Kind {
		return fmt.Errorf("upsert %s %d: node is a %s: %w", n.Kind, n.ID, node.Kind, ErrKindMismatch)
	}

	if node.ParentID != n.ParentID {
		t.logger.Warn("ignoring new parent of existing menu node",
			zap.Int32("id", n.ID),
			zap.Int32("parent", node.ParentID),
			zap.Int32("requested", n.ParentID),
		)
	}

	if n.Kind == KindSeparator {
		return nil
	}

	if err := node.widget.Update(n.Attrs); err != nil {
		return fmt.Errorf("upsert %s %d: %w", n.Kind, n.ID, err)
	}

	checked := node.Checked
	node.Title = n.Title
	node.Tooltip = n.Tooltip
	node.Disabled = n.Disabled
	node.Checkable = n.Checkable

	if n.Checked != checked {
		if err := t.suppressed(func() error {
			return node.widget.SetChecked(n.Checked)
		}); err != nil {
			return fmt.Errorf("upsert %s %d: set checked: %w", n.Kind, n.ID, err)
		}
		node.Checked = n.Checked
	}

	return nil
}
