package traymenu

import (
	"slices"

	"github.com/godbus/dbus/v5"
)

// LayoutNode is a node of the menu layout served over com.canonical.dbusmenu.
type LayoutNode struct {
	ID         int32
	Properties map[string]any
	Children   []*LayoutNode
}

// dbusLayout is the (ia{sv}av) structure returned by GetLayout.
type dbusLayout struct {
	ID         int32
	Properties map[string]dbus.Variant
	Children   []dbus.Variant
}

// dbusProperties is an element of the a(ia{sv}) arrays of GetGroupProperties
// and ItemsPropertiesUpdated.
type dbusProperties struct {
	ID         int32
	Properties map[string]dbus.Variant
}

// dbusRemovedProperties is an element of the a(ias) array of
// ItemsPropertiesUpdated.
type dbusRemovedProperties struct {
	ID    int32
	Names []string
}

// dbusEvent is an element of the a(isvu) array of EventGroup.
type dbusEvent struct {
	ID        int32
	EventID   string
	Data      dbus.Variant
	Timestamp uint32
}

// toDBus converts the node and recursionDepth levels of its children.
// Negative depth means no limit.
func (n *LayoutNode) toDBus(recursionDepth int32, propertyNames []string) dbusLayout {
	layout := dbusLayout{
		ID:         n.ID,
		Properties: variantProperties(n.Properties, propertyNames),
		Children:   make([]dbus.Variant, 0, len(n.Children)),
	}

	if recursionDepth == 0 {
		return layout
	}

	for _, child := range n.Children {
		layout.Children = append(layout.Children, dbus.MakeVariant(child.toDBus(recursionDepth-1, propertyNames)))
	}

	return layout
}

// variantProperties wraps props in variants. Empty propertyNames selects all
// properties.
func variantProperties(props map[string]any, propertyNames []string) map[string]dbus.Variant {
	result := make(map[string]dbus.Variant, len(props))

	for key, value := range props {
		if len(propertyNames) > 0 && !slices.Contains(propertyNames, key) {
			continue
		}
		result[key] = dbus.MakeVariant(value)
	}

	return result
}

// UpdatedProperties represents updated properties of a specific layout node.
type UpdatedProperties struct {
	// ID of the layout node.
	NodeID int32

	// Updated properties.
	Properties map[string]any
}

// RemovedProperties represents removed properties of a specific layout node.
type RemovedProperties struct {
	// ID of the layout node.
	NodeID int32

	// Removed properties.
	Properties []string
}

// layoutSnapshot is an immutable copy of the menu published by the UI
// thread and read by D-Bus method handlers.
type layoutSnapshot struct {
	revision uint32
	root     *LayoutNode
	nodes    map[int32]*LayoutNode

	// Host id of every node except the root, by layout id.
	hostIDs map[int32]int32
}

func (s *layoutSnapshot) node(id int32) (*LayoutNode, bool) {
	node, ok := s.nodes[id]
	return node, ok
}

// sameStructure reports whether both snapshots contain the same nodes with
// the same children in the same order.
func (s *layoutSnapshot) sameStructure(other *layoutSnapshot) bool {
	if len(s.nodes) != len(other.nodes) {
		return false
	}

	for id, node := range s.nodes {
		otherNode, ok := other.nodes[id]
		if !ok || len(node.Children) != len(otherNode.Children) {
			return false
		}

		for i, child := range node.Children {
			if otherNode.Children[i].ID != child.ID {
				return false
			}
		}
	}

	return true
}

// propertiesDiff returns properties of next that differ from s. Both
// snapshots must have the same structure.
func (s *layoutSnapshot) propertiesDiff(next *layoutSnapshot) ([]*UpdatedProperties, []*RemovedProperties) {
	var (
		updated []*UpdatedProperties
		removed []*RemovedProperties
	)

	for _, id := range sortedIDs(next.nodes) {
		node, prev := next.nodes[id], s.nodes[id]

		changed := make(map[string]any)
		for key, value := range node.Properties {
			if old, ok := prev.Properties[key]; !ok || old != value {
				changed[key] = value
			}
		}

		var gone []string
		for key := range prev.Properties {
			if _, ok := node.Properties[key]; !ok {
				gone = append(gone, key)
			}
		}

		if len(changed) > 0 {
			updated = append(updated, &UpdatedProperties{NodeID: id, Properties: changed})
		}

		if len(gone) > 0 {
			slices.Sort(gone)
			removed = append(removed, &RemovedProperties{NodeID: id, Properties: gone})
		}
	}

	return updated, removed
}

func sortedIDs(nodes map[int32]*LayoutNode) []int32 {
	ids := make([]int32, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
