package traymenu

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type emitted struct {
	member string
	values []any
}

type testMenu struct {
	*dbusMenu
	signals []emitted
	done    chan struct{}
}

func newTestMenu() *testMenu {
	tm := &testMenu{done: make(chan struct{})}
	tm.dbusMenu = newDBusMenu(func(member string, values ...any) error {
		tm.signals = append(tm.signals, emitted{member: member, values: values})
		return nil
	}, tm.done, zap.NewNop())
	return tm
}

func (tm *testMenu) lastSignal(t *testing.T) emitted {
	t.Helper()
	require.NotEmpty(t, tm.signals)
	return tm.signals[len(tm.signals)-1]
}

// buildSample creates
//
//	root
//	├── 1: Open (host 100)
//	├── 2: separator (host 101)
//	└── 3: More (host 102)
//	    └── 4: Check_me (host 103)
func buildSample(t *testing.T, tm *testMenu) (item, submenuItem Widget) {
	t.Helper()

	item, err := tm.root.AddItem(100, Attrs{Title: "Open", Tooltip: "Open it"})
	require.NoError(t, err)

	_, err = tm.root.AddSeparator(101)
	require.NoError(t, err)

	_, submenu, err := tm.root.AddSubmenu(102, Attrs{Title: "More"})
	require.NoError(t, err)

	submenuItem, err = submenu.AddItem(103, Attrs{Title: "Check_me", Checkable: true})
	require.NoError(t, err)

	tm.redraw()
	return item, submenuItem
}

func TestMenuRedrawPublishesLayout(t *testing.T) {
	tm := newTestMenu()
	buildSample(t, tm)

	sig := tm.lastSignal(t)
	assert.Equal(t, "LayoutUpdated", sig.member)
	assert.Equal(t, []any{uint32(1), int32(0)}, sig.values)

	revision, layout, dbusErr := tm.GetLayout(0, -1, nil)
	require.Nil(t, dbusErr)
	assert.Equal(t, uint32(1), revision)
	assert.Equal(t, int32(0), layout.ID)
	require.Len(t, layout.Children, 3)

	open := layout.Children[0].Value().(dbusLayout)
	assert.Equal(t, int32(1), open.ID)
	assert.Equal(t, "Open", open.Properties["label"].Value())
	assert.Equal(t, true, open.Properties["enabled"].Value())
	assert.Equal(t, "Open it", open.Properties["accessible-desc"].Value())
	assert.NotContains(t, open.Properties, "toggle-type")

	separator := layout.Children[1].Value().(dbusLayout)
	assert.Equal(t, "separator", separator.Properties["type"].Value())

	more := layout.Children[2].Value().(dbusLayout)
	assert.Equal(t, "submenu", more.Properties["children-display"].Value())
	require.Len(t, more.Children, 1)

	check := more.Children[0].Value().(dbusLayout)
	assert.Equal(t, int32(4), check.ID)
	assert.Equal(t, "Check__me", check.Properties["label"].Value())
	assert.Equal(t, "checkmark", check.Properties["toggle-type"].Value())
	assert.Equal(t, int32(0), check.Properties["toggle-state"].Value())
}

func TestMenuGetLayoutDepthAndProperties(t *testing.T) {
	tm := newTestMenu()
	buildSample(t, tm)

	_, layout, dbusErr := tm.GetLayout(0, 1, []string{"label"})
	require.Nil(t, dbusErr)
	require.Len(t, layout.Children, 3)

	more := layout.Children[2].Value().(dbusLayout)
	assert.Empty(t, more.Children)
	assert.Equal(t, map[string]dbus.Variant{"label": dbus.MakeVariant("More")}, more.Properties)

	_, layout, dbusErr = tm.GetLayout(3, 0, nil)
	require.Nil(t, dbusErr)
	assert.Equal(t, int32(3), layout.ID)
	assert.Empty(t, layout.Children)

	_, _, dbusErr = tm.GetLayout(42, -1, nil)
	assert.NotNil(t, dbusErr)
}

func TestMenuPropertyUpdatesAreSignalledIncrementally(t *testing.T) {
	tm := newTestMenu()
	item, submenuItem := buildSample(t, tm)
	signals := len(tm.signals)

	require.NoError(t, item.Update(Attrs{Title: "Open now", Disabled: true}))
	require.NoError(t, submenuItem.SetChecked(true))
	tm.redraw()

	require.Len(t, tm.signals, signals+1)
	sig := tm.lastSignal(t)
	require.Equal(t, "ItemsPropertiesUpdated", sig.member)

	updated := sig.values[0].([]dbusProperties)
	require.Len(t, updated, 2)
	assert.Equal(t, int32(1), updated[0].ID)
	assert.Equal(t, map[string]dbus.Variant{
		"label":   dbus.MakeVariant("Open now"),
		"enabled": dbus.MakeVariant(false),
	}, updated[0].Properties)
	assert.Equal(t, int32(4), updated[1].ID)
	assert.Equal(t, map[string]dbus.Variant{
		"toggle-state": dbus.MakeVariant(int32(1)),
	}, updated[1].Properties)

	removed := sig.values[1].([]dbusRemovedProperties)
	require.Len(t, removed, 1)
	assert.Equal(t, dbusRemovedProperties{ID: 1, Names: []string{"accessible-desc"}}, removed[0])

	revision, _, _ := tm.GetLayout(0, -1, nil)
	assert.Equal(t, uint32(1), revision, "property updates keep the layout revision")

	tm.redraw()
	assert.Len(t, tm.signals, signals+1, "redraw without changes emits nothing")
}

func TestMenuItemCheckMarkComesAndGoes(t *testing.T) {
	tm := newTestMenu()
	item, _ := buildSample(t, tm)

	require.NoError(t, item.SetChecked(true))
	tm.redraw()

	props, dbusErr := tm.GetGroupProperties([]int32{1}, []string{"toggle-type", "toggle-state"})
	require.Nil(t, dbusErr)
	require.Len(t, props, 1)
	assert.Equal(t, dbus.MakeVariant(int32(1)), props[0].Properties["toggle-state"])

	require.NoError(t, item.SetChecked(false))
	tm.redraw()

	removed := tm.lastSignal(t).values[1].([]dbusRemovedProperties)
	require.Len(t, removed, 1)
	assert.Equal(t, []string{"toggle-state", "toggle-type"}, removed[0].Names)
}

func TestMenuGetProperty(t *testing.T) {
	tm := newTestMenu()
	buildSample(t, tm)

	value, dbusErr := tm.GetProperty(3, "label")
	require.Nil(t, dbusErr)
	assert.Equal(t, "More", value.Value())

	_, dbusErr = tm.GetProperty(3, "toggle-state")
	assert.NotNil(t, dbusErr)

	_, dbusErr = tm.GetProperty(99, "label")
	assert.NotNil(t, dbusErr)
}

func TestMenuEventsMapToHostIDs(t *testing.T) {
	tm := newTestMenu()
	buildSample(t, tm)

	require.Nil(t, tm.Event(4, "clicked", dbus.MakeVariant(0), 0))
	assert.Equal(t, menuEvent{kind: menuEventClicked, hostID: 103}, <-tm.events)

	require.Nil(t, tm.Event(1, "hovered", dbus.MakeVariant(0), 0))
	require.Nil(t, tm.Event(0, "opened", dbus.MakeVariant(0), 0))
	assert.Equal(t, menuEvent{kind: menuEventOpened}, <-tm.events)

	assert.NotNil(t, tm.Event(77, "clicked", dbus.MakeVariant(0), 0))

	idErrors, dbusErr := tm.EventGroup([]dbusEvent{
		{ID: 1, EventID: "clicked", Data: dbus.MakeVariant(0)},
		{ID: 77, EventID: "clicked", Data: dbus.MakeVariant(0)},
	})
	require.Nil(t, dbusErr)
	assert.Equal(t, []int32{77}, idErrors)
	assert.Equal(t, menuEvent{kind: menuEventClicked, hostID: 100}, <-tm.events)

	needUpdate, dbusErr := tm.AboutToShow(0)
	require.Nil(t, dbusErr)
	assert.False(t, needUpdate)
	assert.Equal(t, menuEvent{kind: menuEventAboutToShow}, <-tm.events)

	updates, idErrors, dbusErr := tm.AboutToShowGroup([]int32{3, 55})
	require.Nil(t, dbusErr)
	assert.Empty(t, updates)
	assert.Equal(t, []int32{55}, idErrors)
	assert.Empty(t, tm.events)
}

func TestMenuSendGivesUpAfterShutdown(t *testing.T) {
	tm := newTestMenu()
	buildSample(t, tm)

	for i := 0; i < cap(tm.events); i++ {
		tm.send(menuEvent{kind: menuEventClosed})
	}

	close(tm.done)
	assert.Nil(t, tm.Event(1, "clicked", dbus.MakeVariant(0), 0))
}

type recordingSink struct {
	activated []int32
	opened    int
}

func (s *recordingSink) ItemActivated(id int32) {
	s.activated = append(s.activated, id)
}

func (s *recordingSink) MenuOpened() {
	s.opened++
}

func TestDBusPlatformReportsEachPopupOnce(t *testing.T) {
	p := NewDBusPlatform()
	sink := &recordingSink{}

	// AboutToShow followed by "opened".
	p.dispatch(menuEvent{kind: menuEventAboutToShow}, sink)
	p.dispatch(menuEvent{kind: menuEventOpened}, sink)
	p.dispatch(menuEvent{kind: menuEventClosed}, sink)
	assert.Equal(t, 1, sink.opened)

	// Hosts that only send "opened".
	p.dispatch(menuEvent{kind: menuEventOpened}, sink)
	p.dispatch(menuEvent{kind: menuEventClosed}, sink)
	assert.Equal(t, 2, sink.opened)

	// Hosts that only call AboutToShow.
	p.dispatch(menuEvent{kind: menuEventAboutToShow}, sink)
	p.dispatch(menuEvent{kind: menuEventClicked, hostID: 7}, sink)
	p.dispatch(menuEvent{kind: menuEventAboutToShow}, sink)
	assert.Equal(t, 4, sink.opened)

	assert.Equal(t, []int32{7}, sink.activated)
}

func TestDBusPlatformRejectsIconWithoutImage(t *testing.T) {
	p := NewDBusPlatform()

	err := p.SetIcon(&LoadedIcon{Data: []byte("x")}, "", "")
	assert.ErrorIs(t, err, ErrInvalidIcon)
}

func TestWatcherStarted(t *testing.T) {
	signal := func(body ...any) *dbus.Signal {
		return &dbus.Signal{Name: "org.freedesktop.DBus.NameOwnerChanged", Body: body}
	}

	assert.True(t, watcherStarted(signal(StatusNotifierWatcherInterface, "", ":1.42")))
	assert.False(t, watcherStarted(signal(StatusNotifierWatcherInterface, ":1.42", "")))
	assert.False(t, watcherStarted(signal("org.example.Other", "", ":1.42")))
	assert.False(t, watcherStarted(signal(StatusNotifierWatcherInterface)))
	assert.False(t, watcherStarted(&dbus.Signal{Name: "org.example.Other"}))
}
