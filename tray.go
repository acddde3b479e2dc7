package traymenu

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned by [Tray.Run] when called more than once.
var ErrAlreadyRunning = errors.New("already running")

// Option configures a [Tray].
type Option func(*Tray)

// WithLogger sets the logger. The default logger discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tray) {
		t.logger = logger
	}
}

// WithRootID sets the id hosts use to address the root menu. Defaults to
// [RootID].
func WithRootID(id int32) Option {
	return func(t *Tray) {
		t.rootID = id
	}
}

// WithIconLoader overrides the icon loading strategy of the platform.
func WithIconLoader(loader IconLoader) Option {
	return func(t *Tray) {
		t.loader = loader
	}
}

// Tray synchronizes a host with a native tray icon and menu.
//
// All methods except Run may be called from any goroutine. Commands never
// block the caller and are applied on the UI thread in the order they were
// issued. Failures are logged and leave the menu and icon in their last
// valid state.
type Tray struct {
	platform Platform
	host     Host
	logger   *zap.Logger
	rootID   int32
	loader   IconLoader
	running  atomic.Bool

	queue      *commandQueue
	tree       *menuTree
	icon       *trayIcon
	dispatcher *dispatcher
}

// New returns a new [Tray] driving platform on behalf of host.
func New(platform Platform, host Host, opts ...Option) *Tray {
	t := &Tray{
		platform: platform,
		host:     host,
		logger:   zap.NewNop(),
		rootID:   RootID,
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.loader == nil {
		t.loader = platform.IconLoader()
	}

	t.queue = newCommandQueue(platform.Wake)
	t.tree = newMenuTree(t.rootID, t.logger)
	t.icon = &trayIcon{
		platform: platform,
		loader:   t.loader,
		logger:   t.logger,
	}
	t.dispatcher = &dispatcher{
		host:   host,
		logger: t.logger,
		kindOf: t.tree.kindOf,
	}
	t.tree.redraw = platform.Redraw
	t.tree.suppressed = t.dispatcher.suppressed

	return t
}

// Run sets up the native tray, calls [Host.OnReady] and runs the event loop
// on the calling goroutine until [Tray.Quit] is called. On some platforms it
// must be called from the main goroutine.
//
// Run may only be called once.
func (t *Tray) Run() error {
	if !t.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	err := t.platform.Loop(t.ready, t.drain, t.dispatcher)

	if dropped := t.queue.close(); dropped > 0 {
		t.logger.Debug("dropped commands posted after shutdown", zap.Int("count", dropped))
	}
	t.icon.close()

	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// Quit ends the event loop.
func (t *Tray) Quit() {
	t.platform.Quit()
}

func (t *Tray) ready(root Container) {
	t.tree.attach(root)
	t.logger.Debug("tray ready", zap.Int32("root", t.rootID))
	t.host.OnReady()
}

func (t *Tray) drain() {
	for _, cmd := range t.queue.take() {
		t.exec(cmd)
	}
}

// exec runs a command, keeping a panic from taking down the UI thread.
func (t *Tray) exec(cmd func()) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("command panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	cmd()
}

// post schedules fn on the UI thread.
func (t *Tray) post(fn func()) {
	if !t.queue.post(fn) {
		t.logger.Debug("tray is shut down, command dropped")
	}
}

// ShowTray installs icon as the tray icon and shows it. Empty icon shows the
// previously installed image again. Title and tooltip are ignored by
// platforms without per-icon captions.
func (t *Tray) ShowTray(title, tooltip string, icon []byte) {
	t.post(func() {
		if err := t.icon.show(title, tooltip, icon); err != nil {
			t.logger.Error("failed to show tray icon", zap.Error(err))
		}
	})
}

// HideTray hides the tray icon.
func (t *Tray) HideTray() {
	t.post(func() {
		if err := t.icon.hide(); err != nil {
			t.logger.Error("failed to hide tray icon", zap.Error(err))
		}
	})
}

// UpsertItem creates or updates a menu item.
func (t *Tray) UpsertItem(id, parentID int32, title, tooltip string, disabled, checked bool) {
	t.upsert(MenuNode{
		ID:       id,
		ParentID: parentID,
		Kind:     KindItem,
		Attrs: Attrs{
			Title:    title,
			Tooltip:  tooltip,
			Disabled: disabled,
			Checked:  checked,
		},
	})
}

// UpsertSeparator creates a separator. Upserting an existing separator does
// nothing.
func (t *Tray) UpsertSeparator(id, parentID int32) {
	t.upsert(MenuNode{
		ID:       id,
		ParentID: parentID,
		Kind:     KindSeparator,
	})
}

// UpsertSubmenu creates or updates a submenu. The submenu's id can be used as
// parent id by later upserts.
func (t *Tray) UpsertSubmenu(id, parentID int32, title, tooltip string) {
	t.upsert(MenuNode{
		ID:       id,
		ParentID: parentID,
		Kind:     KindSubmenu,
		Attrs: Attrs{
			Title:   title,
			Tooltip: tooltip,
		},
	})
}

// UpsertSubmenuItem creates or updates an item of a submenu. A check mark is
// only shown when checkable is set.
func (t *Tray) UpsertSubmenuItem(id, parentID int32, title, tooltip string, disabled, checkable, checked bool) {
	t.upsert(MenuNode{
		ID:       id,
		ParentID: parentID,
		Kind:     KindSubmenuItem,
		Attrs: Attrs{
			Title:     title,
			Tooltip:   tooltip,
			Disabled:  disabled,
			Checkable: checkable,
			Checked:   checked,
		},
	})
}

// Upsert creates or updates node. Submenu items that are not checkable are
// never checked.
func (t *Tray) Upsert(node MenuNode) {
	t.upsert(node)
}

func (t *Tray) upsert(node MenuNode) {
	if node.Kind == KindSubmenuItem && !node.Checkable {
		node.Checked = false
	}

	t.post(func() {
		if err := t.tree.upsert(node); err != nil {
			t.logger.Error("failed to apply menu command", zap.Error(err))
		}
	})
}

// Inspect calls fn on the UI thread with a copy of the node with the given
// id, or ok set to false when there is no such node.
func (t *Tray) Inspect(id int32, fn func(node MenuNode, ok bool)) {
	t.post(func() {
		fn(t.tree.node(id))
	})
}

// InspectIcon calls fn on the UI thread with the current tray icon state.
func (t *Tray) InspectIcon(fn func(state TrayIconState)) {
	t.post(func() {
		fn(t.icon.state)
	})
}
