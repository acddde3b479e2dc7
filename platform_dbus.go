package traymenu

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"go.uber.org/zap"
)

// itemInstances numbers items exported by this process, as bus names of
// items are "org.kde.StatusNotifierItem-<pid>-<instance>".
var itemInstances atomic.Int32

// DBusOption configures a [DBusPlatform].
type DBusOption func(*DBusPlatform)

// WithDBusConn makes the platform use conn instead of connecting to the
// session bus itself. The connection is not closed when the loop ends.
func WithDBusConn(conn *dbus.Conn) DBusOption {
	return func(p *DBusPlatform) {
		p.conn = conn
	}
}

// WithItemID sets the Id property of the item. Defaults to the executable
// name.
func WithItemID(id string) DBusOption {
	return func(p *DBusPlatform) {
		p.id = id
	}
}

// WithCategory sets the Category property of the item.
func WithCategory(category ItemCategory) DBusOption {
	return func(p *DBusPlatform) {
		p.category = category
	}
}

// WithIconFiles makes the platform publish icons as files through
// IconThemePath and IconName instead of IconPixmap.
func WithIconFiles(loader TempFileLoader) DBusOption {
	return func(p *DBusPlatform) {
		p.loader = loader
	}
}

// WithDBusLogger sets the logger.
func WithDBusLogger(logger *zap.Logger) DBusOption {
	return func(p *DBusPlatform) {
		p.logger = logger
	}
}

// DBusPlatform is a [Platform] serving the StatusNotifierItem and
// com.canonical.dbusmenu interfaces on the session bus.
//
// The UI thread is the goroutine running Loop. D-Bus method calls arrive on
// godbus goroutines; they read published menu snapshots and hand events to
// the loop through a channel.
type DBusPlatform struct {
	conn     *dbus.Conn
	ownConn  bool
	name     string
	id       string
	category ItemCategory
	loader   IconLoader
	logger   *zap.Logger

	wake     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
	signals  chan *dbus.Signal

	item *statusNotifierItem
	menu *dbusMenu

	// Set between AboutToShow of the root and the "opened" event that
	// usually follows it, so the host hears about one popup only once.
	aboutToShowPending bool
}

// NewDBusPlatform returns a new [DBusPlatform].
func NewDBusPlatform(opts ...DBusOption) *DBusPlatform {
	p := &DBusPlatform{
		id:       filepath.Base(os.Args[0]),
		category: ItemCategoryApplicationStatus,
		loader:   MemoryLoader{Decode: true},
		logger:   zap.NewNop(),
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		signals:  make(chan *dbus.Signal, 16),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.menu = newDBusMenu(p.emitMenu, p.quit, p.logger)

	return p
}

// Name returns the bus name of the item. It is empty until the loop is set
// up.
func (p *DBusPlatform) Name() string {
	return p.name
}

func (p *DBusPlatform) Loop(ready func(root Container), drain func(), sink EventSink) error {
	if err := p.setup(); err != nil {
		return fmt.Errorf("loop: %w", err)
	}
	defer p.teardown()

	ready(p.menu.root)

	for {
		select {
		case <-p.quit:
			return nil
		case <-p.wake:
			drain()
		case ev := <-p.menu.events:
			p.dispatch(ev, sink)
		case signal := <-p.signals:
			if watcherStarted(signal) {
				p.register()
			}
		}
	}
}

func (p *DBusPlatform) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *DBusPlatform) Quit() {
	p.quitOnce.Do(func() {
		close(p.quit)
	})
}

func (p *DBusPlatform) IconLoader() IconLoader {
	return p.loader
}

func (p *DBusPlatform) SetIcon(icon *LoadedIcon, title, tooltip string) error {
	if icon.Pixmap == nil && icon.Path == "" {
		return fmt.Errorf("set icon: %w: neither pixmap nor file", ErrInvalidIcon)
	}

	p.item.setIcon(icon, title, tooltip)
	return nil
}

// HideIcon sets the item status to Passive. StatusNotifierItem has no way to
// remove an icon short of dropping the bus name.
func (p *DBusPlatform) HideIcon() error {
	p.item.setStatus(ItemStatusPassive)
	return nil
}

func (p *DBusPlatform) Redraw() {
	p.menu.redraw()
}

func (p *DBusPlatform) dispatch(ev menuEvent, sink EventSink) {
	switch ev.kind {
	case menuEventClicked:
		p.aboutToShowPending = false
		sink.ItemActivated(ev.hostID)
	case menuEventAboutToShow:
		p.aboutToShowPending = true
		sink.MenuOpened()
	case menuEventOpened:
		if p.aboutToShowPending {
			p.aboutToShowPending = false
			return
		}
		sink.MenuOpened()
	case menuEventClosed:
		p.aboutToShowPending = false
	}
}

func (p *DBusPlatform) setup() (err error) {
	if p.conn == nil {
		conn, connErr := dbus.ConnectSessionBus()
		if connErr != nil {
			return fmt.Errorf("failed to connect to session bus: %w", connErr)
		}
		p.conn = conn
		p.ownConn = true

		defer func() {
			if err != nil {
				p.conn.Close()
			}
		}()
	}

	p.name = fmt.Sprintf("%s-%d-%d", StatusNotifierItemInterface, os.Getpid(), itemInstances.Add(1))

	reply, err := p.conn.RequestName(p.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request name %s: %w", p.name, err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("name %s already taken", p.name)
	}

	if err := p.exportItem(); err != nil {
		return err
	}

	if err := p.exportMenu(); err != nil {
		return err
	}

	if err := p.conn.AddMatchSignal(watcherOwnerMatch()...); err != nil {
		return fmt.Errorf("failed to watch %s: %w", StatusNotifierWatcherInterface, err)
	}
	p.conn.Signal(p.signals)

	p.register()

	return nil
}

func (p *DBusPlatform) exportItem() error {
	p.item = &statusNotifierItem{conn: p.conn, logger: p.logger}

	if err := p.conn.Export(p.item, StatusNotifierItemPath, StatusNotifierItemInterface); err != nil {
		return fmt.Errorf("failed to export %s: %w", StatusNotifierItemInterface, err)
	}

	props, err := prop.Export(p.conn, StatusNotifierItemPath, prop.Map{
		StatusNotifierItemInterface: itemProperties(p.id, p.category),
	})
	if err != nil {
		return fmt.Errorf("failed to export %s properties: %w", StatusNotifierItemInterface, err)
	}
	p.item.props = props

	return p.exportIntrospection(StatusNotifierItemPath, introspect.Interface{
		Name:       StatusNotifierItemInterface,
		Methods:    introspect.Methods(p.item),
		Properties: props.Introspection(StatusNotifierItemInterface),
		Signals: []introspect.Signal{
			{Name: "NewTitle"},
			{Name: "NewIcon"},
			{Name: "NewToolTip"},
			{Name: "NewStatus", Args: []introspect.Arg{{Name: "status", Type: "s"}}},
		},
	})
}

func (p *DBusPlatform) exportMenu() error {
	if err := p.conn.Export(p.menu, MenuPath, MenuInterface); err != nil {
		return fmt.Errorf("failed to export %s: %w", MenuInterface, err)
	}

	props, err := prop.Export(p.conn, MenuPath, prop.Map{
		MenuInterface: {
			"Version":       {Value: uint32(3), Writable: false, Emit: prop.EmitConst},
			"TextDirection": {Value: "ltr", Writable: false, Emit: prop.EmitConst},
			"Status":        {Value: "normal", Writable: false, Emit: prop.EmitConst},
			"IconThemePath": {Value: []string{}, Writable: false, Emit: prop.EmitConst},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to export %s properties: %w", MenuInterface, err)
	}

	return p.exportIntrospection(MenuPath, introspect.Interface{
		Name:       MenuInterface,
		Methods:    introspect.Methods(p.menu),
		Properties: props.Introspection(MenuInterface),
		Signals: []introspect.Signal{
			{Name: "ItemsPropertiesUpdated", Args: []introspect.Arg{
				{Name: "updatedProps", Type: "a(ia{sv})"},
				{Name: "removedProps", Type: "a(ias)"},
			}},
			{Name: "LayoutUpdated", Args: []introspect.Arg{
				{Name: "revision", Type: "u"},
				{Name: "parent", Type: "i"},
			}},
		},
	})
}

func (p *DBusPlatform) exportIntrospection(path dbus.ObjectPath, iface introspect.Interface) error {
	node := &introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			iface,
		},
	}

	if err := p.conn.Export(introspect.NewIntrospectable(node), path, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection of %s: %w", path, err)
	}

	return nil
}

// register announces the item to the watcher in the background, so a slow
// watcher does not hold up the loop. A missing watcher is not an error: the
// item registers when one appears.
func (p *DBusPlatform) register() {
	conn, name := p.conn, p.name

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), registerTimeout)
		defer cancel()

		if err := registerWithWatcher(ctx, conn, name); err != nil {
			p.logger.Warn("StatusNotifierWatcher unavailable, waiting for it", zap.Error(err))
			return
		}

		p.logger.Debug("registered with StatusNotifierWatcher", zap.String("name", name))
	}()
}

func (p *DBusPlatform) emitMenu(member string, values ...any) error {
	return p.conn.Emit(MenuPath, MenuInterface+"."+member, values...)
}

func (p *DBusPlatform) teardown() {
	if err := p.conn.RemoveMatchSignal(watcherOwnerMatch()...); err != nil {
		p.logger.Warn("failed to remove signal match", zap.Error(err))
	}
	p.conn.RemoveSignal(p.signals)

	if _, err := p.conn.ReleaseName(p.name); err != nil {
		p.logger.Warn("failed to release name", zap.String("name", p.name), zap.Error(err))
	}

	if p.ownConn {
		if err := p.conn.Close(); err != nil {
			p.logger.Warn("failed to close session bus connection", zap.Error(err))
		}
	}
}
