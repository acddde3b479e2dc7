package traymenu

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	StatusNotifierWatcherInterface = "org.kde.StatusNotifierWatcher"
	StatusNotifierWatcherPath      = "/StatusNotifierWatcher"
)

// registerTimeout bounds the wait for the watcher to acknowledge an item.
const registerTimeout = 5 * time.Second

// registerWithWatcher announces the item with the given bus name to the
// StatusNotifierWatcher, which forwards it to tray hosts.
func registerWithWatcher(ctx context.Context, conn *dbus.Conn, name string) error {
	call := conn.Object(
		StatusNotifierWatcherInterface,
		StatusNotifierWatcherPath,
	).CallWithContext(ctx, StatusNotifierWatcherInterface+".RegisterStatusNotifierItem", 0, name)
	if call.Err != nil {
		return fmt.Errorf("failed to register item: %w", call.Err)
	}

	return nil
}

// watcherOwnerMatch matches changes of the owner of the watcher name.
// Whenever a watcher (re)starts, D-Bus sends NameOwnerChanged with non-empty
// NewOwner argument and the item has to register again.
func watcherOwnerMatch() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, StatusNotifierWatcherInterface),
	}
}

// watcherStarted reports whether signal tells that the watcher name got a new
// owner.
func watcherStarted(signal *dbus.Signal) bool {
	if signal.Name != "org.freedesktop.DBus.NameOwnerChanged" {
		return false
	}

	if len(signal.Body) < 3 {
		return false
	}

	name, ok := signal.Body[0].(string)
	if !ok || name != StatusNotifierWatcherInterface {
		return false
	}

	newOwner, ok := signal.Body[2].(string)
	if !ok {
		return false
	}

	return newOwner != ""
}
