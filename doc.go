// Package traymenu drives a single system tray icon with a hierarchical menu
// on behalf of a host controller.
//
// # Usage
//
// The host owns application state and describes the menu with upsert
// commands keyed by ids it chooses itself:
//   - [Tray] accepts commands from any goroutine and applies them, in order,
//     on the UI thread owned by [Tray.Run].
//   - [Host] receives readiness, menu item selections and "menu opened"
//     notifications back from the tray.
//   - [Platform] is the native side. [DBusPlatform] serves the
//     [StatusNotifierItem] and com.canonical.dbusmenu interfaces on the
//     session bus; on Windows and macOS a platform backed by
//     github.com/getlantern/systray is used instead.
//
// Menu nodes are never removed. A node created with an id keeps that id, its
// kind and its parent for the lifetime of the tray; later upserts only change
// its title, tooltip, enabled and checked state.
//
// [StatusNotifierItem]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/
package traymenu
