package traymenu

import (
	"fmt"

	"go.uber.org/zap"
)

// trayIcon controls visibility and image of the tray icon. It is owned by
// the UI thread.
type trayIcon struct {
	platform Platform
	loader   IconLoader
	logger   *zap.Logger
	state    TrayIconState
	current  *LoadedIcon
}

// show installs data as the icon and makes it visible. Empty data re-shows
// the icon installed last.
func (c *trayIcon) show(title, tooltip string, data []byte) error {
	if len(data) == 0 && c.current != nil {
		if err := c.platform.SetIcon(c.current, title, tooltip); err != nil {
			return fmt.Errorf("show tray: %w", err)
		}
		c.state.Visible = true
		return nil
	}

	icon, err := c.loader.Load(data)
	if err != nil {
		return fmt.Errorf("show tray: %w", err)
	}

	if err := c.platform.SetIcon(icon, title, tooltip); err != nil {
		c.release(icon)
		return fmt.Errorf("show tray: %w", err)
	}

	previous := c.current
	c.current = icon
	c.state = TrayIconState{Visible: true, Icon: data}
	c.release(previous)

	return nil
}

func (c *trayIcon) hide() error {
	if err := c.platform.HideIcon(); err != nil {
		return fmt.Errorf("hide tray: %w", err)
	}

	c.state.Visible = false
	return nil
}

// close releases the installed icon.
func (c *trayIcon) close() {
	c.release(c.current)
	c.current = nil
}

func (c *trayIcon) release(icon *LoadedIcon) {
	if icon == nil {
		return
	}

	if err := c.loader.Release(icon); err != nil {
		c.logger.Warn("failed to release tray icon", zap.Error(err))
	}
}
