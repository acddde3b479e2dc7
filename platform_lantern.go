//go:build windows || darwin

package traymenu

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"
	"sync"

	"github.com/getlantern/systray"
	"go.uber.org/zap"
)

// LanternPlatform is a [Platform] backed by github.com/getlantern/systray.
//
// systray.Run occupies the thread calling Loop; commands and events are
// handled on a goroutine started once systray is ready, which acts as the UI
// thread. The library has no "menu opened" notification and no separators
// inside submenus.
type LanternPlatform struct {
	logger   *zap.Logger
	wake     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
	clicks   chan int32
}

// NewLanternPlatform returns a new [LanternPlatform].
func NewLanternPlatform(logger *zap.Logger) *LanternPlatform {
	return &LanternPlatform{
		logger: logger,
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		clicks: make(chan int32, 64),
	}
}

// Loop returns only after the UI goroutine has returned, so the engine can
// release its state once the loop is over.
func (p *LanternPlatform) Loop(ready func(root Container), drain func(), sink EventSink) error {
	ui := newUIGoroutine()

	// systray calls onReady on a goroutine of its own.
	systray.Run(func() {
		if !ui.enter() {
			return
		}
		defer ui.exit()

		p.run(ready, drain, sink)
	}, p.Quit)

	// The user or the system may end the native loop before Quit was called.
	p.Quit()
	ui.stop()

	return nil
}

func (p *LanternPlatform) run(ready func(root Container), drain func(), sink EventSink) {
	select {
	case <-p.quit:
		return
	default:
	}

	ready(&lanternContainer{platform: p})

	for {
		select {
		case <-p.quit:
			systray.Quit()
			return
		case <-p.wake:
			drain()
		case id := <-p.clicks:
			sink.ItemActivated(id)
		}
	}
}

func (p *LanternPlatform) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *LanternPlatform) Quit() {
	p.quitOnce.Do(func() {
		close(p.quit)
	})
}

func (p *LanternPlatform) IconLoader() IconLoader {
	return MemoryLoader{}
}

// SetIcon installs the icon bytes as they are. The title is not shown: it
// would appear as text next to the icon on macOS.
func (p *LanternPlatform) SetIcon(icon *LoadedIcon, title, tooltip string) error {
	systray.SetIcon(icon.Data)
	systray.SetTooltip(tooltip)
	return nil
}

// HideIcon replaces the icon with a transparent one, as the library cannot
// remove it.
func (p *LanternPlatform) HideIcon() error {
	icon, err := transparentIcon()
	if err != nil {
		return err
	}

	systray.SetIcon(icon)
	systray.SetTooltip("")
	return nil
}

// Redraw does nothing: systray applies changes immediately.
func (p *LanternPlatform) Redraw() {}

// forward reports clicks of item as activations of id.
func (p *LanternPlatform) forward(id int32, item *systray.MenuItem) {
	for {
		select {
		case <-item.ClickedCh:
			select {
			case p.clicks <- id:
			case <-p.quit:
				return
			}
		case <-p.quit:
			return
		}
	}
}

type lanternContainer struct {
	platform *LanternPlatform

	// Submenu item owning the container, nil for the root menu.
	parent *systray.MenuItem
}

func (c *lanternContainer) AddItem(id int32, attrs Attrs) (Widget, error) {
	item := c.add(attrs)

	if attrs.Disabled {
		item.Disable()
	}

	go c.platform.forward(id, item)

	return &lanternWidget{item: item}, nil
}

func (c *lanternContainer) AddSeparator(id int32) (Widget, error) {
	if c.parent != nil {
		return nil, ErrNotSupported
	}

	systray.AddSeparator()
	return lanternSeparator{}, nil
}

func (c *lanternContainer) AddSubmenu(id int32, attrs Attrs) (Widget, Container, error) {
	item := c.add(Attrs{Title: attrs.Title, Tooltip: attrs.Tooltip, Disabled: attrs.Disabled})

	if attrs.Disabled {
		item.Disable()
	}

	return &lanternWidget{item: item}, &lanternContainer{platform: c.platform, parent: item}, nil
}

func (c *lanternContainer) add(attrs Attrs) *systray.MenuItem {
	checkbox := attrs.Checkable || attrs.Checked

	switch {
	case c.parent == nil && checkbox:
		return systray.AddMenuItemCheckbox(attrs.Title, attrs.Tooltip, attrs.Checked)
	case c.parent == nil:
		return systray.AddMenuItem(attrs.Title, attrs.Tooltip)
	case checkbox:
		return c.parent.AddSubMenuItemCheckbox(attrs.Title, attrs.Tooltip, attrs.Checked)
	default:
		return c.parent.AddSubMenuItem(attrs.Title, attrs.Tooltip)
	}
}

type lanternWidget struct {
	item *systray.MenuItem
}

func (w *lanternWidget) Update(attrs Attrs) error {
	w.item.SetTitle(attrs.Title)
	w.item.SetTooltip(attrs.Tooltip)

	if attrs.Disabled {
		w.item.Disable()
	} else {
		w.item.Enable()
	}

	return nil
}

func (w *lanternWidget) SetChecked(checked bool) error {
	if checked {
		w.item.Check()
	} else {
		w.item.Uncheck()
	}

	return nil
}

type lanternSeparator struct{}

func (lanternSeparator) Update(Attrs) error    { return nil }
func (lanternSeparator) SetChecked(bool) error { return nil }

// transparentIcon returns a 1x1 transparent PNG wrapped in an ICO container,
// which both the Windows and the macOS image loaders accept.
func transparentIcon() ([]byte, error) {
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewNRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		return nil, err
	}

	var ico bytes.Buffer
	binary.Write(&ico, binary.LittleEndian, struct {
		Reserved, Type, Count uint16
	}{0, 1, 1})
	binary.Write(&ico, binary.LittleEndian, struct {
		Width, Height, Colors, Reserved uint8
		Planes, BitCount                uint16
		Size, Offset                    uint32
	}{1, 1, 0, 0, 1, 32, uint32(img.Len()), 22})
	ico.Write(img.Bytes())

	return ico.Bytes(), nil
}
