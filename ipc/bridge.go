package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/shelepuginivan/traymenu"
	"go.uber.org/zap"
)

// MaxLineSize is the longest command line accepted by [Bridge.Serve].
// Commands carrying icons are the long ones.
const MaxLineSize = 16 << 20

var (
	ErrMissingID      = errors.New("missing id")
	ErrUnknownCommand = errors.New("unknown command")
)

// Tray is the part of [traymenu.Tray] commands are applied to.
type Tray interface {
	ShowTray(title, tooltip string, icon []byte)
	HideTray()
	UpsertItem(id, parentID int32, title, tooltip string, disabled, checked bool)
	UpsertSeparator(id, parentID int32)
	UpsertSubmenu(id, parentID int32, title, tooltip string)
	UpsertSubmenuItem(id, parentID int32, title, tooltip string, disabled, checkable, checked bool)
	Quit()
}

// Bridge connects a tray to a controlling process. It implements
// [traymenu.Host] by writing events to w, and applies commands read by
// Serve.
type Bridge struct {
	mu     sync.Mutex
	enc    *json.Encoder
	logger *zap.Logger
}

var _ traymenu.Host = (*Bridge)(nil)

// NewBridge returns a new [Bridge] writing events to w.
func NewBridge(w io.Writer, logger *zap.Logger) *Bridge {
	return &Bridge{
		enc:    json.NewEncoder(w),
		logger: logger,
	}
}

func (b *Bridge) OnReady() {
	b.send(Event{Type: Ready})
}

func (b *Bridge) OnMenuItemSelected(id int32) {
	b.send(Event{Type: MenuItemSelected, ID: &id})
}

func (b *Bridge) OnMenuOpened() {
	b.send(Event{Type: MenuOpened})
}

// Error reports err to the controlling process.
func (b *Bridge) Error(err error) {
	b.send(Event{Type: Error, Error: err.Error()})
}

func (b *Bridge) send(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.enc.Encode(ev); err != nil {
		b.logger.Warn("failed to write event", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

// Serve reads commands from r and applies them to tray until r is exhausted,
// a quit command arrives or ctx is done. Lines that cannot be applied are
// reported as error events and skipped.
//
// Serve returns nil after EOF or quit.
func (b *Bridge) Serve(ctx context.Context, r io.Reader, tray Tray) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)

			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}

		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		case line := <-lines:
			if len(line) == 0 {
				continue
			}

			var cmd Command
			if err := json.Unmarshal(line, &cmd); err != nil {
				b.logger.Warn("malformed command", zap.Error(err))
				b.Error(fmt.Errorf("decode command: %w", err))
				continue
			}

			if err := apply(cmd, tray); err != nil {
				b.logger.Warn("rejected command", zap.String("type", string(cmd.Type)), zap.Error(err))
				b.Error(err)
				continue
			}

			if cmd.Type == Quit {
				return nil
			}
		}
	}
}

func apply(cmd Command, tray Tray) error {
	parentID := traymenu.RootID
	if cmd.ParentID != nil {
		parentID = *cmd.ParentID
	}

	switch cmd.Type {
	case ShowTray:
		tray.ShowTray(cmd.Title, cmd.Tooltip, cmd.Icon)
		return nil
	case HideTray:
		tray.HideTray()
		return nil
	case Quit:
		tray.Quit()
		return nil
	case UpsertItem, UpsertSeparator, UpsertSubmenu, UpsertSubmenuItem:
	default:
		return fmt.Errorf("%w %q", ErrUnknownCommand, cmd.Type)
	}

	if cmd.ID == nil {
		return fmt.Errorf("%s: %w", cmd.Type, ErrMissingID)
	}
	id := *cmd.ID

	switch cmd.Type {
	case UpsertItem:
		tray.UpsertItem(id, parentID, cmd.Title, cmd.Tooltip, cmd.Disabled, cmd.Checked)
	case UpsertSeparator:
		tray.UpsertSeparator(id, parentID)
	case UpsertSubmenu:
		tray.UpsertSubmenu(id, parentID, cmd.Title, cmd.Tooltip)
	case UpsertSubmenuItem:
		tray.UpsertSubmenuItem(id, parentID, cmd.Title, cmd.Tooltip, cmd.Disabled, cmd.Checkable, cmd.Checked)
	}

	return nil
}
