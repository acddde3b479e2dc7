// Package menufile loads tray menus described in YAML files.
//
// A menu file looks like this:
//
//	title: Backup
//	tooltip: Backup is idle
//	icon: icons/idle.png
//	items:
//	  - id: 1
//	    title: Back up now
//	  - id: 2
//	    kind: separator
//	  - id: 3
//	    kind: submenu
//	    title: Schedule
//	    items:
//	      - id: 4
//	        title: Hourly
//	        checkable: true
//	        checked: true
//
// The icon path is relative to the menu file.
package menufile

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/shelepuginivan/traymenu"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	KindItem      = "item"
	KindSeparator = "separator"
	KindSubmenu   = "submenu"
)

var (
	ErrDuplicateID = errors.New("duplicate id")
	ErrUnknownKind = errors.New("unknown kind")
	ErrNotSubmenu  = errors.New("only submenus can have items")
	ErrReservedID  = errors.New("id is reserved for the root menu")
)

// Menu is the root of a menu file.
type Menu struct {
	Title   string `yaml:"title"`
	Tooltip string `yaml:"tooltip"`
	Icon    string `yaml:"icon"`
	Items   []Item `yaml:"items"`

	// IconData holds the contents of the icon file after Load.
	IconData []byte `yaml:"-"`
}

// Item is a menu node. Kind defaults to "item".
type Item struct {
	ID        int32  `yaml:"id"`
	Kind      string `yaml:"kind"`
	Title     string `yaml:"title"`
	Tooltip   string `yaml:"tooltip"`
	Disabled  bool   `yaml:"disabled"`
	Checkable bool   `yaml:"checkable"`
	Checked   bool   `yaml:"checked"`
	Items     []Item `yaml:"items"`
}

func (item Item) kind() string {
	if item.Kind == "" {
		return KindItem
	}
	return item.Kind
}

// Load reads and validates the menu file at path.
func Load(fs afero.Fs, path string) (*Menu, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu file %s: %w", path, err)
	}

	var menu Menu

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&menu); err != nil {
		return nil, fmt.Errorf("failed to parse menu file %s: %w", path, err)
	}

	if err := menu.Validate(); err != nil {
		return nil, fmt.Errorf("invalid menu file %s: %w", path, err)
	}

	if menu.Icon != "" {
		iconPath := menu.Icon
		if !filepath.IsAbs(iconPath) {
			iconPath = filepath.Join(filepath.Dir(path), iconPath)
		}

		menu.IconData, err = afero.ReadFile(fs, iconPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read icon %s: %w", iconPath, err)
		}
	}

	return &menu, nil
}

// Validate checks that ids are unique, kinds are known and only submenus
// have items.
func (m *Menu) Validate() error {
	seen := make(map[int32]bool)
	return validateItems(m.Items, seen)
}

func validateItems(items []Item, seen map[int32]bool) error {
	for _, item := range items {
		if item.ID == traymenu.RootID {
			return fmt.Errorf("item %d: %w", item.ID, ErrReservedID)
		}

		if seen[item.ID] {
			return fmt.Errorf("item %d: %w", item.ID, ErrDuplicateID)
		}
		seen[item.ID] = true

		switch item.kind() {
		case KindItem, KindSeparator:
			if len(item.Items) > 0 {
				return fmt.Errorf("item %d: %w", item.ID, ErrNotSubmenu)
			}
		case KindSubmenu:
			if err := validateItems(item.Items, seen); err != nil {
				return err
			}
		default:
			return fmt.Errorf("item %d: %w %q", item.ID, ErrUnknownKind, item.Kind)
		}
	}

	return nil
}

// Tray is the part of [traymenu.Tray] a menu is applied to.
type Tray interface {
	ShowTray(title, tooltip string, icon []byte)
	UpsertItem(id, parentID int32, title, tooltip string, disabled, checked bool)
	UpsertSeparator(id, parentID int32)
	UpsertSubmenu(id, parentID int32, title, tooltip string)
	UpsertSubmenuItem(id, parentID int32, title, tooltip string, disabled, checkable, checked bool)
}

// Apply issues the commands building the menu, parents before their
// children. Applying the same menu again only updates attributes.
//
// The icon is shown when the menu has one.
func (m *Menu) Apply(tray Tray) {
	if m.IconData != nil {
		tray.ShowTray(m.Title, m.Tooltip, m.IconData)
	}

	applyItems(tray, m.Items, traymenu.RootID, false)
}

func applyItems(tray Tray, items []Item, parentID int32, inSubmenu bool) {
	for _, item := range items {
		switch item.kind() {
		case KindSeparator:
			tray.UpsertSeparator(item.ID, parentID)
		case KindSubmenu:
			tray.UpsertSubmenu(item.ID, parentID, item.Title, item.Tooltip)
			applyItems(tray, item.Items, item.ID, true)
		case KindItem:
			if inSubmenu {
				tray.UpsertSubmenuItem(item.ID, parentID, item.Title, item.Tooltip, item.Disabled, item.Checkable, item.Checked)
			} else {
				tray.UpsertItem(item.ID, parentID, item.Title, item.Tooltip, item.Disabled, item.Checked)
			}
		}
	}
}
