package menufile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const sampleMenu = `
title: Backup
tooltip: Backup is idle
icon: icons/idle.png
items:
  - id: 1
    title: Back up now
    tooltip: Start a backup
  - id: 2
    kind: separator
  - id: 3
    kind: submenu
    title: Schedule
    items:
      - id: 4
        title: Hourly
        checkable: true
        checked: true
      - id: 5
        title: Daily
        checkable: true
  - id: 0
    title: Quit
    disabled: true
`

type mockTray struct {
	mock.Mock
}

func (m *mockTray) ShowTray(title, tooltip string, icon []byte) {
	m.Called(title, tooltip, icon)
}

func (m *mockTray) UpsertItem(id, parentID int32, title, tooltip string, disabled, checked bool) {
	m.Called(id, parentID, title, tooltip, disabled, checked)
}

func (m *mockTray) UpsertSeparator(id, parentID int32) {
	m.Called(id, parentID)
}

func (m *mockTray) UpsertSubmenu(id, parentID int32, title, tooltip string) {
	m.Called(id, parentID, title, tooltip)
}

func (m *mockTray) UpsertSubmenuItem(id, parentID int32, title, tooltip string, disabled, checkable, checked bool) {
	m.Called(id, parentID, title, tooltip, disabled, checkable, checked)
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()

	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/etc/backup/menu.yaml":      sampleMenu,
		"/etc/backup/icons/idle.png": "png",
	})

	menu, err := Load(fs, "/etc/backup/menu.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Backup", menu.Title)
	assert.Equal(t, []byte("png"), menu.IconData)
	require.Len(t, menu.Items, 4)
	assert.Equal(t, KindSubmenu, menu.Items[2].Kind)
	assert.Len(t, menu.Items[2].Items, 2)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name: "duplicate id across levels",
			content: `
items:
  - id: 1
    kind: submenu
    items:
      - id: 1
`,
			wantErr: ErrDuplicateID,
		},
		{
			name: "unknown kind",
			content: `
items:
  - id: 1
    kind: radio
`,
			wantErr: ErrUnknownKind,
		},
		{
			name: "items under an item",
			content: `
items:
  - id: 1
    items:
      - id: 2
`,
			wantErr: ErrNotSubmenu,
		},
		{
			name: "root id",
			content: `
items:
  - id: -1
`,
			wantErr: ErrReservedID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFiles(t, fs, map[string]string{"menu.yaml": tt.content})

			_, err := Load(fs, "menu.yaml")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadRejectsUnknownFieldsAndMissingFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"typo.yaml":    "items:\n  - id: 1\n    titel: Oops\n",
		"no-icon.yaml": "icon: missing.png\n",
	})

	_, err := Load(fs, "typo.yaml")
	assert.ErrorContains(t, err, "failed to parse menu file")

	_, err = Load(fs, "no-icon.yaml")
	assert.ErrorContains(t, err, "failed to read icon")

	_, err = Load(fs, "absent.yaml")
	assert.ErrorContains(t, err, "failed to read menu file")
}

func TestApplyPostsParentsFirst(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/menu.yaml":      sampleMenu,
		"/icons/idle.png": "png",
	})

	menu, err := Load(fs, "/menu.yaml")
	require.NoError(t, err)

	tray := &mockTray{}
	var order []int32
	record := func(args mock.Arguments) {
		if id, ok := args.Get(0).(int32); ok {
			order = append(order, id)
		}
	}

	tray.On("ShowTray", "Backup", "Backup is idle", []byte("png")).Once()
	tray.On("UpsertItem", int32(1), int32(-1), "Back up now", "Start a backup", false, false).Run(record).Once()
	tray.On("UpsertSeparator", int32(2), int32(-1)).Run(record).Once()
	tray.On("UpsertSubmenu", int32(3), int32(-1), "Schedule", "").Run(record).Once()
	tray.On("UpsertSubmenuItem", int32(4), int32(3), "Hourly", "", false, true, true).Run(record).Once()
	tray.On("UpsertSubmenuItem", int32(5), int32(3), "Daily", "", false, true, false).Run(record).Once()
	tray.On("UpsertItem", int32(0), int32(-1), "Quit", "", true, false).Run(record).Once()

	menu.Apply(tray)

	tray.AssertExpectations(t)
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 0}, order)
}

func TestApplyWithoutIconLeavesTrayIconAlone(t *testing.T) {
	menu := &Menu{Items: []Item{{ID: 1, Title: "Only"}}}

	tray := &mockTray{}
	tray.On("UpsertItem", int32(1), int32(-1), "Only", "", false, false).Once()

	menu.Apply(tray)

	tray.AssertExpectations(t)
	tray.AssertNotCalled(t, "ShowTray", mock.Anything, mock.Anything, mock.Anything)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleMenu), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// The watch may not be set up yet, so keep writing.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "other.yaml"), nil, 0o644)
		_ = os.WriteFile(path, []byte(sampleMenu), 0o644)

		select {
		case <-changed:
			return true
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
