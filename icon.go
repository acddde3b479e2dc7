package traymenu

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	// Formats accepted by MemoryLoader.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/spf13/afero"
)

// ErrInvalidIcon is reported for icon data the loader cannot use.
var ErrInvalidIcon = errors.New("invalid icon")

// Icon is a decoded icon in ARGB32 format, in network byte order, as used by
// the StatusNotifierItem IconPixmap property.
type Icon struct {
	Width  int32
	Height int32
	Bytes  []byte
}

// NewIconFromImage converts img to an [Icon].
func NewIconFromImage(img image.Image) *Icon {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	data := make([]byte, 0, width*height*4)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// RGBA returns alpha-premultiplied 16-bit values.
			r, g, b, a := img.At(x, y).RGBA()
			if a != 0 {
				r = r * 0xffff / a
				g = g * 0xffff / a
				b = b * 0xffff / a
			}
			data = append(data, byte(a>>8), byte(r>>8), byte(g>>8), byte(b>>8))
		}
	}

	return &Icon{
		Width:  int32(width),
		Height: int32(height),
		Bytes:  data,
	}
}

// LoadedIcon is icon data prepared for a platform by an [IconLoader].
type LoadedIcon struct {
	// Encoded image as passed by the host.
	Data []byte

	// Decoded image, set by loaders that decode in memory.
	Pixmap *Icon

	// File holding Data, set by loaders that go through the filesystem.
	Path string
}

// IconLoader prepares encoded icon bytes for a platform.
type IconLoader interface {
	Load(data []byte) (*LoadedIcon, error)

	// Release frees resources held by an icon that is no longer shown.
	Release(icon *LoadedIcon) error
}

// MemoryLoader keeps icons in memory. When Decode is set, the image is
// decoded into a pixmap; otherwise the bytes are passed to the platform as
// they are.
type MemoryLoader struct {
	Decode bool
}

func (l MemoryLoader) Load(data []byte) (*LoadedIcon, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("load icon: %w: empty data", ErrInvalidIcon)
	}

	icon := &LoadedIcon{Data: data}
	if !l.Decode {
		return icon, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("load icon: %w: %v", ErrInvalidIcon, err)
	}

	icon.Pixmap = NewIconFromImage(img)
	return icon, nil
}

func (MemoryLoader) Release(*LoadedIcon) error {
	return nil
}

// TempFileLoader writes icons to temporary files, for native loaders that
// only accept a path.
type TempFileLoader struct {
	// Filesystem to write to. Defaults to the OS filesystem.
	Fs afero.Fs

	// Directory for icon files. Defaults to the OS temporary directory.
	Dir string
}

func (l TempFileLoader) fs() afero.Fs {
	if l.Fs == nil {
		return afero.NewOsFs()
	}
	return l.Fs
}

func (l TempFileLoader) Load(data []byte) (*LoadedIcon, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("load icon: %w: empty data", ErrInvalidIcon)
	}

	// The native loader picks the decoder by extension. Formats the image
	// package does not know about are assumed to be ICO.
	ext := ".ico"
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		ext = "." + format
	}

	f, err := afero.TempFile(l.fs(), l.Dir, "trayicon-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("load icon: create temporary file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		l.fs().Remove(f.Name())
		return nil, fmt.Errorf("load icon: write %s: %w", f.Name(), err)
	}

	if err := f.Close(); err != nil {
		l.fs().Remove(f.Name())
		return nil, fmt.Errorf("load icon: close %s: %w", f.Name(), err)
	}

	return &LoadedIcon{Data: data, Path: f.Name()}, nil
}

func (l TempFileLoader) Release(icon *LoadedIcon) error {
	if icon == nil || icon.Path == "" {
		return nil
	}

	if err := l.fs().Remove(icon.Path); err != nil {
		return fmt.Errorf("release icon: %w", err)
	}

	return nil
}

// iconThemeName splits an icon file path into the theme path and icon name
// expected by StatusNotifierItem hosts.
func iconThemeName(path string) (string, string) {
	dir, file := filepath.Split(path)
	return filepath.Clean(dir), strings.TrimSuffix(file, filepath.Ext(file))
}
