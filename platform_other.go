//go:build !(linux || freebsd || openbsd || netbsd || dragonfly || windows || darwin)

package traymenu

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// NewPlatform returns the native platform of the running system.
func NewPlatform(logger *zap.Logger) (Platform, error) {
	return nil, fmt.Errorf("tray on %s: %w", runtime.GOOS, ErrNotSupported)
}
