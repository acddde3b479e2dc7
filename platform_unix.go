//go:build linux || freebsd || openbsd || netbsd || dragonfly

package traymenu

import "go.uber.org/zap"

// NewPlatform returns the native platform of the running system.
func NewPlatform(logger *zap.Logger) (Platform, error) {
	return NewDBusPlatform(WithDBusLogger(logger)), nil
}
