//go:build windows || darwin

package traymenu

import "go.uber.org/zap"

// NewPlatform returns the native platform of the running system.
func NewPlatform(logger *zap.Logger) (Platform, error) {
	return NewLanternPlatform(logger), nil
}
