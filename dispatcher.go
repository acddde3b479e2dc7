package traymenu

import "go.uber.org/zap"

// dispatcher forwards native events to the host.
//
// ignoreEvents is set only while the tree changes a check mark, so
// activations the toolkit fires as a side effect of that change are dropped.
// It is touched on the UI thread only.
type dispatcher struct {
	host         Host
	logger       *zap.Logger
	ignoreEvents bool
	kindOf       func(id int32) (Kind, bool)
}

func (d *dispatcher) ItemActivated(id int32) {
	if d.ignoreEvents {
		d.logger.Debug("suppressed activation", zap.Int32("id", id))
		return
	}

	kind, ok := d.kindOf(id)
	if !ok {
		d.logger.Warn("activation of unknown menu node", zap.Int32("id", id))
		return
	}

	if !kind.selectable() {
		return
	}

	d.host.OnMenuItemSelected(id)
}

func (d *dispatcher) MenuOpened() {
	d.host.OnMenuOpened()
}

// suppressed runs fn with activation events ignored.
func (d *dispatcher) suppressed(fn func() error) error {
	d.ignoreEvents = true
	defer func() { d.ignoreEvents = false }()

	return fn()
}
