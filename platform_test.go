package traymenu

import (
	"sync"
)

// fakePlatform is an in-memory Platform. Like GTK, it reports check mark
// changes as activations, synchronously, unless quiet is set.
type fakePlatform struct {
	wake     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
	clicks   chan int32
	opens    chan struct{}
	loader   IconLoader
	quiet    bool
	setupErr error

	// Owned by the loop goroutine.
	sink        EventSink
	root        *fakeWidget
	widgets     map[int32]*fakeWidget
	redraws     int
	icon        *LoadedIcon
	iconVisible bool
	iconTitle   string
	iconSets    int
}

type fakeWidget struct {
	platform *fakePlatform
	id       int32
	kind     Kind
	attrs    Attrs
	children []*fakeWidget

	// Titles in the order they were applied.
	titles []string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		clicks:  make(chan int32),
		opens:   make(chan struct{}),
		loader:  MemoryLoader{},
		widgets: make(map[int32]*fakeWidget),
	}
}

func (p *fakePlatform) Loop(ready func(root Container), drain func(), sink EventSink) error {
	if p.setupErr != nil {
		return p.setupErr
	}

	p.sink = sink
	p.root = &fakeWidget{platform: p, kind: KindSubmenu}
	ready(p.root)

	for {
		select {
		case <-p.quit:
			return nil
		case <-p.wake:
			drain()
		case id := <-p.clicks:
			sink.ItemActivated(id)
		case <-p.opens:
			sink.MenuOpened()
		}
	}
}

func (p *fakePlatform) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *fakePlatform) Quit() {
	p.quitOnce.Do(func() { close(p.quit) })
}

func (p *fakePlatform) IconLoader() IconLoader {
	return p.loader
}

func (p *fakePlatform) SetIcon(icon *LoadedIcon, title, tooltip string) error {
	p.icon = icon
	p.iconTitle = title
	p.iconVisible = true
	p.iconSets++
	return nil
}

func (p *fakePlatform) HideIcon() error {
	p.iconVisible = false
	return nil
}

func (p *fakePlatform) Redraw() {
	p.redraws++
}

func (w *fakeWidget) AddItem(id int32, attrs Attrs) (Widget, error) {
	child := w.add(id, KindItem, attrs)
	if attrs.Checked {
		child.echo()
	}
	return child, nil
}

func (w *fakeWidget) AddSeparator(id int32) (Widget, error) {
	return w.add(id, KindSeparator, Attrs{}), nil
}

func (w *fakeWidget) AddSubmenu(id int32, attrs Attrs) (Widget, Container, error) {
	child := w.add(id, KindSubmenu, attrs)
	return child, child, nil
}

func (w *fakeWidget) add(id int32, kind Kind, attrs Attrs) *fakeWidget {
	child := &fakeWidget{
		platform: w.platform,
		id:       id,
		kind:     kind,
		attrs:    attrs,
		titles:   []string{attrs.Title},
	}
	w.children = append(w.children, child)
	w.platform.widgets[id] = child
	return child
}

func (w *fakeWidget) Update(attrs Attrs) error {
	attrs.Checked = w.attrs.Checked
	w.attrs = attrs
	w.titles = append(w.titles, attrs.Title)
	return nil
}

func (w *fakeWidget) SetChecked(checked bool) error {
	w.attrs.Checked = checked
	w.echo()
	return nil
}

func (w *fakeWidget) echo() {
	if !w.platform.quiet {
		w.platform.sink.ItemActivated(w.id)
	}
}

// countWidgets returns the number of widgets below w.
func (w *fakeWidget) countWidgets() int {
	n := 0
	for _, child := range w.children {
		n += 1 + child.countWidgets()
	}
	return n
}
