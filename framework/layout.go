package framework

import "sync"

// Layout collects the handles and blocks of one rendering pass.
type Layout struct {
	mu      sync.Mutex
	area    string
	handles []string
	blocks  map[string]any
}

// NewLayout creates an empty layout for area.
func NewLayout(area string) *Layout {
	return &Layout{area: area, blocks: map[string]any{}}
}

// Area returns the layout area.
func (l *Layout) Area() string { return l.area }

// AddHandle appends a layout handle once.
func (l *Layout) AddHandle(h string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.handles {
		if existing == h {
			return
		}
	}
	l.handles = append(l.handles, h)
}

// Handles returns the handles in the order added.
func (l *Layout) Handles() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.handles...)
}

// SetBlock stores a block under name.
func (l *Layout) SetBlock(name string, block any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocks[name] = block
}

// Block returns the block stored under name.
func (l *Layout) Block(name string) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.blocks[name]
	return b, ok
}

// Reset drops all handles and blocks.
func (l *Layout) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handles = nil
	l.blocks = map[string]any{}
}
