package resolve

import "sync"

// UsedSet remembers every locator handed out during one build. It lives for
// the duration of a build and is never persisted.
type UsedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewUsedSet returns an empty set.
func NewUsedSet() *UsedSet {
	return &UsedSet{seen: make(map[string]struct{})}
}

// Contains reports whether locator was already handed out.
func (u *UsedSet) Contains(locator string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.seen[locator]
	return ok
}

// Add records locator as used.
func (u *UsedSet) Add(locator string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.seen[locator] = struct{}{}
}

// Len returns the number of distinct locators used.
func (u *UsedSet) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.seen)
}
