package lang

import (
	"strconv"
	"sync"
)

// UniqueNames hands out names that are unique within one render scope. A
// scope is normally one output file; create a new UniqueNames (or Reset an
// existing one) for each.
type UniqueNames struct {
	mu    sync.Mutex
	index map[string]map[string]int
}

// NewUniqueNames returns an empty scope.
func NewUniqueNames() *UniqueNames {
	return &UniqueNames{index: make(map[string]map[string]int)}
}

// Reset forgets every name handed out so far.
func (u *UniqueNames) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.index = make(map[string]map[string]int)
}

// Next returns prefix + base + n + suffix where n counts, from zero, the
// previous requests for base under key in this scope. The base token is not
// validated.
func (u *UniqueNames) Next(key, base, prefix, suffix string) string {
	u.mu.Lock()
	keymap, ok := u.index[key]
	if !ok {
		if u.index == nil {
			u.index = make(map[string]map[string]int)
		}
		keymap = make(map[string]int)
		u.index[key] = keymap
	}
	n := keymap[base]
	keymap[base] = n + 1
	u.mu.Unlock()

	return prefix + base + strconv.Itoa(n) + suffix
}
