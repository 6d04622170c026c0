package core

import (
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Registry counts live connections per username. A name is present while its
// count is at least one; several tabs of the same user collapse into one entry.
type Registry struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{counts: make(map[string]int)}
}

// Add counts one more connection for username. Blank names are ignored.
func (r *Registry) Add(username string) {
	key := strings.TrimSpace(username)
	if key == "" {
		return
	}

	r.mu.Lock()
	r.counts[key]++
	r.mu.Unlock()
}

// Remove drops one connection for username and deletes the entry when it was
// the last one. Unknown names are ignored.
func (r *Registry) Remove(username string) {
	key := strings.TrimSpace(username)
	if key == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.counts[key]
	if !ok {
		return
	}
	if n <= 1 {
		delete(r.counts, key)
		return
	}
	r.counts[key] = n - 1
}

// All returns a sorted copy of the present usernames.
func (r *Registry) All() Snapshot {
	r.mu.Lock()
	names := lo.Keys(r.counts)
	r.mu.Unlock()

	slices.Sort(names)
	return Snapshot(names)
}

// Exists reports whether username has at least one live connection.
func (r *Registry) Exists(username string) bool {
	key := strings.TrimSpace(username)

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.counts[key] >= 1
}

// Len returns the number of present usernames.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.counts)
}
