// Package port is the hand-off point between producers (sensors,
// controllers) and consumers (controllers, external transports). Each
// channel is a named float64 slot with a single producer; readers take
// consistent snapshots of whole channel groups.
package port

import (
	"fmt"
	"sync"

	"github.com/ja7ad/coregov/pkg/numeric"
)

// Registry maps channel names to their latest published value.
type Registry struct {
	mu    sync.RWMutex
	slots map[string]float64
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]float64)}
}

// Declare registers channels. Declaring an existing name is an error:
// every channel has exactly one producer.
func (r *Registry) Declare(names ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		if _, ok := r.slots[n]; ok {
			return fmt.Errorf("port: %q: %w", n, ErrDuplicate)
		}
		r.slots[n] = 0
		r.order = append(r.order, n)
	}
	return nil
}

// Publish writes one value per name, atomically with respect to readers.
// len(names) must equal v.Len().
func (r *Registry) Publish(names []string, v numeric.Vector) error {
	if len(names) != v.Len() {
		return fmt.Errorf("port: %d names for %d values: %w", len(names), v.Len(), ErrWidth)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range names {
		if _, ok := r.slots[n]; !ok {
			return fmt.Errorf("port: %q: %w", n, ErrUnknown)
		}
		r.slots[n] = v.At(i)
	}
	return nil
}

// Read snapshots the named channels into a vector, in the given order.
func (r *Registry) Read(names []string) (numeric.Vector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(numeric.Vector, len(names))
	for i, n := range names {
		v, ok := r.slots[n]
		if !ok {
			return nil, fmt.Errorf("port: %q: %w", n, ErrUnknown)
		}
		out[i] = v
	}
	return out, nil
}

// Names returns all declared channels in declaration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
