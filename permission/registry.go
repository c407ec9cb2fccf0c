package permission

import (
	"errors"
	"sync"
)

const maxFlags = 64

// Registry maps flag names to bit positions within a [Mask].
// The list is append-only: a flag's position never changes once assigned.
type Registry struct {
	mu        sync.RWMutex
	nameToBit map[string]int
	names     []string
	frozen    bool
}

// NewRegistry creates an empty flag [Registry]. Flags are assigned bit
// positions in registration order, starting at bit 0.
func NewRegistry() *Registry {
	return &Registry{
		nameToBit: make(map[string]int),
	}
}

// Register assigns the next available bit to the named flag and returns the
// assigned bit index. Must be called before [Registry.Freeze].
func (r *Registry) Register(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, errors.New("registry frozen")
	}

	if name == "" {
		return -1, errors.New("flag name cannot be empty")
	}

	if _, exists := r.nameToBit[name]; exists {
		return -1, errors.New("flag already registered")
	}

	nextBit := len(r.names)
	if nextBit >= maxFlags {
		return -1, errors.New("flag limit exceeded")
	}

	r.nameToBit[name] = nextBit
	r.names = append(r.names, name)

	return nextBit, nil
}

// Bit returns the bit index for the named flag, or false if not registered.
func (r *Registry) Bit(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.nameToBit[name]
	return bit, ok
}

// Name returns the flag name for the given bit index, or false if unassigned.
func (r *Registry) Name(bit int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if bit < 0 || bit >= len(r.names) {
		return "", false
	}
	return r.names[bit], true
}

// Names returns the registered flag names in bit order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Freeze prevents further registrations. Must be called before the registry
// is used for parsing or validation.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered flags.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Full returns the mask with every registered flag set.
func (r *Registry) Full() Mask {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.names) == 0 {
		return 0
	}
	return Mask(1)<<len(r.names) - 1
}
