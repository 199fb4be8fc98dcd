package container

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Scope is the lifetime boundary for scoped bindings. The pipeline host
// opens exactly one per inbound request and closes it once the response
// has been written.
type Scope struct {
	c  *Container
	id string

	mu        sync.Mutex
	instances map[string]any
	onClose   []func()
	closed    bool
}

// NewScope opens a scope backed by c.
func (c *Container) NewScope() *Scope {
	return &Scope{
		c:         c,
		id:        uuid.NewString(),
		instances: map[string]any{},
	}
}

// ID identifies the scope in logs.
func (s *Scope) ID() string { return s.id }

// Lookup resolves key. Scoped bindings are built once and cached for the
// lifetime of s; singleton and transient bindings behave as on the root.
func (s *Scope) Lookup(key string) (any, error) {
	b, ok := s.c.binding(key)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownBinding, key)
	}

	switch b.lifetime {
	case Singleton:
		return s.c.singleton(b), nil
	case Transient:
		if s.isClosed() {
			return nil, ErrScopeClosed
		}
		return b.factory(s), nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrScopeClosed
	}
	if inst, ok := s.instances[key]; ok {
		s.mu.Unlock()
		return inst, nil
	}
	s.mu.Unlock()

	// The factory may resolve other keys from s, so it runs unlocked.
	inst := b.factory(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrScopeClosed
	}
	if existing, ok := s.instances[key]; ok {
		return existing, nil
	}
	s.instances[key] = inst
	return inst, nil
}

// OnClose registers fn to run when the scope closes. Hooks run in reverse
// registration order.
func (s *Scope) OnClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.onClose = append(s.onClose, fn)
}

// Close runs OnClose hooks and drops every scoped instance. Later lookups
// fail with ErrScopeClosed. Close is idempotent.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	hooks := s.onClose
	s.onClose = nil
	s.instances = nil
	s.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}

func (s *Scope) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
