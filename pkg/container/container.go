// Package container provides a lightweight dependency injection container
// with transient, singleton and per-request (scoped) lifetimes.
//
//	c := container.New()
//	c.Scoped("request.context", func(container.Resolver) any { return &RequestContext{} })
//
//	s := c.NewScope()       // one per inbound request
//	defer s.Close()
//	rc, err := container.Resolve[*RequestContext](s, "request.context")
package container

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnknownBinding is returned when a key has not been registered.
	ErrUnknownBinding = errors.New("container: unknown binding")
	// ErrScopeRequired is returned when a scoped key is resolved outside a scope.
	ErrScopeRequired = errors.New("container: scoped binding resolved outside a scope")
	// ErrScopeClosed is returned by a Scope after Close.
	ErrScopeClosed = errors.New("container: scope is closed")
	// ErrWrongType is returned by Resolve when the instance has another type.
	ErrWrongType = errors.New("container: instance has unexpected type")
)

// Lifetime controls how often a factory is invoked.
type Lifetime int

const (
	// Transient bindings produce a new instance on every resolution.
	Transient Lifetime = iota
	// Singleton bindings are produced once per container.
	Singleton
	// Scoped bindings are produced once per Scope (one per request).
	Scoped
)

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	default:
		return fmt.Sprintf("lifetime(%d)", int(l))
	}
}

// Resolver looks up instances. Factories receive the resolver of the scope
// they are being built in (or the root container for singletons).
type Resolver interface {
	Lookup(key string) (any, error)
}

// Factory is a function that produces a service instance.
type Factory func(r Resolver) any

type binding struct {
	lifetime Lifetime
	factory  Factory

	once     sync.Once
	instance any
}

// Container holds bindings. It is safe for concurrent use.
type Container struct {
	mu       sync.RWMutex
	bindings map[string]*binding
}

// New returns an empty container.
func New() *Container {
	return &Container{bindings: map[string]*binding{}}
}

// Bind registers a factory under key. Each resolution invokes factory anew.
func (c *Container) Bind(key string, factory Factory) {
	c.register(key, Transient, factory)
}

// Singleton registers a factory that is called once; subsequent resolutions
// return the cached instance.
func (c *Container) Singleton(key string, factory Factory) {
	c.register(key, Singleton, factory)
}

// Scoped registers a factory that is called once per Scope.
func (c *Container) Scoped(key string, factory Factory) {
	c.register(key, Scoped, factory)
}

func (c *Container) register(key string, lt Lifetime, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[key] = &binding{lifetime: lt, factory: factory}
}

func (c *Container) binding(key string) (*binding, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bindings[key]
	return b, ok
}

// Lookup resolves transient and singleton bindings from the root. Scoped
// bindings need a Scope and fail with ErrScopeRequired.
func (c *Container) Lookup(key string) (any, error) {
	b, ok := c.binding(key)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownBinding, key)
	}
	switch b.lifetime {
	case Singleton:
		return c.singleton(b), nil
	case Scoped:
		return nil, fmt.Errorf("%w: %q", ErrScopeRequired, key)
	default:
		return b.factory(c), nil
	}
}

// Singletons are always built against the root so they can never capture a
// request's scoped instances.
func (c *Container) singleton(b *binding) any {
	b.once.Do(func() { b.instance = b.factory(c) })
	return b.instance
}

// Resolve looks key up in r and asserts the instance to T.
func Resolve[T any](r Resolver, key string) (T, error) {
	var zero T
	if r == nil {
		return zero, fmt.Errorf("%w: %q", ErrScopeRequired, key)
	}
	v, err := r.Lookup(key)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %T", ErrWrongType, key, v)
	}
	return t, nil
}
