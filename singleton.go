/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package weld

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

/**
singletonCache is the per-container store of fully constructed singleton instances
together with the creation guard.

The guard gives two guarantees. Concurrent first-access from multiple goroutines
collapses in to a single factory invocation through the flight group, all callers
observe the same instance or the same failure. Within one logical construction chain
the in-creation set and the early-reference store break permissible cycles instead
of deadlocking on the flight group.
*/

type singletonCache struct {
	mu sync.RWMutex

	instances map[string]interface{}

	/**
	Completion order of singletons, destruction runs in reverse
	*/
	order []string

	/**
	Names whose construction started but not finished
	*/
	inCreation map[string]bool

	/**
	Allocated but not yet populated instances, exposed back in to setter cycles
	*/
	early map[string]interface{}

	/**
	Names whose early reference actually escaped in to another component
	*/
	earlyConsumed map[string]bool

	/**
	Component name to the names of components that were resolved in to it
	*/
	dependents map[string][]string

	afterCreation []func(name string)

	group singleflight.Group
}

func newSingletonCache() *singletonCache {
	return &singletonCache{
		instances:     make(map[string]interface{}),
		inCreation:    make(map[string]bool),
		early:         make(map[string]interface{}),
		earlyConsumed: make(map[string]bool),
		dependents:    make(map[string][]string),
	}
}

/**
Get returns the cached instance without any construction attempt.
*/

func (t *singletonCache) Get(name string) (interface{}, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	obj, ok := t.instances[name]
	return obj, ok
}

/**
GetOrCreate returns the cached instance or invokes the factory exactly once per name
per container lifetime. Concurrent callers for the same not yet created singleton block
until the winning construction completes, then observe the same instance or failure.

Recursive calls for a name already in creation on the current chain never reach this
method, the container serves them from the early-reference store instead.
*/

func (t *singletonCache) GetOrCreate(name string, factory func() (interface{}, error)) (interface{}, error) {
	if obj, ok := t.Get(name); ok {
		return obj, nil
	}

	obj, err, _ := t.group.Do(name, func() (interface{}, error) {
		// the winner may lose the race to a completed flight
		if obj, ok := t.Get(name); ok {
			return obj, nil
		}

		t.beginCreation(name)
		obj, err := factory()
		if err != nil {
			t.abortCreation(name)
			return nil, err
		}
		t.finishCreation(name, obj)
		return obj, nil
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (t *singletonCache) beginCreation(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inCreation[name] = true
}

func (t *singletonCache) abortCreation(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inCreation, name)
	delete(t.early, name)
	delete(t.earlyConsumed, name)
}

func (t *singletonCache) finishCreation(name string, obj interface{}) {
	t.mu.Lock()
	callbacks := make([]func(string), len(t.afterCreation))
	copy(callbacks, t.afterCreation)
	delete(t.inCreation, name)
	delete(t.early, name)
	t.instances[name] = obj
	t.order = append(t.order, name)
	t.mu.Unlock()

	// used to flush early-reference caches of interested parties
	for _, cb := range callbacks {
		cb(name)
	}
}

func (t *singletonCache) InCreation(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.inCreation[name]
}

/**
ExposeEarly publishes the allocated but not yet populated instance so that a setter
cycle can observe the final object identity before construction finishes.
*/

func (t *singletonCache) ExposeEarly(name string, obj interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.early[name] = obj
}

func (t *singletonCache) EarlyReference(name string) (interface{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	obj, ok := t.early[name]
	if ok {
		t.earlyConsumed[name] = true
	}
	return obj, ok
}

func (t *singletonCache) EarlyConsumed(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.earlyConsumed[name]
}

func (t *singletonCache) AfterCreation(cb func(name string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.afterCreation = append(t.afterCreation, cb)
}

/**
RegisterDependent records that 'dependent' was resolved in to 'name', so that
destruction of 'name' first destroys everything that depends on it.
*/

func (t *singletonCache) RegisterDependent(name, dependent string) {
	if name == dependent {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.dependents[name] {
		if existing == dependent {
			return
		}
	}
	t.dependents[name] = append(t.dependents[name], dependent)
}

func (t *singletonCache) Dependents(name string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.dependents[name]...)
}

func (t *singletonCache) Contains(name string) bool {
	_, ok := t.Get(name)
	return ok
}

func (t *singletonCache) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.order...)
}

func (t *singletonCache) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.instances = make(map[string]interface{})
	t.order = nil
	t.inCreation = make(map[string]bool)
	t.early = make(map[string]interface{})
	t.earlyConsumed = make(map[string]bool)
	t.dependents = make(map[string][]string)
}
