/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package weld

import (
	"sync"

	"github.com/pkg/errors"
)

/**
scopeRegistry maps custom scope identifiers to their external providers.

Singleton and transient lifetimes are handled by the container itself, everything else
is a synchronous get-or-create contract with the provider, which owns its own
concurrency discipline and disposal policy.
*/

type scopeRegistry struct {
	mu        sync.RWMutex
	providers map[string]ScopeProvider
}

func newScopeRegistry() *scopeRegistry {
	return &scopeRegistry{providers: make(map[string]ScopeProvider)}
}

func (t *scopeRegistry) register(scope string, provider ScopeProvider) error {
	if scope == ScopeSingleton || scope == ScopeTransient {
		return errors.Errorf("scope '%s' is built-in and can not be replaced", scope)
	}
	if provider == nil {
		return errors.Errorf("nil provider for scope '%s'", scope)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.providers[scope] = provider
	return nil
}

func (t *scopeRegistry) lookup(scope string) (ScopeProvider, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	provider, ok := t.providers[scope]
	return provider, ok
}

/**
MapScope is a minimal in-memory ScopeProvider, handy for tests and short-lived scopes.
*/

type MapScope struct {
	mu        sync.Mutex
	instances map[string]interface{}
}

func NewMapScope() *MapScope {
	return &MapScope{instances: make(map[string]interface{})}
}

func (t *MapScope) Get(name string, factory func() (interface{}, error)) (interface{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if obj, ok := t.instances[name]; ok {
		return obj, nil
	}
	obj, err := factory()
	if err != nil {
		return nil, err
	}
	t.instances[name] = obj
	return obj, nil
}

func (t *MapScope) Remove(name string) (interface{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	obj, ok := t.instances[name]
	delete(t.instances, name)
	return obj, ok
}
