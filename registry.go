/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package weld

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

/**
Registry holds all descriptors of one container level together with the alias map.

It is populated single-threaded during the configuration phase and frozen when the
container starts, after that every mutation fails fast and read paths take no
exclusive lock.
*/

type Registry struct {
	mu sync.RWMutex

	frozen bool

	descriptors map[string]*Descriptor
	aliases     map[string]string

	/**
	Merged parent-chain views, kept until explicitly invalidated
	*/
	merged map[string]*Descriptor

	log zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		descriptors: make(map[string]*Descriptor),
		aliases:     make(map[string]string),
		merged:      make(map[string]*Descriptor),
		log:         log,
	}
}

/**
Register binds the descriptor to its name. Overwriting an existing binding is allowed
and logged before the registry is frozen, afterwards it is an error unless the very
same descriptor is registered again.
*/

func (t *Registry) Register(d *Descriptor) error {
	if d == nil {
		return errors.New("nil descriptor")
	}
	if err := d.validate(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	existing, bound := t.descriptors[d.Name]
	if t.frozen {
		if bound && existing == d {
			return nil
		}
		return errors.Errorf("registry is frozen, can not register component '%s'", d.Name)
	}
	if bound && existing != d {
		t.log.Warn().Str("component", d.Name).Msg("overriding descriptor registration")
	}
	t.descriptors[d.Name] = d
	delete(t.merged, d.Name)
	return nil
}

/**
Alias binds an alternative name to the canonical one. Alias chains are allowed,
cycles are rejected on resolution.
*/

func (t *Registry) Alias(canonical, alias string) error {
	if alias == canonical {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return errors.Errorf("registry is frozen, can not register alias '%s'", alias)
	}
	if existing, ok := t.aliases[alias]; ok && existing != canonical {
		t.log.Warn().Str("alias", alias).Str("from", existing).Str("to", canonical).Msg("overriding alias registration")
	}
	t.aliases[alias] = canonical
	return nil
}

/**
ResolveAlias follows the alias chain down to the canonical name with cycle detection.
*/

func (t *Registry) ResolveAlias(name string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.resolveAlias(name)
}

func (t *Registry) resolveAlias(name string) (string, error) {
	canonical := name
	visited := map[string]bool{name: true}
	for {
		next, ok := t.aliases[canonical]
		if !ok {
			return canonical, nil
		}
		if visited[next] {
			return "", errors.Errorf("alias cycle detected starting from '%s'", name)
		}
		visited[next] = true
		canonical = next
	}
}

func (t *Registry) Lookup(name string) (*Descriptor, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	canonical, err := t.resolveAlias(name)
	if err != nil {
		return nil, false
	}
	d, ok := t.descriptors[canonical]
	return d, ok
}

func (t *Registry) Contains(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}

/**
Merge resolves the parent chain of the descriptor producing a flattened view.
Fails on a missing or cyclic parent chain. Results are cached until invalidated.
*/

func (t *Registry) Merge(name string) (*Descriptor, error) {
	t.mu.RLock()
	canonical, err := t.resolveAlias(name)
	if err != nil {
		t.mu.RUnlock()
		return nil, err
	}
	if m, ok := t.merged[canonical]; ok {
		t.mu.RUnlock()
		return m, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if m, ok := t.merged[canonical]; ok {
		return m, nil
	}
	m, err := t.mergeChain(canonical)
	if err != nil {
		return nil, err
	}
	t.merged[canonical] = m
	return m, nil
}

func (t *Registry) mergeChain(name string) (*Descriptor, error) {

	// walk up to the root ancestor first
	var chain []*Descriptor
	visited := make(map[string]bool)
	current := name
	for current != "" {
		if visited[current] {
			return nil, errors.Errorf("descriptor parent cycle detected starting from '%s'", name)
		}
		visited[current] = true
		canonical, err := t.resolveAlias(current)
		if err != nil {
			return nil, err
		}
		d, ok := t.descriptors[canonical]
		if !ok {
			return nil, errors.Errorf("parent descriptor '%s' of component '%s' is not registered", current, name)
		}
		chain = append(chain, d)
		current = d.Parent
	}

	merged := chain[len(chain)-1].clone()
	for i := len(chain) - 2; i >= 0; i-- {
		merged.overrideFrom(chain[i])
	}
	merged.Parent = ""
	return merged, nil
}

/**
CheckAliases resolves every registered alias, surfacing alias cycles before start.
*/

func (t *Registry) CheckAliases() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for alias := range t.aliases {
		if _, err := t.resolveAlias(alias); err != nil {
			return err
		}
	}
	return nil
}

/**
InvalidateMerged drops all cached merged views, used after a late descriptor rewrite.
*/

func (t *Registry) InvalidateMerged() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.merged = make(map[string]*Descriptor)
}

func (t *Registry) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.descriptors))
	for name := range t.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *Registry) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.descriptors)
}

func (t *Registry) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

func (t *Registry) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}

/**
Clear is called on container shutdown.
*/

func (t *Registry) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.descriptors = make(map[string]*Descriptor)
	t.aliases = make(map[string]string)
	t.merged = make(map[string]*Descriptor)
}
