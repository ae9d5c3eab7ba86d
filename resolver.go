/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package weld

import (
	"reflect"
)

/**
Dependency resolution by required type with deterministic tie-breaking.

Candidates are gathered from the local registry and the parent chain, a local
descriptor shadows a parent descriptor of the same name. Ambiguity is always either
resolved by an explicit rule or reported as an error, never by an arbitrary pick.
*/

type candidate struct {
	name       string
	descriptor *Descriptor

	/**
	Container level owning the candidate, used by construction to route to the right cache
	*/
	owner *Container
}

func (t *Container) candidatesByType(requiredType reflect.Type, exclude map[string]bool) ([]candidate, error) {
	var out []candidate
	seen := make(map[string]bool)
	for level := t; level != nil; level = level.parent {
		for _, name := range level.registry.Names() {
			if seen[name] || exclude[name] {
				continue
			}
			merged, err := level.registry.Merge(name)
			if err != nil {
				return nil, err
			}
			// child level shadows the parent by name regardless of candidacy
			seen[name] = true
			if merged.Abstract || !merged.AutowireCandidate {
				continue
			}
			if !merged.assignable(requiredType) {
				continue
			}
			out = append(out, candidate{name: name, descriptor: merged, owner: level})
		}
	}
	return out, nil
}

/**
resolveCandidate applies the tie-break rules in order: explicit qualifier match wins
outright, then a unique primary candidate, then the unique highest explicit priority,
otherwise the ambiguity is reported.
*/

func (t *Container) resolveCandidate(requiredType reflect.Type, qualifier string, exclude map[string]bool, optional bool) (candidate, bool, error) {

	candidates, err := t.candidatesByType(requiredType, exclude)
	if err != nil {
		return candidate{}, false, err
	}

	if qualifier != "" {
		for _, c := range candidates {
			if c.name == qualifier {
				return c, true, nil
			}
			if canonical, err := c.owner.registry.ResolveAlias(qualifier); err == nil && canonical == c.name {
				return c, true, nil
			}
		}
		if optional {
			return candidate{}, false, nil
		}
		return candidate{}, false, &NotFoundError{Type: requiredType, Qualifier: qualifier}
	}

	switch len(candidates) {
	case 0:
		if optional {
			return candidate{}, false, nil
		}
		return candidate{}, false, &NotFoundError{Type: requiredType}
	case 1:
		return candidates[0], true, nil
	}

	var primaries []candidate
	for _, c := range candidates {
		if c.descriptor.Primary {
			primaries = append(primaries, c)
		}
	}
	if len(primaries) == 1 {
		return primaries[0], true, nil
	}
	if len(primaries) > 1 {
		return candidate{}, false, &AmbiguityError{Type: requiredType, Candidates: candidateNames(primaries)}
	}

	if best, ok := uniqueHighestPriority(candidates); ok {
		return best, true, nil
	}

	return candidate{}, false, &AmbiguityError{Type: requiredType, Candidates: candidateNames(candidates)}
}

func uniqueHighestPriority(candidates []candidate) (candidate, bool) {
	best := candidates[0]
	unique := true
	for _, c := range candidates[1:] {
		switch {
		case c.descriptor.Priority > best.descriptor.Priority:
			best = c
			unique = true
		case c.descriptor.Priority == best.descriptor.Priority:
			unique = false
		}
	}
	return best, unique
}

func candidateNames(candidates []candidate) []string {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.name)
	}
	return names
}

/**
chain tracks the currently constructing component names of one logical construction
chain. Construction within a chain is single-goroutine, the chain is passed explicitly
and never stored on the container.
*/

type chain struct {
	stack   []string
	visited map[string]bool
}

func newChain() *chain {
	return &chain{visited: make(map[string]bool)}
}

func (t *chain) push(name string) error {
	if t.visited[name] {
		return &CircularReferenceError{Chain: append(t.cycleFrom(name), name)}
	}
	t.visited[name] = true
	t.stack = append(t.stack, name)
	return nil
}

func (t *chain) pop() {
	if n := len(t.stack); n > 0 {
		delete(t.visited, t.stack[n-1])
		t.stack = t.stack[:n-1]
	}
}

func (t *chain) contains(name string) bool {
	return t.visited[name]
}

func (t *chain) cycleFrom(name string) []string {
	for i, n := range t.stack {
		if n == name {
			return append([]string(nil), t.stack[i:]...)
		}
	}
	return append([]string(nil), t.stack...)
}
