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
hookPipeline is the ordered list of extension hooks, append-only during the
configuration phase and applied in registration order around both join points.
*/

type hookPipeline struct {
	mu    sync.RWMutex
	hooks []ExtensionHook
}

func (t *hookPipeline) add(hook ExtensionHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, hook)
}

func (t *hookPipeline) list() []ExtensionHook {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]ExtensionHook(nil), t.hooks...)
}

/**
applyBeforeInit runs the pre-initialization join point. A failing hook aborts the
component, later hooks are not run for that instance.
*/

func (t *hookPipeline) applyBeforeInit(instance interface{}, name string) (interface{}, error) {
	current := instance
	for _, hook := range t.list() {
		next, err := hook.BeforeInit(current, name)
		if err != nil {
			return nil, errors.Wrapf(err, "before-init hook failed for component '%s'", name)
		}
		if next != nil {
			current = next
		}
	}
	return current, nil
}

func (t *hookPipeline) applyAfterInit(instance interface{}, name string) (interface{}, error) {
	current := instance
	for _, hook := range t.list() {
		next, err := hook.AfterInit(current, name)
		if err != nil {
			return nil, errors.Wrapf(err, "after-init hook failed for component '%s'", name)
		}
		if next != nil {
			current = next
		}
	}
	return current, nil
}

/**
HookFuncs adapts two plain functions to the ExtensionHook interface, either may be nil.
*/

type HookFuncs struct {
	Before func(instance interface{}, name string) (interface{}, error)
	After  func(instance interface{}, name string) (interface{}, error)
}

func (t HookFuncs) BeforeInit(instance interface{}, name string) (interface{}, error) {
	if t.Before == nil {
		return instance, nil
	}
	return t.Before(instance, name)
}

func (t HookFuncs) AfterInit(instance interface{}, name string) (interface{}, error) {
	if t.After == nil {
		return instance, nil
	}
	return t.After(instance, name)
}
