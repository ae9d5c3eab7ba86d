/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package weld

import (
	"sync"
)

/**
FanoutPublisher is a minimal in-process Publisher calling every subscribed listener
synchronously in subscription order. Anything smarter belongs outside the container.
*/

type FanoutPublisher struct {
	mu        sync.RWMutex
	listeners []func(event interface{})
}

func NewFanoutPublisher() *FanoutPublisher {
	return &FanoutPublisher{}
}

func (t *FanoutPublisher) Subscribe(listener func(event interface{})) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, listener)
}

func (t *FanoutPublisher) Publish(event interface{}) {
	t.mu.RLock()
	listeners := make([]func(interface{}), len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.RUnlock()
	for _, listener := range listeners {
		listener(event)
	}
}

/**
nopPublisher is the default when the container owner wires no publisher.
*/

type nopPublisher struct{}

func (nopPublisher) Publish(interface{}) {}
