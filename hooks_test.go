/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package weld_test

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/weldlabs/weld"
)

type greeter struct {
	log   *journal
	ready bool
}

func (t *greeter) PostConstruct() error {
	t.log.record("post-construct")
	t.ready = true
	return nil
}

var GreeterClass = reflect.TypeOf((*greeter)(nil))

func greeterDescriptor(log *journal) *weld.Descriptor {
	d := weld.NewDescriptor("greeter", GreeterClass)
	d.Constructor = func([]interface{}) (interface{}, error) {
		return &greeter{log: log}, nil
	}
	return d
}

func TestHookJoinPointOrder(t *testing.T) {

	log := new(journal)

	container := weld.New()
	require.NoError(t, container.AddHook(weld.HookFuncs{
		Before: func(instance interface{}, name string) (interface{}, error) {
			log.record("before:" + name)
			return instance, nil
		},
		After: func(instance interface{}, name string) (interface{}, error) {
			log.record("after:" + name)
			return instance, nil
		},
	}))
	require.NoError(t, container.Register(greeterDescriptor(log)))
	require.NoError(t, container.Start())

	require.Equal(t, []string{"before:greeter", "post-construct", "after:greeter"}, log.entries)
}

func TestHooksRunInRegistrationOrder(t *testing.T) {

	log := new(journal)

	container := weld.New()
	require.NoError(t, container.AddHook(weld.HookFuncs{
		Before: func(instance interface{}, name string) (interface{}, error) {
			log.record("first")
			return instance, nil
		},
	}))
	require.NoError(t, container.AddHook(weld.HookFuncs{
		Before: func(instance interface{}, name string) (interface{}, error) {
			log.record("second")
			return instance, nil
		},
	}))
	require.NoError(t, container.Register(greeterDescriptor(log)))
	require.NoError(t, container.Start())

	require.Equal(t, []string{"first", "second", "post-construct"}, log.entries)
}

func TestHookReplacementBecomesTheSingleton(t *testing.T) {

	log := new(journal)
	replacement := &greeter{log: log}

	container := weld.New()
	require.NoError(t, container.AddHook(weld.HookFuncs{
		After: func(instance interface{}, name string) (interface{}, error) {
			if name == "greeter" {
				return replacement, nil
			}
			return instance, nil
		},
	}))
	require.NoError(t, container.Register(greeterDescriptor(log)))
	require.NoError(t, container.Start())

	obj, err := container.Get("greeter")
	require.NoError(t, err)
	require.True(t, obj == replacement)

	again, err := container.Get("greeter")
	require.NoError(t, err)
	require.True(t, again == replacement)
}

func TestHookNilResultKeepsInstance(t *testing.T) {

	log := new(journal)

	container := weld.New()
	require.NoError(t, container.AddHook(weld.HookFuncs{
		Before: func(instance interface{}, name string) (interface{}, error) {
			return nil, nil
		},
	}))
	require.NoError(t, container.Register(greeterDescriptor(log)))
	require.NoError(t, container.Start())

	obj, err := container.Get("greeter")
	require.NoError(t, err)
	require.IsType(t, &greeter{}, obj)
	require.True(t, obj.(*greeter).ready)
}

func TestFailingHookAbortsOnlyThatComponent(t *testing.T) {

	log := new(journal)

	failing := weld.NewDescriptor("failing", GreeterClass)
	failing.Lazy = true
	failing.Constructor = func([]interface{}) (interface{}, error) {
		return &greeter{log: log}, nil
	}

	container := weld.New()
	require.NoError(t, container.AddHook(weld.HookFuncs{
		Before: func(instance interface{}, name string) (interface{}, error) {
			if name == "failing" {
				return nil, errors.New("unsupported component")
			}
			return instance, nil
		},
	}))
	require.NoError(t, container.Register(greeterDescriptor(log)))
	require.NoError(t, container.Register(failing))
	require.NoError(t, container.Start())

	_, err := container.Get("failing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "before-init hook failed for component 'failing'")

	obj, err := container.Get("greeter")
	require.NoError(t, err)
	require.True(t, obj.(*greeter).ready)
}

func TestFailingPostConstructAbortsComponent(t *testing.T) {

	d := weld.NewDescriptor("broken", reflect.TypeOf((*failingInitializer)(nil)))
	d.Lazy = true

	container := weld.New()
	require.NoError(t, container.Register(d))
	require.NoError(t, container.Start())

	_, err := container.Get("broken")
	require.Error(t, err)
	require.Contains(t, err.Error(), "post construct of component 'broken' failed")
	require.False(t, container.ContainsSingleton("broken"))
}

type failingInitializer struct{}

func (t *failingInitializer) PostConstruct() error {
	return errors.New("schema migration failed")
}

func TestAddHookAfterStart(t *testing.T) {

	container := weld.New()
	require.NoError(t, container.Start())

	err := container.AddHook(weld.HookFuncs{})
	require.Error(t, err)
	require.IsType(t, &weld.StateError{}, err)
}
