/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package weld_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/weldlabs/weld"
)

type alpha struct {
	Beta *beta
}

type beta struct {
	Alpha *alpha
}

var AlphaClass = reflect.TypeOf((*alpha)(nil))
var BetaClass = reflect.TypeOf((*beta)(nil))

func TestSetterCycleResolves(t *testing.T) {

	first := weld.NewDescriptor("alpha", AlphaClass)
	first.Properties = []weld.Property{
		{Field: "Beta", Arg: weld.RefArg("beta")},
	}
	second := weld.NewDescriptor("beta", BetaClass)
	second.Properties = []weld.Property{
		{Field: "Alpha", Arg: weld.RefArg("alpha")},
	}

	container := weld.New()
	require.NoError(t, container.Register(first))
	require.NoError(t, container.Register(second))
	require.NoError(t, container.Start())

	a, err := container.Get("alpha")
	require.NoError(t, err)
	b, err := container.Get("beta")
	require.NoError(t, err)

	// both ends of the cycle see the final instances
	require.True(t, a.(*alpha).Beta == b)
	require.True(t, b.(*beta).Alpha == a)
}

func TestConstructorCycleFails(t *testing.T) {

	first := weld.NewDescriptor("alpha", AlphaClass)
	first.Lazy = true
	first.Constructor = func(args []interface{}) (interface{}, error) {
		return &alpha{Beta: args[0].(*beta)}, nil
	}
	first.Args = []weld.Arg{weld.RefArg("beta")}

	second := weld.NewDescriptor("beta", BetaClass)
	second.Lazy = true
	second.Constructor = func(args []interface{}) (interface{}, error) {
		return &beta{Alpha: args[0].(*alpha)}, nil
	}
	second.Args = []weld.Arg{weld.RefArg("alpha")}

	container := weld.New()
	require.NoError(t, container.Register(first))
	require.NoError(t, container.Register(second))
	require.NoError(t, container.Start())

	_, err := container.Get("alpha")
	require.Error(t, err)
	require.Contains(t, err.Error(), "circular reference")
	require.Contains(t, err.Error(), "alpha")
	require.Contains(t, err.Error(), "beta")
}

func TestConstructorCycleFailsEagerly(t *testing.T) {

	first := weld.NewDescriptor("alpha", AlphaClass)
	first.Constructor = func(args []interface{}) (interface{}, error) {
		return &alpha{Beta: args[0].(*beta)}, nil
	}
	first.Args = []weld.Arg{weld.RefArg("beta")}

	second := weld.NewDescriptor("beta", BetaClass)
	second.Constructor = func(args []interface{}) (interface{}, error) {
		return &beta{Alpha: args[0].(*alpha)}, nil
	}
	second.Args = []weld.Arg{weld.RefArg("alpha")}

	container := weld.New()
	require.NoError(t, container.Register(first))
	require.NoError(t, container.Register(second))

	err := container.Start()
	require.Error(t, err)
	require.Contains(t, err.Error(), "circular reference")
	require.Equal(t, weld.ContainerUninitialized, container.State())
}

func TestConstructorSeesEarlyReference(t *testing.T) {

	// the setter side allocates first, so the constructor side legally
	// receives the partially populated instance
	first := weld.NewDescriptor("alpha", AlphaClass)
	first.Properties = []weld.Property{
		{Field: "Beta", Arg: weld.RefArg("beta")},
	}

	second := weld.NewDescriptor("beta", BetaClass)
	second.Constructor = func(args []interface{}) (interface{}, error) {
		return &beta{Alpha: args[0].(*alpha)}, nil
	}
	second.Args = []weld.Arg{weld.RefArg("alpha")}

	container := weld.New()
	require.NoError(t, container.Register(first))
	require.NoError(t, container.Register(second))
	require.NoError(t, container.Start())

	a, err := container.Get("alpha")
	require.NoError(t, err)
	b, err := container.Get("beta")
	require.NoError(t, err)

	require.True(t, a.(*alpha).Beta == b)
	require.True(t, b.(*beta).Alpha == a)
}

func TestSelfReferenceFails(t *testing.T) {

	d := weld.NewDescriptor("alpha", AlphaClass)
	d.Lazy = true
	d.Constructor = func(args []interface{}) (interface{}, error) {
		return &alpha{}, nil
	}
	d.Args = []weld.Arg{weld.RefArg("alpha")}

	container := weld.New()
	require.NoError(t, container.Register(d))
	require.NoError(t, container.Start())

	_, err := container.Get("alpha")
	require.Error(t, err)
	require.Contains(t, err.Error(), "circular reference")
}

func TestDependsOnCycleIsConfigurationError(t *testing.T) {

	first := weld.NewDescriptor("alpha", AlphaClass)
	first.DependsOn = []string{"beta"}
	second := weld.NewDescriptor("beta", BetaClass)
	second.DependsOn = []string{"alpha"}

	container := weld.New()
	require.NoError(t, container.Register(first))
	require.NoError(t, container.Register(second))

	err := container.Start()
	require.Error(t, err)
	require.Contains(t, err.Error(), "cyclic depends-on")
}

func TestHookWrapAfterEarlyEscapeFails(t *testing.T) {

	first := weld.NewDescriptor("alpha", AlphaClass)
	first.Properties = []weld.Property{
		{Field: "Beta", Arg: weld.RefArg("beta")},
	}
	second := weld.NewDescriptor("beta", BetaClass)
	second.Properties = []weld.Property{
		{Field: "Alpha", Arg: weld.RefArg("alpha")},
	}

	container := weld.New()
	require.NoError(t, container.AddHook(weld.HookFuncs{
		After: func(instance interface{}, name string) (interface{}, error) {
			if name == "alpha" {
				// replace the instance after its early reference already escaped
				return &alpha{}, nil
			}
			return instance, nil
		},
	}))
	require.NoError(t, container.Register(first))
	require.NoError(t, container.Register(second))

	err := container.Start()
	require.Error(t, err)
	require.Contains(t, err.Error(), "early reference")
}
