/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package proxy

import (
	"reflect"

	"github.com/pkg/errors"
)

/**
interfaceEngine proxies exactly the method set of the declared interfaces.
*/

type interfaceEngine struct {
	interfaces   []reflect.Type
	interceptors []Interceptor
}

func newInterfaceEngine(interfaces []reflect.Type, interceptors []Interceptor) *interfaceEngine {
	return &interfaceEngine{
		interfaces:   interfaces,
		interceptors: interceptors,
	}
}

func (t *interfaceEngine) Kind() Kind {
	return KindInterface
}

func (t *interfaceEngine) Wrap(target interface{}) (*Proxy, error) {
	if target == nil {
		return nil, errors.New("nil proxy target")
	}
	value := reflect.ValueOf(target)
	targetType := value.Type()

	methods := make(map[string]reflect.Value)
	for _, iface := range t.interfaces {
		if !targetType.Implements(iface) {
			return nil, errors.Errorf("proxy target '%v' does not implement declared interface '%v'", targetType, iface)
		}
		for i := 0; i < iface.NumMethod(); i++ {
			name := iface.Method(i).Name
			methods[name] = value.MethodByName(name)
		}
	}
	if len(methods) == 0 {
		return nil, errors.Errorf("declared interfaces of proxy target '%v' expose no methods", targetType)
	}

	return &Proxy{
		kind:         KindInterface,
		target:       value,
		methods:      methods,
		interceptors: t.interceptors,
	}, nil
}

/**
subclassEngine proxies the full exported method set of the concrete target type,
including methods that belong to no interface.
*/

type subclassEngine struct {
	targetType   reflect.Type
	interceptors []Interceptor
}

func newSubclassEngine(targetType reflect.Type, interceptors []Interceptor) *subclassEngine {
	return &subclassEngine{
		targetType:   targetType,
		interceptors: interceptors,
	}
}

func (t *subclassEngine) Kind() Kind {
	return KindSubclass
}

func (t *subclassEngine) Wrap(target interface{}) (*Proxy, error) {
	if target == nil {
		return nil, errors.New("nil proxy target")
	}
	value := reflect.ValueOf(target)
	if !value.Type().AssignableTo(t.targetType) {
		return nil, errors.Errorf("proxy target has type '%v', engine was selected for '%v'", value.Type(), t.targetType)
	}

	methods := make(map[string]reflect.Value)
	for i := 0; i < value.NumMethod(); i++ {
		name := value.Type().Method(i).Name
		methods[name] = value.Method(i)
	}
	if len(methods) == 0 {
		return nil, errors.Errorf("proxy target '%v' exposes no methods", value.Type())
	}

	return &Proxy{
		kind:         KindSubclass,
		target:       value,
		methods:      methods,
		interceptors: t.interceptors,
	}, nil
}
