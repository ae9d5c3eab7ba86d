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
SelectEngine decides between the two proxy strategies.

Subclass-based proxying is chosen when the optimize flag is set, the proxy-target-class
flag is set, or the target declares no usable interfaces. If subclass proxying is
chosen but the target type is itself an interface or an existing proxy, the decision
falls back to interface-based proxying, which then requires at least one interface.

The decision is deterministic and side-effect-free, repeated calls with the same
configuration always agree.
*/

func SelectEngine(config *Config) (Engine, error) {

	targetType := config.targetType()
	usable, err := usableInterfaces(config.Interfaces)
	if err != nil {
		return nil, err
	}

	if config.Optimize || config.ProxyTargetClass || len(usable) == 0 {
		if targetType == nil {
			return nil, errors.New("can not determine target type: either an interface or a target is required for proxy creation")
		}
		if targetType.Kind() == reflect.Interface || isProxyType(targetType) {
			if len(usable) == 0 {
				if targetType.Kind() == reflect.Interface && targetType != MarkerClass {
					usable = []reflect.Type{targetType}
				} else {
					return nil, errors.Errorf("target type '%v' requires interface-based proxying but declares no usable interface", targetType)
				}
			}
			return newInterfaceEngine(usable, config.Interceptors), nil
		}
		return newSubclassEngine(targetType, config.Interceptors), nil
	}

	return newInterfaceEngine(usable, config.Interceptors), nil
}

/**
Wrap selects the engine for the configuration and immediately proxies its target.
*/

func Wrap(config *Config) (*Proxy, error) {
	engine, err := SelectEngine(config)
	if err != nil {
		return nil, err
	}
	return engine.Wrap(config.Target)
}

/**
usableInterfaces drops the framework marker from the declared list. Anything that is
not an interface type is a configuration error.
*/

func usableInterfaces(interfaces []reflect.Type) ([]reflect.Type, error) {
	var usable []reflect.Type
	for _, iface := range interfaces {
		if iface == nil {
			continue
		}
		if iface.Kind() != reflect.Interface {
			return nil, errors.Errorf("declared proxy interface '%v' is not an interface type", iface)
		}
		if iface == MarkerClass {
			continue
		}
		usable = append(usable, iface)
	}
	return usable, nil
}

func isProxyType(typ reflect.Type) bool {
	return typ.Implements(MarkerClass) ||
		(typ.Kind() == reflect.Ptr && typ.Elem() == reflect.TypeOf(Proxy{}))
}
