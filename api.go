/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package weld

import (
	"io"
	"reflect"
	"time"
)

/**
Well-known scope identifiers. Any other identifier dispatches to a registered ScopeProvider.
*/

const (
	ScopeSingleton = "singleton"
	ScopeTransient = "transient"
)

/**
Role is an advisory hint about the place of a component in the overall application.
It never affects dependency resolution.
*/

type Role int

const (
	RoleApplication Role = iota
	RoleSupport
	RoleInfrastructure
)

func (t Role) String() string {
	switch t {
	case RoleApplication:
		return "application"
	case RoleSupport:
		return "support"
	case RoleInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

type ContainerState int32

const (
	ContainerUninitialized ContainerState = iota
	ContainerActive
	ContainerClosed
)

func (t ContainerState) String() string {
	switch t {
	case ContainerUninitialized:
		return "ContainerUninitialized"
	case ContainerActive:
		return "ContainerActive"
	case ContainerClosed:
		return "ContainerClosed"
	default:
		return "ContainerUnknown"
	}
}

type ComponentLifecycle int32

const (
	ComponentAllocated ComponentLifecycle = iota
	ComponentConstructing
	ComponentInitialized
	ComponentDestroying
	ComponentDestroyed
)

func (t ComponentLifecycle) String() string {
	switch t {
	case ComponentAllocated:
		return "ComponentAllocated"
	case ComponentConstructing:
		return "ComponentConstructing"
	case ComponentInitialized:
		return "ComponentInitialized"
	case ComponentDestroying:
		return "ComponentDestroying"
	case ComponentDestroyed:
		return "ComponentDestroyed"
	default:
		return "ComponentUnknown"
	}
}

/**
Initializer runs automatically after the instance is allocated and all dependencies
and properties are injected, between the before-init and after-init extension hooks.
*/

var InitializerClass = reflect.TypeOf((*Initializer)(nil)).Elem()

type Initializer interface {

	PostConstruct() error
}

/**
Disposer marks components that need to free resources on container close.
*/

var DisposerClass = reflect.TypeOf((*Disposer)(nil)).Elem()

type Disposer interface {

	Destroy() error
}

/**
ExtensionHook participates in the construction lifecycle of every component.

BeforeInit is called after instantiation and dependency injection, before PostConstruct.
AfterInit is called after PostConstruct. Either call may return a replacement instance,
this is the seam proxies are installed through. A hook error aborts construction of
that particular component only.
*/

var ExtensionHookClass = reflect.TypeOf((*ExtensionHook)(nil)).Elem()

type ExtensionHook interface {

	BeforeInit(instance interface{}, name string) (interface{}, error)

	AfterInit(instance interface{}, name string) (interface{}, error)
}

/**
ScopeProvider stores instances for a custom scope identifier. The provider owns its
concurrency discipline, the container calls it synchronously.
*/

var ScopeProviderClass = reflect.TypeOf((*ScopeProvider)(nil)).Elem()

type ScopeProvider interface {

	/**
	Returns the stored instance for the name or invokes the factory, stores and returns the result.
	*/
	Get(name string, factory func() (interface{}, error)) (interface{}, error)

	/**
	Removes the stored instance for the name and returns it for optional disposal by the caller.
	*/
	Remove(name string) (interface{}, bool)
}

/**
Publisher is the boundary the container notifies at fixed lifecycle moments.
Listener dispatch beyond the Publish call is up to the implementation.
*/

var PublisherClass = reflect.TypeOf((*Publisher)(nil)).Elem()

type Publisher interface {

	Publish(event interface{})
}

/**
StartedEvent is published once after a successful Start.
*/

type StartedEvent struct {
	ContainerID string
	At          time.Time
}

/**
ClosedEvent is published once after Close completes.
*/

type ClosedEvent struct {
	ContainerID string
	At          time.Time
}

/**
PropertyResolver enhances Properties with an additional source of values.
Higher priority resolvers are consulted first.
*/

var PropertyResolverClass = reflect.TypeOf((*PropertyResolver)(nil)).Elem()

type PropertyResolver interface {

	Priority() int

	GetProperty(key string) (value string, ok bool)
}

/**
Properties holds the placeholder values referenced by descriptor literals.
Merge values from multiple sources in to one Properties instance.
*/

var PropertiesClass = reflect.TypeOf((*Properties)(nil)).Elem()

type Properties interface {
	PropertyResolver

	/**
	Register additional property resolver. It would be sorted by priority.
	*/
	Register(PropertyResolver)
	PropertyResolvers() []PropertyResolver

	/**
	Loads properties from map, flattening nested maps with dot-separated keys.
	*/
	LoadMap(source map[string]interface{})

	/**
	Loads key=value properties from input stream.
	*/
	Load(reader io.Reader) error

	/**
	Loads properties from a YAML document.
	*/
	LoadYAML(reader io.Reader) error

	/**
	Loads properties from dotenv formatted content.
	*/
	LoadEnv(reader io.Reader) error

	/**
	Extends parent properties.
	*/
	Extend(parent Properties)

	Len() int
	Keys() []string
	Contains(key string) bool

	Get(key string) (value string, ok bool)
	GetString(key, def string) string
	GetBool(key string, def bool) bool
	GetInt(key string, def int) int
	GetFloat(key string, def float64) float64
	GetDuration(key string, def time.Duration) time.Duration

	Set(key string, value string)
	Remove(key string) bool
	Clear()
}
