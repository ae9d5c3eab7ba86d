/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package weld

import (
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

/**
Container composes the descriptor registry, the dependency resolver and the singleton
cache behind the public construction and lookup API.

State machine: ContainerUninitialized -> ContainerActive -> ContainerClosed.
Start freezes the registry, validates the configuration and eagerly builds all
non-lazy singletons, Close destroys them in reverse dependency order. All lookup and
construction operations fail fast outside the active window.

A container holds at most one parent, lookups that miss locally delegate to it and
local descriptors always shadow parent descriptors of the same name.
*/

type Container struct {
	id    string
	idSet bool

	state int32

	parent    *Container
	parentSet bool

	/**
	Guards the immutable-once-set fields: id and parent
	*/
	setMu sync.Mutex

	registry   *Registry
	singletons *singletonCache
	scopes     *scopeRegistry
	hooks      *hookPipeline
	publisher  Publisher
	properties Properties

	/**
	Lifecycle per component name, written under lifecycleMu
	*/
	lifecycleMu sync.Mutex
	lifecycles  map[string]ComponentLifecycle

	closeOnce sync.Once

	log zerolog.Logger
}

type Option func(*Container)

func WithLogger(log zerolog.Logger) Option {
	return func(t *Container) {
		t.log = log
	}
}

func WithParent(parent *Container) Option {
	return func(t *Container) {
		t.parent = parent
		t.parentSet = true
	}
}

func WithPublisher(publisher Publisher) Option {
	return func(t *Container) {
		t.publisher = publisher
	}
}

func WithProperties(properties Properties) Option {
	return func(t *Container) {
		t.properties = properties
	}
}

func WithID(id string) Option {
	return func(t *Container) {
		t.id = id
		t.idSet = true
	}
}

func New(options ...Option) *Container {
	t := &Container{
		singletons: newSingletonCache(),
		scopes:     newScopeRegistry(),
		hooks:      &hookPipeline{},
		publisher:  nopPublisher{},
		log:        zerolog.Nop(),
		lifecycles: make(map[string]ComponentLifecycle),
	}
	for _, option := range options {
		option(t)
	}
	t.registry = NewRegistry(t.log)
	if t.properties == nil {
		t.properties = NewProperties()
	}
	if t.parent != nil {
		t.properties.Extend(t.parent.properties)
	}
	t.singletons.AfterCreation(func(name string) {
		t.log.Debug().Str("component", name).Msg("singleton created")
	})
	return t
}

func (t *Container) ID() string {
	t.setMu.Lock()
	defer t.setMu.Unlock()
	return t.id
}

/**
SetID assigns the container id at most once.
*/

func (t *Container) SetID(id string) error {
	t.setMu.Lock()
	defer t.setMu.Unlock()
	if t.idSet {
		return &StateError{Op: "set-id", State: t.State()}
	}
	t.id = id
	t.idSet = true
	return nil
}

/**
SetParent assigns the parent container at most once, before Start.
*/

func (t *Container) SetParent(parent *Container) error {
	if t.State() != ContainerUninitialized {
		return errContainerNotActive("set-parent", t.State())
	}
	t.setMu.Lock()
	defer t.setMu.Unlock()
	if t.parentSet {
		return &StateError{Op: "set-parent", State: t.State()}
	}
	t.parent = parent
	t.parentSet = true
	t.properties.Extend(parent.properties)
	return nil
}

func (t *Container) Parent() (*Container, bool) {
	t.setMu.Lock()
	defer t.setMu.Unlock()
	if t.parent != nil {
		return t.parent, true
	}
	return nil, false
}

func (t *Container) State() ContainerState {
	return ContainerState(atomic.LoadInt32(&t.state))
}

func (t *Container) Properties() Properties {
	return t.properties
}

func (t *Container) Registry() *Registry {
	return t.registry
}

/**
Register binds a descriptor, expected to happen single-threaded during the
configuration phase. Fails once the container started.
*/

func (t *Container) Register(d *Descriptor) error {
	if t.State() == ContainerClosed {
		return errContainerNotActive("register", t.State())
	}
	return t.registry.Register(d)
}

func (t *Container) Alias(canonical, alias string) error {
	if t.State() == ContainerClosed {
		return errContainerNotActive("alias", t.State())
	}
	return t.registry.Alias(canonical, alias)
}

func (t *Container) RegisterScope(scope string, provider ScopeProvider) error {
	if t.State() != ContainerUninitialized {
		return errContainerNotActive("register-scope", t.State())
	}
	return t.scopes.register(scope, provider)
}

func (t *Container) AddHook(hook ExtensionHook) error {
	if t.State() != ContainerUninitialized {
		return errContainerNotActive("add-hook", t.State())
	}
	t.hooks.add(hook)
	return nil
}

/**
Start validates the whole configuration before any instantiation begins, then eagerly
builds all non-lazy singletons in an order consistent with the depends-on declarations.
The container never ends up half-started: a construction failure during the eager phase
destroys whatever was already built and reports the error.
*/

func (t *Container) Start() error {
	if t.State() != ContainerUninitialized {
		return errContainerNotActive("start", t.State())
	}

	t.registry.Freeze()

	order, err := t.validateConfiguration()
	if err != nil {
		return err
	}

	for _, name := range order {
		merged, err := t.registry.Merge(name)
		if err != nil {
			t.rollbackEager()
			return err
		}
		if merged.Abstract || merged.Lazy || !merged.singleton() {
			continue
		}
		if _, err := t.getComponent(name, newChain()); err != nil {
			t.rollbackEager()
			return errors.Wrapf(err, "eager construction of singleton '%s' failed", name)
		}
	}

	atomic.StoreInt32(&t.state, int32(ContainerActive))
	t.log.Info().Str("container", t.id).Int("components", t.registry.Len()).Msg("container started")
	t.publisher.Publish(StartedEvent{ContainerID: t.id, At: time.Now()})
	return nil
}

/**
validateConfiguration detects configuration errors before any instantiation: missing
or cyclic descriptor parents, alias cycles, descriptors with no concrete implementation
and cycles in the depends-on declarations. Returns a topological order of all names
consistent with depends-on.
*/

func (t *Container) validateConfiguration() ([]string, error) {

	names := t.registry.Names()

	for _, name := range names {
		merged, err := t.registry.Merge(name)
		if err != nil {
			return nil, err
		}
		if merged.Abstract {
			continue
		}
		if merged.Type == nil && merged.Constructor == nil {
			return nil, errConfig("descriptor '%s' resolves to no concrete implementation type", name)
		}
		if merged.Constructor == nil {
			if merged.Type == nil || merged.Type.Kind() != reflect.Ptr || merged.Type.Elem().Kind() != reflect.Struct {
				return nil, errConfig("descriptor '%s' without a constructor must have a pointer to struct type, got '%v'", name, merged.Type)
			}
			if len(merged.Args) > 0 {
				return nil, errConfig("descriptor '%s' declares constructor arguments but no constructor", name)
			}
		}
		for _, dep := range merged.DependsOn {
			if !t.containsAnyLevel(dep) {
				return nil, errConfig("depends-on target '%s' of component '%s' is not registered", dep, name)
			}
		}
	}

	if err := t.registry.CheckAliases(); err != nil {
		return nil, err
	}

	return t.dependsOnOrder(names)
}

/**
dependsOnOrder is a depth-first topological sort over the depends-on declarations only.
A cycle here is a fatal configuration error, distinct from a constructor cycle.
*/

func (t *Container) dependsOnOrder(names []string) ([]string, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var order []string

	var visit func(name string, trail []string) error
	visit = func(name string, trail []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return errConfig("cyclic depends-on declarations [%s]", joinTrail(append(trail, name)))
		}
		color[name] = gray
		if merged, err := t.registry.Merge(name); err == nil {
			for _, dep := range merged.DependsOn {
				if t.registry.Contains(dep) {
					if err := visit(dep, append(trail, name)); err != nil {
						return err
					}
				}
			}
		}
		color[name] = black
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (t *Container) rollbackEager() {
	for _, name := range reverse(t.singletons.Names()) {
		t.destroySingleton(name)
	}
	t.singletons.Clear()
	t.lifecycleMu.Lock()
	t.lifecycles = make(map[string]ComponentLifecycle)
	t.lifecycleMu.Unlock()
}

/**
Close is idempotent. It destroys singletons in reverse dependency order, catching and
logging any individual teardown failure so that one failing component never prevents
the rest from being torn down.
*/

func (t *Container) Close() error {
	t.closeOnce.Do(func() {
		active := t.State() == ContainerActive
		atomic.StoreInt32(&t.state, int32(ContainerClosed))

		if active {
			for _, name := range reverse(t.singletons.Names()) {
				t.destroySingleton(name)
			}
		}

		t.singletons.Clear()
		t.registry.Clear()

		t.log.Info().Str("container", t.id).Msg("container closed")
		t.publisher.Publish(ClosedEvent{ContainerID: t.id, At: time.Now()})
	})
	return nil
}

/**
destroySingleton first destroys everything that depends on the component, then runs
its own teardown hook. Failures are logged, never propagated.
*/

func (t *Container) destroySingleton(name string) {
	if !t.markDestroying(name) {
		return
	}

	for _, dependent := range t.singletons.Dependents(name) {
		t.destroySingleton(dependent)
	}

	obj, ok := t.singletons.Get(name)
	if !ok {
		t.setLifecycle(name, ComponentDestroyed)
		return
	}
	if disposer, ok := obj.(Disposer); ok {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.log.Error().Str("component", name).Interface("panic", r).Msg("component teardown panicked")
				}
			}()
			if err := disposer.Destroy(); err != nil {
				t.log.Error().Str("component", name).Err(err).Msg("component teardown failed")
			}
		}()
	}
	t.setLifecycle(name, ComponentDestroyed)
}

func (t *Container) markDestroying(name string) bool {
	t.lifecycleMu.Lock()
	defer t.lifecycleMu.Unlock()
	switch t.lifecycles[name] {
	case ComponentDestroying, ComponentDestroyed:
		return false
	}
	t.lifecycles[name] = ComponentDestroying
	return true
}

func (t *Container) setLifecycle(name string, lifecycle ComponentLifecycle) {
	t.lifecycleMu.Lock()
	defer t.lifecycleMu.Unlock()
	t.lifecycles[name] = lifecycle
}

func (t *Container) Lifecycle(name string) ComponentLifecycle {
	t.lifecycleMu.Lock()
	defer t.lifecycleMu.Unlock()
	return t.lifecycles[name]
}

/**
Get returns the component instance by name, constructing on first demand.
*/

func (t *Container) Get(name string) (interface{}, error) {
	if t.State() != ContainerActive {
		return nil, errContainerNotActive("get", t.State())
	}
	return t.getComponent(name, newChain())
}

/**
GetByType resolves the single matching autowire candidate for the required type
across this container and its parents, constructing it on first demand.
*/

func (t *Container) GetByType(requiredType reflect.Type) (interface{}, error) {
	return t.GetQualified(requiredType, "")
}

func (t *Container) GetQualified(requiredType reflect.Type, qualifier string) (interface{}, error) {
	if t.State() != ContainerActive {
		return nil, errContainerNotActive("get-by-type", t.State())
	}
	c, _, err := t.resolveCandidate(requiredType, qualifier, nil, false)
	if err != nil {
		return nil, err
	}
	return t.getComponent(c.name, newChain())
}

func (t *Container) Contains(name string) bool {
	return t.containsAnyLevel(name)
}

func (t *Container) containsAnyLevel(name string) bool {
	for level := t; level != nil; level = level.parent {
		if level.registry.Contains(name) {
			return true
		}
	}
	return false
}

func (t *Container) ContainsSingleton(name string) bool {
	for level := t; level != nil; level = level.parent {
		if level.singletons.Contains(name) {
			return true
		}
	}
	return false
}

func (t *Container) SingletonNames() []string {
	return t.singletons.Names()
}

/**
SingletonInCreation reports whether the named singleton started constructing but has
not finished yet, useful for hooks that must not touch half-built components.
*/

func (t *Container) SingletonInCreation(name string) bool {
	return t.singletons.InCreation(name)
}

/**
getComponent locates the descriptor (local level shadows the parent) and routes
construction through the lifetime policy of its scope.
*/

func (t *Container) getComponent(name string, ch *chain) (interface{}, error) {

	owner, merged, err := t.lookupDescriptor(name)
	if err != nil {
		return nil, err
	}

	if merged.Abstract {
		return nil, errConfig("abstract descriptor '%s' can not be instantiated", merged.Name)
	}

	switch merged.scopeOrDefault() {

	case ScopeSingleton:
		if obj, ok := owner.singletons.Get(merged.Name); ok {
			return obj, nil
		}
		if ch.contains(merged.Name) {
			// a reference back in to the current construction chain, allowed only
			// when the partially built instance is already allocated
			if early, ok := owner.singletons.EarlyReference(merged.Name); ok {
				return early, nil
			}
			return nil, &CircularReferenceError{Chain: append(ch.cycleFrom(merged.Name), merged.Name)}
		}
		return owner.singletons.GetOrCreate(merged.Name, func() (interface{}, error) {
			return owner.buildComponent(merged, ch)
		})

	case ScopeTransient:
		return owner.buildComponent(merged, ch)

	default:
		provider, ok := owner.scopes.lookup(merged.scopeOrDefault())
		if !ok {
			return nil, errConfig("no scope provider registered for scope '%s' of component '%s'", merged.scopeOrDefault(), merged.Name)
		}
		return provider.Get(merged.Name, func() (interface{}, error) {
			return owner.buildComponent(merged, ch)
		})
	}
}

func (t *Container) lookupDescriptor(name string) (*Container, *Descriptor, error) {
	for level := t; level != nil; level = level.parent {
		if level.registry.Contains(name) {
			merged, err := level.registry.Merge(name)
			if err != nil {
				return nil, nil, err
			}
			return level, merged, nil
		}
	}
	return nil, nil, &NotFoundError{Name: name}
}

/**
buildComponent runs the full construction pipeline for one instance: depends-on
pre-initialization, constructor argument resolution, instantiation, early reference
exposure, property injection, the two hook join points around PostConstruct.
*/

func (t *Container) buildComponent(merged *Descriptor, ch *chain) (obj interface{}, err error) {

	name := merged.Name

	if err := ch.push(name); err != nil {
		return nil, err
	}
	defer ch.pop()

	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("construction of component '%s' with type '%v' recovered with error %v", name, merged.Type, r)
		}
	}()

	t.setLifecycle(name, ComponentConstructing)
	t.log.Debug().Str("component", name).Msg("constructing")

	for _, dep := range merged.DependsOn {
		if _, err := t.getComponent(dep, ch); err != nil {
			return nil, errors.Wrapf(err, "depends-on target '%s' of component '%s' failed", dep, name)
		}
		t.singletons.RegisterDependent(dep, name)
	}

	args, err := t.resolveArgs(merged, ch)
	if err != nil {
		return nil, err
	}

	instance, err := t.instantiate(merged, args)
	if err != nil {
		return nil, err
	}
	t.setLifecycle(name, ComponentAllocated)

	if merged.singleton() {
		// the identity is allocated, fields are not yet all set
		t.singletons.ExposeEarly(name, instance)
	}

	if err := t.injectProperties(merged, instance, ch); err != nil {
		return nil, err
	}

	processed, err := t.hooks.applyBeforeInit(instance, name)
	if err != nil {
		return nil, err
	}

	if initializer, ok := processed.(Initializer); ok {
		if err := initializer.PostConstruct(); err != nil {
			return nil, errors.Wrapf(err, "post construct of component '%s' failed", name)
		}
	}

	processed, err = t.hooks.applyAfterInit(processed, name)
	if err != nil {
		return nil, err
	}

	if merged.singleton() && processed != instance && t.singletons.EarlyConsumed(name) {
		return nil, errConfig(
			"component '%s' was wrapped by an extension hook after its early reference escaped in to a circular dependency", name)
	}

	t.setLifecycle(name, ComponentInitialized)
	return processed, nil
}

func (t *Container) instantiate(merged *Descriptor, args []interface{}) (interface{}, error) {
	if merged.Constructor != nil {
		obj, err := merged.Constructor(args)
		if err != nil {
			return nil, errors.Wrapf(err, "constructor of component '%s' failed", merged.Name)
		}
		if obj == nil {
			return nil, errors.Errorf("constructor of component '%s' produced nil", merged.Name)
		}
		if merged.Type != nil && !reflect.TypeOf(obj).AssignableTo(merged.Type) {
			if !(merged.Type.Kind() == reflect.Interface && reflect.TypeOf(obj).Implements(merged.Type)) {
				return nil, errors.Errorf("constructor of component '%s' produced '%v', expected '%v'", merged.Name, reflect.TypeOf(obj), merged.Type)
			}
		}
		return obj, nil
	}
	return reflect.New(merged.Type.Elem()).Interface(), nil
}

func (t *Container) resolveArgs(merged *Descriptor, ch *chain) ([]interface{}, error) {
	if len(merged.Args) == 0 {
		return nil, nil
	}
	args := make([]interface{}, 0, len(merged.Args))
	for i, arg := range merged.Args {
		value, err := t.resolveArg(merged.Name, arg, ch)
		if err != nil {
			return nil, errors.Wrapf(err, "constructor argument %d of component '%s'", i, merged.Name)
		}
		args = append(args, value)
	}
	return args, nil
}

func (t *Container) resolveArg(consumer string, arg Arg, ch *chain) (interface{}, error) {
	switch arg.kind {

	case argRef:
		obj, err := t.getComponent(arg.ref, ch)
		if err != nil {
			if arg.optional {
				if _, missing := errors.Cause(err).(*NotFoundError); missing {
					return nil, nil
				}
			}
			return nil, err
		}
		t.singletons.RegisterDependent(arg.ref, consumer)
		return obj, nil

	case argType:
		c, found, err := t.resolveCandidate(arg.typ, arg.qualifier, map[string]bool{consumer: true}, arg.optional)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		obj, err := t.getComponent(c.name, ch)
		if err != nil {
			return nil, err
		}
		t.singletons.RegisterDependent(c.name, consumer)
		return obj, nil

	default:
		if s, ok := arg.value.(string); ok {
			return expandPlaceholders(s, t.properties)
		}
		return arg.value, nil
	}
}

/**
injectProperties applies the descriptor field assignments through reflection.
References resolved here may legally point back in to the current chain, the early
reference breaks the cycle for setter injection.
*/

func (t *Container) injectProperties(merged *Descriptor, instance interface{}, ch *chain) error {
	if len(merged.Properties) == 0 {
		return nil
	}

	valuePtr := reflect.ValueOf(instance)
	if valuePtr.Kind() != reflect.Ptr || valuePtr.Elem().Kind() != reflect.Struct {
		return errors.Errorf("component '%s' has property assignments but instance type '%v' is not a pointer to struct", merged.Name, reflect.TypeOf(instance))
	}
	value := valuePtr.Elem()

	for _, prop := range merged.Properties {
		field := value.FieldByName(prop.Field)
		if !field.IsValid() {
			return errors.Errorf("component '%s' has no field '%s'", merged.Name, prop.Field)
		}
		if !field.CanSet() {
			return errors.Errorf("field '%s' of component '%s' is not public", prop.Field, merged.Name)
		}

		resolved, err := t.resolveArg(merged.Name, prop.Arg, ch)
		if err != nil {
			return errors.Wrapf(err, "property '%s' of component '%s'", prop.Field, merged.Name)
		}
		if resolved == nil {
			continue
		}

		if err := assignField(field, resolved); err != nil {
			return errors.Wrapf(err, "property '%s' of component '%s'", prop.Field, merged.Name)
		}
	}
	return nil
}

func assignField(field reflect.Value, resolved interface{}) error {
	value := reflect.ValueOf(resolved)
	if value.Type().AssignableTo(field.Type()) {
		field.Set(value)
		return nil
	}
	if s, ok := resolved.(string); ok {
		converted, err := convertLiteral(s, field.Type())
		if err != nil {
			return err
		}
		field.Set(converted)
		return nil
	}
	if value.Type().ConvertibleTo(field.Type()) {
		field.Set(value.Convert(field.Type()))
		return nil
	}
	return errors.Errorf("value of type '%v' is not assignable to field type '%v'", value.Type(), field.Type())
}

func reverse(list []string) []string {
	out := make([]string, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i])
	}
	return out
}

func joinTrail(trail []string) string {
	out := ""
	for i, name := range trail {
		if i > 0 {
			out += " -> "
		}
		out += name
	}
	return out
}
