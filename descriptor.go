/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package weld

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

/**
Constructor builds the component instance from already resolved constructor arguments.
Arguments arrive in the declaration order of the descriptor.
*/

type Constructor func(args []interface{}) (interface{}, error)

type argKind int

const (
	argValue argKind = iota
	argRef
	argType
)

/**
Arg is a single constructor argument, either a literal value, a reference to another
component by name, or a reference by required type with an optional qualifier.

String literals may contain placeholders in form '${key}' or '${key:default}' resolved
against the container properties.
*/

type Arg struct {
	kind      argKind
	value     interface{}
	ref       string
	typ       reflect.Type
	qualifier string
	optional  bool
}

func ValueArg(value interface{}) Arg {
	return Arg{kind: argValue, value: value}
}

func RefArg(name string) Arg {
	return Arg{kind: argRef, ref: name}
}

func TypeArg(typ reflect.Type) Arg {
	return Arg{kind: argType, typ: typ}
}

func QualifiedArg(typ reflect.Type, qualifier string) Arg {
	return Arg{kind: argType, typ: typ, qualifier: qualifier}
}

/**
Optional marks the argument as optional, a missing candidate injects nil instead of failing.
*/

func (t Arg) Optional() Arg {
	t.optional = true
	return t
}

func (t Arg) String() string {
	switch t.kind {
	case argRef:
		return fmt.Sprintf("ref(%s)", t.ref)
	case argType:
		if t.qualifier != "" {
			return fmt.Sprintf("type(%v, %s)", t.typ, t.qualifier)
		}
		return fmt.Sprintf("type(%v)", t.typ)
	default:
		return fmt.Sprintf("value(%v)", t.value)
	}
}

/**
Property assigns a value to an exported struct field of the instance after construction.
The assignment happens through the same Arg forms as constructor arguments.
*/

type Property struct {
	Field string
	Arg   Arg
}

/**
Descriptor describes how to build one component. Identity is the component name,
unique within one registry level. Descriptors are declarative, the container never
parses markup or annotations, it consumes the already materialized record.

A descriptor with a Parent inherits all unset fields from the parent chain, the merged
view must resolve to exactly one concrete implementation type before first instantiation.
*/

type Descriptor struct {

	/**
	Component name, unique within one registry level
	*/
	Name string

	/**
	Pointer type of the implementation struct, may stay nil until resolved through the parent chain
	*/
	Type reflect.Type

	/**
	Optional factory, when nil the instance is allocated as a zero value of Type
	*/
	Constructor Constructor

	/**
	Name of the parent descriptor for inheritance
	*/
	Parent string

	/**
	Scope identifier, empty means singleton
	*/
	Scope string

	/**
	Lazy singletons are not built eagerly on Start
	*/
	Lazy bool

	/**
	Excluded from resolution by type when false
	*/
	AutowireCandidate bool

	/**
	Wins ambiguous by-type resolution when it is the only primary candidate
	*/
	Primary bool

	/**
	Explicit priority metadata, the unique highest wins among remaining candidates
	*/
	Priority int

	/**
	Names that must be fully initialized before this component
	*/
	DependsOn []string

	/**
	Ordered constructor arguments
	*/
	Args []Arg

	/**
	Field assignments applied after instantiation
	*/
	Properties []Property

	/**
	Advisory role hint, never affects resolution
	*/
	Role Role

	/**
	Abstract descriptors exist only to be inherited and are never instantiated
	*/
	Abstract bool
}

/**
NewDescriptor allocates a descriptor with the defaults of a concrete singleton candidate.
*/

func NewDescriptor(name string, typ reflect.Type) *Descriptor {
	return &Descriptor{
		Name:              name,
		Type:              typ,
		Scope:             ScopeSingleton,
		AutowireCandidate: true,
	}
}

func (t *Descriptor) String() string {
	return fmt.Sprintf("<Descriptor %s type=%v scope=%s>", t.Name, t.Type, t.scopeOrDefault())
}

func (t *Descriptor) scopeOrDefault() string {
	if t.Scope == "" {
		return ScopeSingleton
	}
	return t.Scope
}

func (t *Descriptor) singleton() bool {
	return t.scopeOrDefault() == ScopeSingleton
}

func (t *Descriptor) validate() error {
	if t.Name == "" {
		return errors.New("descriptor without a name")
	}
	if t.Type != nil && t.Type.Kind() != reflect.Ptr && t.Type.Kind() != reflect.Interface {
		return errors.Errorf("descriptor '%s' implementation type must be a pointer to struct or interface, got '%v'", t.Name, t.Type)
	}
	for _, prop := range t.Properties {
		if prop.Field == "" {
			return errors.Errorf("descriptor '%s' has a property assignment without a field name", t.Name)
		}
	}
	return nil
}

func (t *Descriptor) clone() *Descriptor {
	c := *t
	c.DependsOn = append([]string(nil), t.DependsOn...)
	c.Args = append([]Arg(nil), t.Args...)
	c.Properties = append([]Property(nil), t.Properties...)
	return &c
}

/**
overrideFrom flattens the child on top of the accumulated parent view.

Scalars override when set, bool flags always take the child value, property assignments
merge per field name with the child winning, constructor arguments replace as a whole
when the child declares any.
*/

func (t *Descriptor) overrideFrom(child *Descriptor) {
	t.Name = child.Name
	t.Parent = child.Parent
	if child.Type != nil {
		t.Type = child.Type
	}
	if child.Constructor != nil {
		t.Constructor = child.Constructor
	}
	if child.Scope != "" {
		t.Scope = child.Scope
	}
	t.Lazy = child.Lazy
	t.AutowireCandidate = child.AutowireCandidate
	t.Primary = child.Primary
	t.Abstract = child.Abstract
	if child.Priority != 0 {
		t.Priority = child.Priority
	}
	if len(child.DependsOn) > 0 {
		t.DependsOn = append([]string(nil), child.DependsOn...)
	}
	if len(child.Args) > 0 {
		t.Args = append([]Arg(nil), child.Args...)
	}
	if child.Role != RoleApplication {
		t.Role = child.Role
	}
	for _, prop := range child.Properties {
		t.setProperty(prop)
	}
}

func (t *Descriptor) setProperty(prop Property) {
	for i, existing := range t.Properties {
		if existing.Field == prop.Field {
			t.Properties[i] = prop
			return
		}
	}
	t.Properties = append(t.Properties, prop)
}

/**
assignable reports whether instances of the descriptor type satisfy the required type.
*/

func (t *Descriptor) assignable(requiredType reflect.Type) bool {
	if t.Type == nil {
		return false
	}
	if t.Type == requiredType {
		return true
	}
	if requiredType.Kind() == reflect.Interface {
		return t.Type.Implements(requiredType)
	}
	return t.Type.AssignableTo(requiredType)
}
