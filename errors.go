/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package weld

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

/**
Error taxonomy of the container.

Configuration errors are detected before any instantiation begins, construction errors
abort the component (and Start, if they happen during the eager phase), state errors
fail fast, destruction errors are logged and never propagated.
*/

/**
CircularReferenceError reports the full chain of component names involved in the cycle,
not just the last link.
*/

type CircularReferenceError struct {
	Chain []string
}

func (t *CircularReferenceError) Error() string {
	return fmt.Sprintf("circular reference between components [%s]", strings.Join(t.Chain, " -> "))
}

/**
NotFoundError is raised when a required injection point has no matching component.
*/

type NotFoundError struct {
	Name      string
	Type      reflect.Type
	Qualifier string
}

func (t *NotFoundError) Error() string {
	switch {
	case t.Name != "":
		return fmt.Sprintf("no matching component with name '%s'", t.Name)
	case t.Qualifier != "":
		return fmt.Sprintf("no matching component for type '%v' with qualifier '%s'", t.Type, t.Qualifier)
	default:
		return fmt.Sprintf("no matching component for type '%v'", t.Type)
	}
}

/**
AmbiguityError is raised when multiple candidates survive all tie-break rules.
Resolution never silently picks an arbitrary candidate.
*/

type AmbiguityError struct {
	Type       reflect.Type
	Candidates []string
}

func (t *AmbiguityError) Error() string {
	return fmt.Sprintf("multiple matching components for type '%v', specify a qualifier: [%s]", t.Type, strings.Join(t.Candidates, ", "))
}

/**
StateError is raised on operating a container outside the ACTIVE window or on
double-setting an immutable field.
*/

type StateError struct {
	Op    string
	State ContainerState
}

func (t *StateError) Error() string {
	return fmt.Sprintf("operation '%s' is not allowed in state '%v'", t.Op, t.State)
}

func errContainerNotActive(op string, state ContainerState) error {
	return &StateError{Op: op, State: state}
}

func errConfig(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}
