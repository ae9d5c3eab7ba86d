/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package proxy

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindInterface Kind = iota
	KindSubclass
)

func (t Kind) String() string {
	switch t {
	case KindInterface:
		return "interface"
	case KindSubclass:
		return "subclass"
	default:
		return "unknown"
	}
}

/**
Marker is implemented by every proxy produced by this package. A target whose only
declared interface is the marker counts as having no usable interfaces.
*/

var MarkerClass = reflect.TypeOf((*Marker)(nil)).Elem()

type Marker interface {

	/**
	Returns the wrapped target instance
	*/
	ProxyTarget() interface{}
}

/**
Config is the input of engine selection: the target, the interfaces it declares and
the two flags forcing subclass-based proxying.
*/

type Config struct {
	Target     interface{}
	TargetType reflect.Type

	/**
	Interfaces the target declares and the proxy should expose
	*/
	Interfaces []reflect.Type

	ProxyTargetClass bool
	Optimize         bool

	Interceptors []Interceptor
}

func (t *Config) targetType() reflect.Type {
	if t.TargetType != nil {
		return t.TargetType
	}
	if t.Target != nil {
		return reflect.TypeOf(t.Target)
	}
	return nil
}

/**
Engine builds proxies of one strategy over a fixed method surface.
*/

type Engine interface {
	Kind() Kind

	Wrap(target interface{}) (*Proxy, error)
}

/**
Interceptor is invoked around every proxied method call. It may short-circuit, adjust
arguments or results, and continues the chain through Invocation.Proceed.
*/

type Interceptor interface {
	Invoke(invocation *Invocation) ([]interface{}, error)
}

type InterceptorFunc func(invocation *Invocation) ([]interface{}, error)

func (t InterceptorFunc) Invoke(invocation *Invocation) ([]interface{}, error) {
	return t(invocation)
}

/**
Invocation is one in-flight proxied call travelling down the interceptor chain.
*/

type Invocation struct {
	method string
	target reflect.Value
	bound  reflect.Value
	args   []interface{}

	chain []Interceptor
	index int
}

func (t *Invocation) Method() string {
	return t.method
}

func (t *Invocation) Target() interface{} {
	return t.target.Interface()
}

func (t *Invocation) Args() []interface{} {
	return t.args
}

func (t *Invocation) SetArgs(args []interface{}) {
	t.args = args
}

/**
Proceed runs the rest of the chain and finally the target method itself.
*/

func (t *Invocation) Proceed() ([]interface{}, error) {
	if t.index < len(t.chain) {
		interceptor := t.chain[t.index]
		t.index++
		return interceptor.Invoke(t)
	}
	return t.call()
}

func (t *Invocation) call() ([]interface{}, error) {
	methodType := t.bound.Type()
	if len(t.args) != methodType.NumIn() {
		return nil, errors.Errorf("method '%s' expects %d arguments, got %d", t.method, methodType.NumIn(), len(t.args))
	}
	in := make([]reflect.Value, 0, len(t.args))
	for i, arg := range t.args {
		if arg == nil {
			in = append(in, reflect.Zero(methodType.In(i)))
			continue
		}
		value := reflect.ValueOf(arg)
		if !value.Type().AssignableTo(methodType.In(i)) {
			return nil, errors.Errorf("argument %d of method '%s' has type '%v', expected '%v'", i, t.method, value.Type(), methodType.In(i))
		}
		in = append(in, value)
	}
	out := t.bound.Call(in)
	results := make([]interface{}, 0, len(out))
	for _, value := range out {
		results = append(results, value.Interface())
	}
	return results, nil
}

func (t *Invocation) String() string {
	return fmt.Sprintf("Invocation{method=%s, args=%d}", t.method, len(t.args))
}

/**
Proxy dispatches calls on the exposed method surface through the interceptor chain
down to the target. The surface depends on the engine that produced it: the declared
interface method set or the full method set of the concrete type.
*/

type Proxy struct {
	kind         Kind
	target       reflect.Value
	methods      map[string]reflect.Value
	interceptors []Interceptor
}

func (t *Proxy) Kind() Kind {
	return t.kind
}

func (t *Proxy) ProxyTarget() interface{} {
	return t.target.Interface()
}

func (t *Proxy) Methods() []string {
	names := make([]string, 0, len(t.methods))
	for name := range t.methods {
		names = append(names, name)
	}
	return names
}

func (t *Proxy) Invoke(method string, args ...interface{}) ([]interface{}, error) {
	bound, ok := t.methods[method]
	if !ok {
		return nil, errors.Errorf("method '%s' is not part of the proxied surface (%v strategy)", method, t.kind)
	}
	invocation := &Invocation{
		method: method,
		target: t.target,
		bound:  bound,
		args:   args,
		chain:  t.interceptors,
	}
	return invocation.Proceed()
}

func (t *Proxy) String() string {
	return fmt.Sprintf("<Proxy %v over %v>(%d methods)", t.kind, t.target.Type(), len(t.methods))
}
