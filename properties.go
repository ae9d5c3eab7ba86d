/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package weld

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const defaultPropertyResolverPriority = 100

/**
properties is the placeholder value store of one container, a flat key/value map
behind a prioritized resolver chain.
*/

type properties struct {
	sync.RWMutex

	priority int

	store map[string]string

	resolvers []PropertyResolver
}

func NewProperties() Properties {
	t := &properties{
		priority: defaultPropertyResolverPriority,
		store:    make(map[string]string),
	}
	t.Register(t)
	return t
}

func (t *properties) String() string {
	t.RLock()
	defer t.RUnlock()
	return fmt.Sprintf("Properties{priority=%d,store=%d,resolvers=%d}", t.priority, len(t.store), len(t.resolvers))
}

func (t *properties) Priority() int {
	return t.priority
}

func (t *properties) Register(resolver PropertyResolver) {
	t.Lock()
	defer t.Unlock()
	t.resolvers = append(t.resolvers, resolver)
	if len(t.resolvers) > 1 {
		sort.SliceStable(t.resolvers, func(i, j int) bool {
			return t.resolvers[i].Priority() >= t.resolvers[j].Priority()
		})
	}
}

func (t *properties) PropertyResolvers() []PropertyResolver {
	t.RLock()
	defer t.RUnlock()
	buf := make([]PropertyResolver, len(t.resolvers))
	copy(buf, t.resolvers)
	return buf
}

func (t *properties) LoadMap(source map[string]interface{}) {
	t.Lock()
	defer t.Unlock()
	t.loadMapRec("", source)
}

func (t *properties) loadMapRec(prefix string, m map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if next, ok := v.(map[string]interface{}); ok {
			t.loadMapRec(key, next)
		} else {
			t.store[key] = fmt.Sprint(v)
		}
	}
}

/**
Load reads simple 'key=value' lines, '#' and '!' start a comment line.
*/

func (t *properties) Load(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	lineNum := 0

	t.Lock()
	defer t.Unlock()

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		idx := strings.IndexAny(line, "=:")
		if idx < 0 {
			return errors.Errorf("property parsing error on line %d, missing separator in '%s'", lineNum, line)
		}
		key := strings.TrimSpace(line[:idx])
		if key == "" {
			return errors.Errorf("property parsing error on line %d, empty key", lineNum)
		}
		t.store[key] = strings.TrimSpace(line[idx+1:])
	}
	return scanner.Err()
}

func (t *properties) LoadYAML(reader io.Reader) error {
	holder := make(map[string]interface{})
	if err := yaml.NewDecoder(reader).Decode(holder); err != nil {
		return errors.Wrap(err, "yaml property source decode failed")
	}
	t.LoadMap(holder)
	return nil
}

func (t *properties) LoadEnv(reader io.Reader) error {
	env, err := godotenv.Parse(reader)
	if err != nil {
		return errors.Wrap(err, "dotenv property source parse failed")
	}
	t.Lock()
	defer t.Unlock()
	for k, v := range env {
		t.store[k] = v
	}
	return nil
}

/**
Extend registers the parent properties as a lower priority resolver, local values win.
*/

func (t *properties) Extend(parent Properties) {
	if parent == nil {
		return
	}
	t.Register(parentResolver{parent: parent, priority: t.priority - 1})
}

type parentResolver struct {
	parent   Properties
	priority int
}

func (t parentResolver) Priority() int {
	return t.priority
}

func (t parentResolver) GetProperty(key string) (string, bool) {
	return t.parent.Get(key)
}

func (t *properties) Len() int {
	t.RLock()
	defer t.RUnlock()
	return len(t.store)
}

func (t *properties) Keys() []string {
	t.RLock()
	defer t.RUnlock()
	keys := make([]string, 0, len(t.store))
	for key := range t.store {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (t *properties) Contains(key string) bool {
	_, ok := t.Get(key)
	return ok
}

func (t *properties) GetProperty(key string) (string, bool) {
	t.RLock()
	defer t.RUnlock()
	value, ok := t.store[key]
	return value, ok
}

/**
Get consults the resolver chain in priority order, the local store among them.
*/

func (t *properties) Get(key string) (string, bool) {
	for _, resolver := range t.PropertyResolvers() {
		if value, ok := resolver.GetProperty(key); ok {
			return value, true
		}
	}
	return "", false
}

func (t *properties) GetString(key, def string) string {
	if value, ok := t.Get(key); ok {
		return value
	}
	return def
}

func (t *properties) GetBool(key string, def bool) bool {
	if value, ok := t.Get(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return def
}

func (t *properties) GetInt(key string, def int) int {
	if value, ok := t.Get(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return def
}

func (t *properties) GetFloat(key string, def float64) float64 {
	if value, ok := t.Get(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return def
}

func (t *properties) GetDuration(key string, def time.Duration) time.Duration {
	if value, ok := t.Get(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return def
}

func (t *properties) Set(key string, value string) {
	t.Lock()
	defer t.Unlock()
	t.store[key] = value
}

func (t *properties) Remove(key string) bool {
	t.Lock()
	defer t.Unlock()
	_, ok := t.store[key]
	delete(t.store, key)
	return ok
}

func (t *properties) Clear() {
	t.Lock()
	defer t.Unlock()
	t.store = make(map[string]string)
}

/**
expandPlaceholders substitutes every '${key}' or '${key:default}' occurrence in the
literal. A placeholder with no value and no default is an error.
*/

func expandPlaceholders(s string, props Properties) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}
	var out strings.Builder
	rest := s
	for {
		idx := strings.Index(rest, "${")
		if idx < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		out.WriteString(rest[:idx])
		end := strings.Index(rest[idx:], "}")
		if end < 0 {
			return "", errors.Errorf("unterminated placeholder in literal '%s'", s)
		}
		placeholder := rest[idx+2 : idx+end]
		rest = rest[idx+end+1:]

		key := placeholder
		def := ""
		hasDefault := false
		if sep := strings.Index(placeholder, ":"); sep >= 0 {
			key = placeholder[:sep]
			def = placeholder[sep+1:]
			hasDefault = true
		}
		if value, ok := props.Get(key); ok {
			out.WriteString(value)
		} else if hasDefault {
			out.WriteString(def)
		} else {
			return "", errors.Errorf("placeholder property '%s' is not defined and has no default", key)
		}
	}
}
