/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package weld

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	durationClass = reflect.TypeOf(time.Millisecond)
	timeClass     = reflect.TypeOf(time.Time{})
)

/**
convertLiteral converts a string literal to the target field type.
Slices use ';' as the element separator.
*/

func convertLiteral(s string, target reflect.Type) (reflect.Value, error) {
	var v interface{}
	var err error

	switch {

	case target.Kind() == reflect.Slice:
		parts := trimSplit(s, ";")
		slice := reflect.MakeSlice(target, 0, len(parts))
		for _, part := range parts {
			val, err := convertLiteral(part, target.Elem())
			if err != nil {
				return slice, err
			}
			slice = reflect.Append(slice, val)
		}
		return slice, nil

	case target == durationClass:
		v, err = time.ParseDuration(s)

	case target == timeClass:
		v, err = time.Parse(time.RFC3339, s)

	case target.Kind() == reflect.Bool:
		v, err = strconv.ParseBool(s)

	case target.Kind() == reflect.String:
		v, err = s, nil

	case target.Kind() == reflect.Float32 || target.Kind() == reflect.Float64:
		v, err = strconv.ParseFloat(s, 64)

	case isIntKind(target.Kind()):
		v, err = strconv.ParseInt(s, 10, 64)

	case isUintKind(target.Kind()):
		v, err = strconv.ParseUint(s, 10, 64)

	default:
		return reflect.Zero(target), errors.Errorf("unsupported literal target type '%v'", target)
	}

	if err != nil {
		return reflect.Zero(target), errors.Wrapf(err, "literal '%s' does not convert to '%v'", s, target)
	}
	return reflect.ValueOf(v).Convert(target), nil
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUintKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func trimSplit(s string, sep string) []string {
	var out []string
	for _, v := range strings.Split(s, sep) {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
