/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package txn

import (
	"strings"

	"github.com/pkg/errors"
)

/**
Propagation declares how a transactional boundary relates to a transaction already
active on the caller side.
*/

type Propagation int

const (

	/**
	Join the current transaction, create a new one if none exists. The default.
	*/
	PropagationRequired Propagation = iota

	/**
	Join the current transaction if present, otherwise run non-transactionally.
	*/
	PropagationSupports

	/**
	Join the current transaction, fail if none exists.
	*/
	PropagationMandatory

	/**
	Always create a new transaction, suspending the current one if present.
	*/
	PropagationRequiresNew

	/**
	Run non-transactionally, suspending the current transaction if present.
	*/
	PropagationNotSupported

	/**
	Run non-transactionally, fail if a transaction is present.
	*/
	PropagationNever

	/**
	Run within a nested transaction if one is present, otherwise behave as required.
	*/
	PropagationNested
)

func (t Propagation) String() string {
	switch t {
	case PropagationRequired:
		return "REQUIRED"
	case PropagationSupports:
		return "SUPPORTS"
	case PropagationMandatory:
		return "MANDATORY"
	case PropagationRequiresNew:
		return "REQUIRES_NEW"
	case PropagationNotSupported:
		return "NOT_SUPPORTED"
	case PropagationNever:
		return "NEVER"
	case PropagationNested:
		return "NESTED"
	default:
		return "UNKNOWN"
	}
}

func Parse(s string) (Propagation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "REQUIRED":
		return PropagationRequired, nil
	case "SUPPORTS":
		return PropagationSupports, nil
	case "MANDATORY":
		return PropagationMandatory, nil
	case "REQUIRES_NEW":
		return PropagationRequiresNew, nil
	case "NOT_SUPPORTED":
		return PropagationNotSupported, nil
	case "NEVER":
		return PropagationNever, nil
	case "NESTED":
		return PropagationNested, nil
	default:
		return PropagationRequired, errors.Errorf("unknown propagation behavior '%s'", s)
	}
}

/**
Action is the decision the consuming interceptor must carry out at the boundary.
*/

type Action int

const (
	ActionJoin Action = iota
	ActionCreateNew
	ActionSuspendAndCreateNew
	ActionSuspendAndRunOutside
	ActionRunOutside
	ActionCreateNested
)

func (t Action) String() string {
	switch t {
	case ActionJoin:
		return "join"
	case ActionCreateNew:
		return "create-new"
	case ActionSuspendAndCreateNew:
		return "suspend-and-create-new"
	case ActionSuspendAndRunOutside:
		return "suspend-and-run-outside"
	case ActionRunOutside:
		return "run-outside"
	case ActionCreateNested:
		return "create-nested"
	default:
		return "unknown"
	}
}

/**
Resolve maps the declared propagation and the presence of a caller transaction onto
the action the boundary must take. Pure mapping, no side effects.
*/

func (t Propagation) Resolve(active bool) (Action, error) {
	switch t {

	case PropagationRequired:
		if active {
			return ActionJoin, nil
		}
		return ActionCreateNew, nil

	case PropagationSupports:
		if active {
			return ActionJoin, nil
		}
		return ActionRunOutside, nil

	case PropagationMandatory:
		if active {
			return ActionJoin, nil
		}
		return 0, errors.Errorf("no existing transaction found for propagation '%v'", t)

	case PropagationRequiresNew:
		if active {
			return ActionSuspendAndCreateNew, nil
		}
		return ActionCreateNew, nil

	case PropagationNotSupported:
		if active {
			return ActionSuspendAndRunOutside, nil
		}
		return ActionRunOutside, nil

	case PropagationNever:
		if active {
			return 0, errors.Errorf("existing transaction found for propagation '%v'", t)
		}
		return ActionRunOutside, nil

	case PropagationNested:
		if active {
			return ActionCreateNested, nil
		}
		return ActionCreateNew, nil

	default:
		return 0, errors.Errorf("unknown propagation behavior '%d'", int(t))
	}
}
