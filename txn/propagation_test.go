/*
 * Copyright (c) 2023 Zander Schwid & Co. LLC.
 * SPDX-License-Identifier: BUSL-1.1
 */

package txn_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/weldlabs/weld/txn"
)

func TestPropagationValues(t *testing.T) {

	require.Equal(t, 0, int(txn.PropagationRequired))
	require.Equal(t, 1, int(txn.PropagationSupports))
	require.Equal(t, 2, int(txn.PropagationMandatory))
	require.Equal(t, 3, int(txn.PropagationRequiresNew))
	require.Equal(t, 4, int(txn.PropagationNotSupported))
	require.Equal(t, 5, int(txn.PropagationNever))
	require.Equal(t, 6, int(txn.PropagationNested))
}

func TestPropagationRoundTrip(t *testing.T) {

	all := []txn.Propagation{
		txn.PropagationRequired,
		txn.PropagationSupports,
		txn.PropagationMandatory,
		txn.PropagationRequiresNew,
		txn.PropagationNotSupported,
		txn.PropagationNever,
		txn.PropagationNested,
	}

	for _, propagation := range all {
		parsed, err := txn.Parse(propagation.String())
		require.NoError(t, err)
		require.Equal(t, propagation, parsed)
	}

	parsed, err := txn.Parse(" requires_new ")
	require.NoError(t, err)
	require.Equal(t, txn.PropagationRequiresNew, parsed)

	_, err = txn.Parse("SOMETIMES")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown propagation")
}

func TestResolveWithActiveTransaction(t *testing.T) {

	expect := map[txn.Propagation]txn.Action{
		txn.PropagationRequired:     txn.ActionJoin,
		txn.PropagationSupports:     txn.ActionJoin,
		txn.PropagationMandatory:    txn.ActionJoin,
		txn.PropagationRequiresNew:  txn.ActionSuspendAndCreateNew,
		txn.PropagationNotSupported: txn.ActionSuspendAndRunOutside,
		txn.PropagationNested:       txn.ActionCreateNested,
	}

	for propagation, action := range expect {
		resolved, err := propagation.Resolve(true)
		require.NoError(t, err, "propagation %v", propagation)
		require.Equal(t, action, resolved, "propagation %v", propagation)
	}
}

func TestResolveWithoutTransaction(t *testing.T) {

	expect := map[txn.Propagation]txn.Action{
		txn.PropagationRequired:     txn.ActionCreateNew,
		txn.PropagationSupports:     txn.ActionRunOutside,
		txn.PropagationRequiresNew:  txn.ActionCreateNew,
		txn.PropagationNotSupported: txn.ActionRunOutside,
		txn.PropagationNever:        txn.ActionRunOutside,
		txn.PropagationNested:       txn.ActionCreateNew,
	}

	for propagation, action := range expect {
		resolved, err := propagation.Resolve(false)
		require.NoError(t, err, "propagation %v", propagation)
		require.Equal(t, action, resolved, "propagation %v", propagation)
	}
}

func TestMandatoryRequiresTransaction(t *testing.T) {

	_, err := txn.PropagationMandatory.Resolve(false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no existing transaction found for propagation 'MANDATORY'")
}

func TestNeverRejectsTransaction(t *testing.T) {

	_, err := txn.PropagationNever.Resolve(true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "existing transaction found for propagation 'NEVER'")
}

func TestUnknownPropagationFails(t *testing.T) {

	_, err := txn.Propagation(42).Resolve(true)
	require.Error(t, err)
}
