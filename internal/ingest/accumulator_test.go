// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mitigated.example.com/engine/internal/eventmodel"
)

func TestAccumulator_StartThenAppendThenStop(t *testing.T) {
	acc := NewAccumulator()

	attack, started := acc.Start("sess-1", eventmodel.SeverityHigh, "DoS")
	require.True(t, started)

	ok := acc.Append("sess-1", eventmodel.SeverityHigh, "DoS", eventmodel.AttackEvent{})
	require.True(t, ok)

	stopped, ok := acc.Stop("sess-1", eventmodel.SeverityHigh, "DoS")
	require.True(t, ok)
	assert.Same(t, attack, stopped)
	assert.True(t, stopped.Frozen())
	assert.Len(t, stopped.Events(), 1)
}

func TestAccumulator_DuplicateStartRejected(t *testing.T) {
	acc := NewAccumulator()
	_, started := acc.Start("sess-1", eventmodel.SeverityHigh, "DoS")
	require.True(t, started)

	_, startedAgain := acc.Start("sess-1", eventmodel.SeverityHigh, "DoS")
	assert.False(t, startedAgain)
}

func TestAccumulator_AppendWithoutStartDropped(t *testing.T) {
	acc := NewAccumulator()
	ok := acc.Append("no-such-session", eventmodel.SeverityHigh, "DoS", eventmodel.AttackEvent{})
	assert.False(t, ok)
}

func TestAccumulator_StopWithoutStartDropped(t *testing.T) {
	acc := NewAccumulator()
	_, ok := acc.Stop("no-such-session", eventmodel.SeverityHigh, "DoS")
	assert.False(t, ok)
}

func TestAccumulator_StopRemovesSession(t *testing.T) {
	acc := NewAccumulator()
	acc.Start("sess-1", eventmodel.SeverityHigh, "DoS")
	acc.Stop("sess-1", eventmodel.SeverityHigh, "DoS")

	_, ok := acc.Stop("sess-1", eventmodel.SeverityHigh, "DoS")
	assert.False(t, ok, "stopping an already-stopped session should fail, not return a stale attack")
}

func TestAccumulator_StartSetsNumericIdentifier(t *testing.T) {
	acc := NewAccumulator()
	attack, started := acc.Start("42", eventmodel.SeverityHigh, "DoS")
	require.True(t, started)
	assert.True(t, attack.HasID)
	assert.EqualValues(t, 42, attack.Identifier)
	assert.Equal(t, "42", attack.AnomalyName)
}

func TestAccumulator_StartWithNonNumericIDLeavesHasIDFalse(t *testing.T) {
	acc := NewAccumulator()
	attack, started := acc.Start("sess-1", eventmodel.SeverityHigh, "DoS")
	require.True(t, started)
	assert.False(t, attack.HasID)
	assert.Equal(t, int64(0), attack.Identifier)
	assert.Equal(t, "sess-1", attack.AnomalyName)
}

func TestAccumulator_KeysAreDisjointAcrossSeverityAndType(t *testing.T) {
	acc := NewAccumulator()
	_, ok1 := acc.Start("sess-1", eventmodel.SeverityHigh, "DoS")
	_, ok2 := acc.Start("sess-1", eventmodel.SeverityLow, "DoS")
	_, ok3 := acc.Start("sess-1", eventmodel.SeverityHigh, "Probing")

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.True(t, ok3)
}
