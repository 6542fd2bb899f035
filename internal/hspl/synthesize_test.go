// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package hspl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mitigated.example.com/engine/internal/eventmodel"
	"mitigated.example.com/engine/internal/plugin"
	"mitigated.example.com/engine/internal/recipe"
)

func TestSynthesize_CarriesAnomalyNameIntoContext(t *testing.T) {
	id := int64(7)
	attack := eventmodel.NewAttack(eventmodel.SeverityHigh, "DoS", &id, "7")
	ep, err := eventmodel.ParseEndpoint("10.0.0.1:80")
	require.NoError(t, err)
	attack.AppendEvent(eventmodel.AttackEvent{Timestamp: time.Now(), Attacker: ep, Target: ep})
	attack.Freeze()

	r := &recipe.Recipe{Name: "dos-drop", Action: "drop"}
	reg := plugin.NewRegistry()

	set, err := Synthesize(reg, r, attack)
	require.NoError(t, err)
	assert.Equal(t, "7", set.Context.AnomalyName)
	assert.Equal(t, eventmodel.SeverityHigh, set.Context.Severity)
	assert.Equal(t, "DoS", set.Context.Type)
}

func TestSynthesize_EmptyAnomalyNameWhenAttackHasNoIdentifier(t *testing.T) {
	attack := eventmodel.NewAttack(eventmodel.SeverityHigh, "DoS", nil, "")
	ep, err := eventmodel.ParseEndpoint("10.0.0.1:80")
	require.NoError(t, err)
	attack.AppendEvent(eventmodel.AttackEvent{Timestamp: time.Now(), Attacker: ep, Target: ep})
	attack.Freeze()

	r := &recipe.Recipe{Name: "dos-drop", Action: "drop"}
	reg := plugin.NewRegistry()

	set, err := Synthesize(reg, r, attack)
	require.NoError(t, err)
	assert.Equal(t, "", set.Context.AnomalyName)
}
