// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package recipe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mitigated.example.com/engine/internal/eventmodel"
	"mitigated.example.com/engine/internal/landscape"
	"mitigated.example.com/engine/internal/plugin"
)

func loadOneRecipe(t *testing.T, xmlBody string) *Library {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.xml"), []byte(xmlBody), 0o644))
	lib, err := Load(dir)
	require.NoError(t, err)
	return lib
}

func attackWithEvent(fields map[string]string) *eventmodel.Attack {
	a := eventmodel.NewAttack(eventmodel.SeverityHigh, "DoS", nil, "")
	a.AppendEvent(eventmodel.AttackEvent{Fields: fields})
	a.Freeze()
	return a
}

func TestSelect_NoCandidates(t *testing.T) {
	lib := loadOneRecipe(t, validRecipeXML)
	land, err := landscape.Parse([]byte(`<landscape><it-resource id="n"><capability>packet-filter</capability></it-resource></landscape>`))
	require.NoError(t, err)

	reg := plugin.NewRegistry()
	reg.RegisterAction(plugin.ActionDescriptor{ID: "drop", Action: "drop", Capabilities: []string{"packet-filter"}})

	a := attackWithEvent(nil)
	a.Type = "Probing" // no recipe matches this type
	_, _, ok := Select(reg, lib, land, a)
	assert.False(t, ok)
}

func TestSelect_NoEnforceableNode(t *testing.T) {
	lib := loadOneRecipe(t, validRecipeXML)
	land, err := landscape.Parse([]byte(`<landscape><it-resource id="n"><capability>deep-inspect</capability></it-resource></landscape>`))
	require.NoError(t, err)

	reg := plugin.NewRegistry()
	reg.RegisterAction(plugin.ActionDescriptor{ID: "drop", Action: "drop", Capabilities: []string{"packet-filter"}})

	a := attackWithEvent(nil)
	_, _, ok := Select(reg, lib, land, a)
	assert.False(t, ok, "no node in the landscape supports packet-filter")
}

func TestSelect_Success(t *testing.T) {
	lib := loadOneRecipe(t, validRecipeXML)
	land, err := landscape.Parse([]byte(`<landscape><it-resource id="n"><capability>packet-filter</capability></it-resource></landscape>`))
	require.NoError(t, err)

	reg := plugin.NewRegistry()
	reg.RegisterAction(plugin.ActionDescriptor{ID: "drop", Action: "drop", Capabilities: []string{"packet-filter"}, Score: 1})

	a := attackWithEvent(nil)
	r, action, ok := Select(reg, lib, land, a)
	require.True(t, ok)
	assert.Equal(t, "dos-drop", r.Name)
	assert.Equal(t, "drop", action.Action)
}

const filteredRecipeXML = `<recipe xmlns="http://security.polito.it/shield/recipe" name="filtered" action="drop" min-severity="1" max-severity="4" type="DoS">
	<filters evaluation="or">
		<protocol>tcp</protocol>
	</filters>
</recipe>`

func TestSelect_OverRestrictiveRecipeIsDropped(t *testing.T) {
	lib := loadOneRecipe(t, filteredRecipeXML)
	land, err := landscape.Parse([]byte(`<landscape><it-resource id="n"><capability>packet-filter</capability></it-resource></landscape>`))
	require.NoError(t, err)

	reg := plugin.NewRegistry()
	reg.RegisterAction(plugin.ActionDescriptor{ID: "drop", Action: "drop", Capabilities: []string{"packet-filter"}})
	reg.RegisterFilter(plugin.FilterDescriptor{ID: "protocol", Tag: "protocol", Eval: func(v string, e eventmodel.AttackEvent) bool {
		got, _ := e.Field("protocol")
		return got == v
	}})

	a := attackWithEvent(map[string]string{"protocol": "udp"}) // never matches "tcp"
	_, _, ok := Select(reg, lib, land, a)
	assert.False(t, ok)
}

func TestSelect_PassingFilterSurvives(t *testing.T) {
	lib := loadOneRecipe(t, filteredRecipeXML)
	land, err := landscape.Parse([]byte(`<landscape><it-resource id="n"><capability>packet-filter</capability></it-resource></landscape>`))
	require.NoError(t, err)

	reg := plugin.NewRegistry()
	reg.RegisterAction(plugin.ActionDescriptor{ID: "drop", Action: "drop", Capabilities: []string{"packet-filter"}})
	reg.RegisterFilter(plugin.FilterDescriptor{ID: "protocol", Tag: "protocol", Eval: func(v string, e eventmodel.AttackEvent) bool {
		got, _ := e.Field("protocol")
		return got == v
	}})

	a := attackWithEvent(map[string]string{"protocol": "tcp"})
	r, _, ok := Select(reg, lib, land, a)
	require.True(t, ok)
	assert.Equal(t, "filtered", r.Name)
}
