// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package mspl

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "mitigated.example.com/engine/internal/errors"
	"mitigated.example.com/engine/internal/eventmodel"
	"mitigated.example.com/engine/internal/hspl"
	"mitigated.example.com/engine/internal/landscape"
	"mitigated.example.com/engine/internal/plugin"
)

// fakeAction is a minimal mspl.Action used to exercise Project without
// depending on the actions package.
type fakeAction struct {
	built []*hspl.HSPL
}

func (f *fakeAction) Name() string          { return "drop" }
func (f *fakeAction) DefaultAction() string { return "accept" }
func (f *fakeAction) BuildRules(b *Builder, items []*hspl.HSPL, _ ActionConfig) {
	f.built = items
	b.AddPacketFilterRule("drop", PacketFilterCondition{Direction: "inbound"})
}

func mustEndpoint(t *testing.T, s string) eventmodel.Endpoint {
	t.Helper()
	ep, err := eventmodel.ParseEndpoint(s)
	require.NoError(t, err)
	return ep
}

func testSet(t *testing.T) *hspl.Set {
	return &hspl.Set{
		Items: []*hspl.HSPL{
			{Name: "r1", Subject: mustEndpoint(t, "10.0.0.1:80"), Action: "drop", Object: mustEndpoint(t, "10.0.0.2:*")},
		},
	}
}

func TestProject_EmptySetShortCircuits(t *testing.T) {
	reg := plugin.NewRegistry()
	land := &landscape.Landscape{Nodes: map[string][]string{}}
	m, ok, err := Project(context.Background(), reg, land, &hspl.Set{}, "drop", rand.New(rand.NewSource(1)), nil, ActionConfig{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, m)
}

func TestProject_NoEnforceableCandidate(t *testing.T) {
	reg := plugin.NewRegistry()
	impl := &fakeAction{}
	reg.RegisterAction(plugin.ActionDescriptor{ID: "drop", Action: "drop", Capabilities: []string{"packet-filter"}, Impl: impl})

	land := &landscape.Landscape{Nodes: map[string][]string{"edge-1": {"rate-limit"}}}
	m, ok, err := Project(context.Background(), reg, land, testSet(t), "drop", rand.New(rand.NewSource(1)), nil, ActionConfig{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, m)
}

func TestProject_SuccessBuildsAndValidates(t *testing.T) {
	reg := plugin.NewRegistry()
	impl := &fakeAction{}
	reg.RegisterAction(plugin.ActionDescriptor{ID: "drop", Action: "drop", Capabilities: []string{"packet-filter"}, Impl: impl})

	land := &landscape.Landscape{Nodes: map[string][]string{"edge-1": {"packet-filter"}}}
	set := testSet(t)
	m, ok, err := Project(context.Background(), reg, land, set, "drop", rand.New(rand.NewSource(1)), nil, ActionConfig{})
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, m)
	assert.Equal(t, "edge-1", m.ItResource.ID)
	assert.Len(t, impl.built, 1)
	assert.NoError(t, m.Validate())
}

func TestProject_ResolverOverridesResourceID(t *testing.T) {
	reg := plugin.NewRegistry()
	impl := &fakeAction{}
	reg.RegisterAction(plugin.ActionDescriptor{ID: "drop", Action: "drop", Capabilities: []string{"packet-filter"}, Impl: impl})

	land := &landscape.Landscape{Nodes: map[string][]string{"edge-1": {"packet-filter"}}}
	resolver := func(_ context.Context, nodeID, attackType string) (string, error) {
		return "resolved-" + nodeID + "-" + attackType, nil
	}
	set := testSet(t)
	set.Context.Type = "DoS"
	m, ok, err := Project(context.Background(), reg, land, set, "drop", rand.New(rand.NewSource(1)), resolver, ActionConfig{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "resolved-edge-1-DoS", m.ItResource.ID)
}

func TestProject_ResolverFailureFallsBackToNodeID(t *testing.T) {
	reg := plugin.NewRegistry()
	impl := &fakeAction{}
	reg.RegisterAction(plugin.ActionDescriptor{ID: "drop", Action: "drop", Capabilities: []string{"packet-filter"}, Impl: impl})

	land := &landscape.Landscape{Nodes: map[string][]string{"edge-1": {"packet-filter"}}}
	resolver := func(_ context.Context, nodeID, attackType string) (string, error) {
		return "", errors.New("boom")
	}
	m, ok, err := Project(context.Background(), reg, land, testSet(t), "drop", rand.New(rand.NewSource(1)), resolver, ActionConfig{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "edge-1", m.ItResource.ID)
}

func TestProject_MultiNodeChoiceIsDeterministicAcrossRuns(t *testing.T) {
	reg := plugin.NewRegistry()
	impl := &fakeAction{}
	reg.RegisterAction(plugin.ActionDescriptor{ID: "drop", Action: "drop", Capabilities: []string{"packet-filter"}, Impl: impl})

	land := &landscape.Landscape{Nodes: map[string][]string{
		"edge-3": {"packet-filter"},
		"edge-1": {"packet-filter"},
		"edge-2": {"packet-filter"},
	}}

	var ids []string
	for i := 0; i < 10; i++ {
		m, ok, err := Project(context.Background(), reg, land, testSet(t), "drop", rand.New(rand.NewSource(7)), nil, ActionConfig{})
		require.NoError(t, err)
		require.True(t, ok)
		ids = append(ids, m.ItResource.ID)
	}
	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id, "same seed must pick the same node across runs regardless of map iteration order")
	}
}

// nonActionImpl satisfies no interface in particular; used to exercise the
// type-assertion failure path when a registered plug-in's Impl doesn't
// implement mspl.Action.
type nonActionImpl struct{}

func TestProject_ImplNotAnActionReturnsNoEnforcerError(t *testing.T) {
	reg := plugin.NewRegistry()
	reg.RegisterAction(plugin.ActionDescriptor{ID: "drop", Action: "drop", Capabilities: []string{"packet-filter"}, Impl: nonActionImpl{}})

	land := &landscape.Landscape{Nodes: map[string][]string{"edge-1": {"packet-filter"}}}
	m, ok, err := Project(context.Background(), reg, land, testSet(t), "drop", rand.New(rand.NewSource(1)), nil, ActionConfig{})
	require.Error(t, err)
	assert.False(t, ok)
	assert.Nil(t, m)
	assert.Equal(t, stderrors.KindNoEnforcer, stderrors.GetKind(err))
}
