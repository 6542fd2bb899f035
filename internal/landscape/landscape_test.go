// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package landscape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validLandscapeXML = `<landscape>
	<it-resource id="edge-1">
		<capability>packet-filter</capability>
		<capability>rate-limit</capability>
	</it-resource>
	<it-resource id="edge-2">
		<capability>packet-filter</capability>
	</it-resource>
</landscape>`

func TestParse_ValidLandscape(t *testing.T) {
	land, err := Parse([]byte(validLandscapeXML))
	require.NoError(t, err)
	require.Len(t, land.Nodes, 2)

	caps, ok := land.Capabilities("edge-1")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"packet-filter", "rate-limit"}, caps)
}

func TestParse_DuplicateIDRejected(t *testing.T) {
	_, err := Parse([]byte(`<landscape>
		<it-resource id="edge-1"><capability>packet-filter</capability></it-resource>
		<it-resource id="edge-1"><capability>rate-limit</capability></it-resource>
	</landscape>`))
	assert.Error(t, err)
}

func TestParse_EmptyIDRejected(t *testing.T) {
	_, err := Parse([]byte(`<landscape><it-resource id=""><capability>packet-filter</capability></it-resource></landscape>`))
	assert.Error(t, err)
}

func TestParse_MalformedXML(t *testing.T) {
	_, err := Parse([]byte(`not xml`))
	assert.Error(t, err)
}

func TestLandscape_NodeIDs_SubsetMatch(t *testing.T) {
	land, err := Parse([]byte(validLandscapeXML))
	require.NoError(t, err)

	ids := land.NodeIDs([]string{"packet-filter", "rate-limit"})
	assert.ElementsMatch(t, []string{"edge-1"}, ids)
}

func TestLandscape_AllCapabilitySets(t *testing.T) {
	land, err := Parse([]byte(validLandscapeXML))
	require.NoError(t, err)
	assert.Len(t, land.AllCapabilitySets(), 2)
}

func TestLandscape_Capabilities_Missing(t *testing.T) {
	land, err := Parse([]byte(validLandscapeXML))
	require.NoError(t, err)
	_, ok := land.Capabilities("nonexistent")
	assert.False(t, ok)
}
