// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesDocumentedDefaults(t *testing.T) {
	c := Default()

	assert.Equal(t, CurrentSchemaVersion, c.SchemaVersion)
	assert.Equal(t, "file", c.InputMethod)
	assert.Equal(t, "attacks", c.ServerTopic)
	assert.Equal(t, "recommendations", c.DashboardTopic)
	assert.Equal(t, "both", c.DashboardContent)
	assert.Equal(t, 3, c.DashboardAttempts)
	assert.Equal(t, 10, c.HSPLMergingThreshold)
	require.NotNil(t, c.Limit)
	assert.Equal(t, 20, c.Limit.MaxConnections)
	assert.Equal(t, "100kbit/s", c.Limit.RateLimit)
	require.NotNil(t, c.Metrics)
	assert.Equal(t, ":9090", c.Metrics.Addr)
	require.NotNil(t, c.Syslog)
	assert.Equal(t, "mitigated", c.Syslog.Tag)
	assert.Equal(t, "/var/run/mitigated.pid", c.PIDFile)
}

func validConfig() Config {
	c := Default()
	c.LandscapeFile = "landscape.xml"
	c.RecipesDirectory = "recipes/"
	return c
}

func TestConfig_Validate_AcceptsDefaults(t *testing.T) {
	c := validConfig()
	assert.NoError(t, c.Validate())
}

func TestConfig_Validate_RequiresLandscapeFile(t *testing.T) {
	c := validConfig()
	c.LandscapeFile = ""
	assert.Error(t, c.Validate())
}

func TestConfig_Validate_RequiresRecipesDirectory(t *testing.T) {
	c := validConfig()
	c.RecipesDirectory = ""
	assert.Error(t, c.Validate())
}

func TestConfig_Validate_RejectsBadInputMethod(t *testing.T) {
	c := validConfig()
	c.InputMethod = "carrier-pigeon"
	assert.Error(t, c.Validate())
}

func TestConfig_Validate_MessageInputRequiresServerFields(t *testing.T) {
	c := validConfig()
	c.InputMethod = "message"
	c.ServerAddress = ""
	assert.Error(t, c.Validate())

	c.ServerAddress = "localhost:6379"
	c.ServerTopic = ""
	assert.Error(t, c.Validate())

	c.ServerTopic = "attacks"
	assert.NoError(t, c.Validate())
}

func TestConfig_Validate_NormalizesUnknownDashboardContent(t *testing.T) {
	c := validConfig()
	c.DashboardContent = "everything"
	assert.NoError(t, c.Validate())
	assert.Equal(t, "both", c.DashboardContent)
}

func TestConfig_Validate_KeepsRecognizedDashboardContent(t *testing.T) {
	c := validConfig()
	c.DashboardContent = "hspl"
	assert.NoError(t, c.Validate())
	assert.Equal(t, "hspl", c.DashboardContent)

	c.DashboardContent = "mspl"
	assert.NoError(t, c.Validate())
	assert.Equal(t, "mspl", c.DashboardContent)
}

func TestConfig_Validate_RejectsMergingMinExceedingMax(t *testing.T) {
	c := validConfig()
	c.HSPLMergingMinBits = 10
	c.HSPLMergingMaxBits = 5
	assert.Error(t, c.Validate())
}

func TestConfig_Validate_RejectsNonPositiveLimitMaxConnections(t *testing.T) {
	c := validConfig()
	c.Limit = &LimitConfig{MaxConnections: 0}
	assert.Error(t, c.Validate())
}

func TestConfig_Validate_VNSFOEnabledRequiresBaseURL(t *testing.T) {
	c := validConfig()
	c.VNSFO = &VNSFOConfig{Enabled: true}
	assert.Error(t, c.Validate())

	c.VNSFO.BaseURL = "http://vnsfo.internal"
	assert.NoError(t, c.Validate())
}

func TestSecureString_HidesValueEverywhere(t *testing.T) {
	s := SecureString("super-secret")
	assert.Equal(t, "(hidden)", s.String())
	assert.Equal(t, "(hidden)", s.GoString())

	b, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"(hidden)"`, string(b))

	empty := SecureString("")
	assert.Equal(t, "", empty.String())
	b, err = empty.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `""`, string(b))
}

func TestSecureString_UnmarshalText(t *testing.T) {
	var s SecureString
	require.NoError(t, s.UnmarshalText([]byte("hunter2")))
	assert.Equal(t, SecureString("hunter2"), s)
}
