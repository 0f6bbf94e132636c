package core_test

import (
	"testing"

	"acm/internal/core"
	"acm/internal/domain"

	"github.com/stretchr/testify/assert"
)

func sharedEndpointProfiles() []domain.Profile {
	return []domain.Profile{
		{Name: "Relay A", Source: "custom", Endpoint: "https://relay.test/v1", Model: "gpt-4o"},
		{Name: "Relay B", Source: "custom", Endpoint: "https://relay.test/v1", Model: "claude-3"},
		{Name: "Gemini", Source: "makersuite", Model: "gemini-pro"},
	}
}

func TestLocateActive_ModelDisambiguates(t *testing.T) {
	profiles := sharedEndpointProfiles()
	live := domain.ConnectionState{Source: "custom", Endpoint: "https://relay.test/v1", Model: "claude-3"}

	assert.Equal(t, 1, core.LocateActive(profiles, live, nil))

	live.Model = "gpt-4o"
	assert.Equal(t, 0, core.LocateActive(profiles, live, nil))
}

func TestLocateActive_LastAppliedDisambiguates(t *testing.T) {
	profiles := sharedEndpointProfiles()
	live := domain.ConnectionState{Source: "custom", Endpoint: "https://relay.test/v1"}
	last := core.BuildSignature(&profiles[1], "")

	assert.Equal(t, 1, core.LocateActive(profiles, live, &last))
}

func TestLocateActive_TieGoesToLowestIndex(t *testing.T) {
	profiles := sharedEndpointProfiles()
	live := domain.ConnectionState{Source: "custom", Endpoint: "https://relay.test/v1", Model: "other"}

	assert.Equal(t, 0, core.LocateActive(profiles, live, nil))
}

func TestLocateActive_SourceMustMatch(t *testing.T) {
	profiles := sharedEndpointProfiles()
	live := domain.ConnectionState{Source: "makersuite", Endpoint: "https://relay.test/v1"}

	assert.Equal(t, -1, core.LocateActive(profiles, live, nil))
}

func TestLocateActive_FallsBackToLastApplied(t *testing.T) {
	profiles := sharedEndpointProfiles()
	live := domain.ConnectionState{Source: "custom", Endpoint: "https://elsewhere.test"}
	last := core.BuildSignature(&profiles[2], "")

	assert.Equal(t, 2, core.LocateActive(profiles, live, &last))

	stale := domain.Signature{Source: domain.SourceCustom, Name: "gone"}
	assert.Equal(t, -1, core.LocateActive(profiles, live, &stale))
}

func TestSameEndpoint(t *testing.T) {
	profiles := sharedEndpointProfiles()
	assert.True(t, core.SameEndpoint(&profiles[0], &profiles[1]))
	assert.False(t, core.SameEndpoint(&profiles[0], &profiles[2]))
}
