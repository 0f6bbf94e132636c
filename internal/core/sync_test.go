package core_test

import (
	"testing"

	"acm/internal/core"
	"acm/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syncProfiles() []domain.Profile {
	return []domain.Profile{
		{Name: "edited", Source: "custom", Endpoint: "https://new.test/v1"},
		{Name: "sibling", Source: "custom", Endpoint: "https://old.test/v1"},
		{Name: "gem", Source: "makersuite", Endpoint: "https://old.test/v1"},
		{Name: "padded", Source: "custom", Endpoint: " https://old.test/v1 "},
		{Name: "other", Source: "custom", Endpoint: "https://elsewhere.test"},
	}
}

func TestPlanSync(t *testing.T) {
	plan := core.PlanSync(syncProfiles(), 0, domain.SourceCustom, "https://old.test/v1 ", "https://new.test/v1")
	require.NotNil(t, plan)

	assert.Equal(t, []int{1, 3}, plan.Indices)
	assert.Equal(t, 2, plan.Count())
	assert.Equal(t, "https://old.test/v1", plan.OldEndpoint)
	assert.Equal(t, "https://new.test/v1", plan.NewEndpoint)
	assert.Equal(t, domain.SourceCustom, plan.Source)
}

func TestPlanSync_NoPlan(t *testing.T) {
	profiles := syncProfiles()

	assert.Nil(t, core.PlanSync(profiles, 1, domain.SourceCustom, "https://old.test/v1", " https://old.test/v1"), "endpoint unchanged")
	assert.Nil(t, core.PlanSync(profiles, 4, domain.SourceCustom, "https://unused.test", "https://x.test"), "no other profile uses it")
	assert.Nil(t, core.PlanSync(profiles, 0, domain.SourceMakerSuite, "https://elsewhere.test", "https://x.test"), "source must match")
}

func TestPlanSync_EmptyOldEndpoint(t *testing.T) {
	profiles := []domain.Profile{
		{Name: "a", Source: "custom", Endpoint: "https://set.test"},
		{Name: "b", Source: "custom"},
	}

	plan := core.PlanSync(profiles, 0, domain.SourceCustom, "", "https://set.test")
	require.NotNil(t, plan)
	assert.Equal(t, []int{1}, plan.Indices)
}

func TestApplySync(t *testing.T) {
	settings := domain.NewSettings()
	settings.Profiles = syncProfiles()
	plan := core.PlanSync(settings.Profiles, 0, domain.SourceCustom, "https://old.test/v1", "https://new.test/v1")

	n, err := core.ApplySync(settings, plan)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "https://new.test/v1", settings.Profiles[1].Endpoint)
	assert.Equal(t, "https://new.test/v1", settings.Profiles[3].Endpoint)
	assert.Equal(t, "https://old.test/v1", settings.Profiles[2].Endpoint, "other sources untouched")
}

func TestApplySync_SkipsProfilesEditedSincePlanning(t *testing.T) {
	settings := domain.NewSettings()
	settings.Profiles = syncProfiles()
	plan := core.PlanSync(settings.Profiles, 0, domain.SourceCustom, "https://old.test/v1", "https://new.test/v1")

	settings.Profiles[1].Endpoint = "https://moved.test"

	n, err := core.ApplySync(settings, plan)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "https://moved.test", settings.Profiles[1].Endpoint)
}

func TestApplySync_Stale(t *testing.T) {
	settings := domain.NewSettings()
	settings.Profiles = syncProfiles()
	plan := core.PlanSync(settings.Profiles, 0, domain.SourceCustom, "https://old.test/v1", "https://new.test/v1")

	settings.Profiles = settings.Profiles[:1]

	_, err := core.ApplySync(settings, plan)
	assert.ErrorIs(t, err, domain.ErrStalePlan)
}

func TestApplySync_NilPlan(t *testing.T) {
	n, err := core.ApplySync(domain.NewSettings(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
