package core

import (
	"fmt"
	"strings"

	"acm/internal/domain"
)

// SyncPlan describes rewriting the endpoint of every profile that shared an
// endpoint with a just-edited profile
type SyncPlan struct {
	Source      domain.Source
	OldEndpoint string
	NewEndpoint string
	Indices     []int // Profiles to rewrite, excluding the edited one
}

// Count is the number of profiles the plan would rewrite
func (p *SyncPlan) Count() int {
	return len(p.Indices)
}

// PlanSync finds the other profiles of source still pointing at
// oldEndpoint. It returns nil when the endpoint did not change or no other
// profile uses it. PlanSync has no side effects.
func PlanSync(profiles []domain.Profile, edited int, source domain.Source, oldEndpoint, newEndpoint string) *SyncPlan {
	oldEndpoint = strings.TrimSpace(oldEndpoint)
	newEndpoint = strings.TrimSpace(newEndpoint)
	if oldEndpoint == newEndpoint {
		return nil
	}

	old := syncTarget(source, oldEndpoint)
	var indices []int
	for i := range profiles {
		if i == edited {
			continue
		}
		if SameEndpoint(&profiles[i], old) {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return nil
	}
	return &SyncPlan{
		Source:      source,
		OldEndpoint: oldEndpoint,
		NewEndpoint: newEndpoint,
		Indices:     indices,
	}
}

// ApplySync rewrites the endpoints named by plan and returns how many were
// changed. Profiles edited since planning are left alone; if none is left
// to rewrite the plan is stale.
func ApplySync(settings *domain.Settings, plan *SyncPlan) (int, error) {
	if plan == nil {
		return 0, nil
	}
	old := syncTarget(plan.Source, plan.OldEndpoint)
	changed := 0
	for _, i := range plan.Indices {
		if i < 0 || i >= len(settings.Profiles) {
			continue
		}
		p := &settings.Profiles[i]
		if !SameEndpoint(p, old) {
			continue
		}
		p.Endpoint = plan.NewEndpoint
		changed++
	}
	if changed == 0 {
		return 0, fmt.Errorf("syncing %s: %w", plan.OldEndpoint, domain.ErrStalePlan)
	}
	return changed, nil
}

func syncTarget(source domain.Source, endpoint string) *domain.Profile {
	return &domain.Profile{Source: string(source), Endpoint: endpoint}
}
