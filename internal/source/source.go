package source

import (
	"context"
	"slices"
	"strings"

	"acm/internal/domain"
)

// ListRequest holds the connection fields needed to list a provider's models
type ListRequest struct {
	Source        domain.Source
	Endpoint      string // Custom URL, or MakerSuite reverse proxy (optional)
	Key           string // Provider key, when not taken from the host vault
	ProxyPassword string // MakerSuite reverse proxy password
}

// ModelLister lists the models a provider offers
type ModelLister interface {
	// Identity
	ID() string
	Name() string

	// ListModels returns model ids sorted ascending
	ListModels(ctx context.Context, req ListRequest) ([]string, error)
}

// SortModels drops blank and duplicate ids and sorts the rest
func SortModels(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
