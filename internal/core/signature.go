package core

import (
	"strings"

	"acm/internal/domain"
)

// BuildSignature projects a profile onto the fields comparable with live
// connection state. A non-empty sourceOverride replaces the profile's own
// source.
func BuildSignature(p *domain.Profile, sourceOverride domain.Source) domain.Signature {
	source := p.NormalizedSource()
	if sourceOverride != "" {
		source = domain.NormalizeSource(string(sourceOverride))
	}
	return domain.Signature{
		Source:   source,
		Endpoint: strings.TrimSpace(p.Endpoint),
		Model:    strings.TrimSpace(p.Model),
		Name:     strings.TrimSpace(p.Name),
	}
}

// LiveSignature builds the signature of the host's current connection.
// Empty live fields fall back to the host's saved values.
func LiveSignature(state domain.ConnectionState) domain.Signature {
	endpoint := strings.TrimSpace(state.Endpoint)
	if endpoint == "" {
		endpoint = strings.TrimSpace(state.SavedEndpoint)
	}
	model := strings.TrimSpace(state.Model)
	if model == "" {
		model = strings.TrimSpace(state.SavedModel)
	}
	return domain.Signature{
		Source:   domain.NormalizeSource(strings.TrimSpace(state.Source)),
		Endpoint: endpoint,
		Model:    model,
	}
}

// SignaturesEqual compares two signatures field by field after trimming.
// A nil signature equals nothing, not even another nil.
func SignaturesEqual(a, b *domain.Signature) bool {
	if a == nil || b == nil {
		return false
	}
	return domain.NormalizeSource(strings.TrimSpace(string(a.Source))) == domain.NormalizeSource(strings.TrimSpace(string(b.Source))) &&
		strings.TrimSpace(a.Endpoint) == strings.TrimSpace(b.Endpoint) &&
		strings.TrimSpace(a.Model) == strings.TrimSpace(b.Model) &&
		strings.TrimSpace(a.Name) == strings.TrimSpace(b.Name)
}

// MatchesSignature reports whether the profile's signature equals sig
func MatchesSignature(p *domain.Profile, sig *domain.Signature) bool {
	own := BuildSignature(p, "")
	return SignaturesEqual(&own, sig)
}
