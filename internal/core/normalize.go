package core

import (
	"strings"
	"time"

	"acm/internal/domain"
	"acm/internal/storage/config"
)

// Normalize migrates a settings document written by any earlier version to
// the current shape, in place, and returns the canonical settings. The
// second result reports whether anything was migrated, in which case the
// caller should persist. Running it on its own output reports no change.
func Normalize(doc *config.SettingsDocument, now time.Time) (*domain.Settings, bool) {
	changed := doc.DroppedConfigs > 0 || doc.RepairedConfigs > 0
	doc.DroppedConfigs = 0
	doc.RepairedConfigs = 0

	settings := domain.NewSettings()
	settings.Profiles = make([]domain.Profile, 0, len(doc.Configs))
	for i := range doc.Configs {
		if migrateProfile(&doc.Configs[i]) {
			changed = true
		}
		settings.Profiles = append(settings.Profiles, config.DecodeProfile(&doc.Configs[i]))
	}

	collapsed, ok := decodeCollapsedGroups(doc.CollapsedGroups)
	if !ok {
		changed = true
	}
	settings.CollapsedGroups = collapsed

	mode, ok := doc.ListSortMode.(string)
	if parsed, valid := domain.ParseSortMode(mode); ok && valid {
		settings.SortMode = parsed
	} else {
		changed = true
	}

	history, dropped := DecodeUsage(doc.UsageHistory, now)
	if dropped || doc.UsageHistory == nil {
		changed = true
	}
	settings.UsageHistory = history

	if doc.LastAppliedSignature != nil {
		sig, ok := DecodeSignature(doc.LastAppliedSignature)
		if ok && hasProfileWithSignature(settings.Profiles, &sig) {
			settings.LastApplied = &sig
		} else {
			// Malformed, or the profile it pointed at is gone or edited
			changed = true
		}
	}

	return settings, changed
}

// migrateProfile applies the per-profile rules, reporting whether any fired
func migrateProfile(doc *config.ProfileDocument) bool {
	changed := false

	if doc.Source == "" {
		doc.Source = string(domain.SourceCustom)
		changed = true
	}

	if doc.Source == string(domain.SourceCustom) {
		if doc.CustomURL == nil && doc.URL != nil {
			u := *doc.URL
			doc.CustomURL = &u
			changed = true
		}
		if doc.CustomURL != nil && (doc.URL == nil || *doc.URL != *doc.CustomURL) {
			u := *doc.CustomURL
			doc.URL = &u
			changed = true
		}
	}

	if doc.SecretID != "" && doc.SecretIDs == nil {
		doc.SecretIDs = map[string]string{domain.SecretKeyCustom: doc.SecretID}
		changed = true
	}

	if strings.TrimSpace(doc.Group) == "" {
		p := config.DecodeProfile(doc)
		doc.Group = DetectGroup(&p)
		changed = true
	}

	return changed
}

func decodeCollapsedGroups(raw any) (map[string]bool, bool) {
	out := map[string]bool{}
	m, ok := raw.(map[string]any)
	if !ok {
		return out, false
	}
	valid := true
	for group, v := range m {
		b, ok := v.(bool)
		if !ok {
			valid = false
			continue
		}
		out[group] = b
	}
	return out, valid
}

func hasProfileWithSignature(profiles []domain.Profile, sig *domain.Signature) bool {
	for i := range profiles {
		if MatchesSignature(&profiles[i], sig) {
			return true
		}
	}
	return false
}
