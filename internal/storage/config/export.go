package config

import (
	"fmt"
	"strings"

	"acm/internal/domain"

	"gopkg.in/yaml.v3"
)

// exportFile is the portable document written by ExportProfiles
type exportFile struct {
	Profiles []domain.ExportedProfile `yaml:"profiles"`
}

// ExportProfiles exports profiles to a portable format without keys or vault ids
func ExportProfiles(profiles []domain.Profile) ([]byte, error) {
	out := exportFile{Profiles: make([]domain.ExportedProfile, len(profiles))}
	for i, p := range profiles {
		out.Profiles[i] = domain.ExportedProfile{
			Name:     p.Name,
			Group:    p.Group,
			Source:   p.Source,
			Endpoint: p.EndpointValue(),
			Model:    p.Model,
		}
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("marshaling exported profiles: %w", err)
	}
	return data, nil
}

// ImportProfiles parses profiles from portable format. Entries without a
// name are skipped.
func ImportProfiles(data []byte) ([]domain.Profile, error) {
	var in exportFile
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing exported profiles: %w", err)
	}

	profiles := make([]domain.Profile, 0, len(in.Profiles))
	for _, e := range in.Profiles {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		source := e.Source
		if source == "" {
			source = string(domain.SourceCustom)
		}
		profiles = append(profiles, domain.Profile{
			Name:     name,
			Group:    strings.TrimSpace(e.Group),
			Source:   source,
			Endpoint: strings.TrimSpace(e.Endpoint),
			Model:    strings.TrimSpace(e.Model),
		})
	}
	return profiles, nil
}
