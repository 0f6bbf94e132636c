package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"acm/internal/domain"

	"gopkg.in/yaml.v3"
)

// SettingsFile is the settings root's file name inside the config dir
const SettingsFile = "settings.yaml"

// ProfileDocument is the stored shape of a profile. It accepts every shape
// older versions wrote: url/customUrl for custom endpoints and a single
// secretId next to the secretIds map.
type ProfileDocument struct {
	Name          string            `yaml:"name"`
	Group         string            `yaml:"group,omitempty"`
	Source        string            `yaml:"source,omitempty"`
	URL           *string           `yaml:"url,omitempty"`
	CustomURL     *string           `yaml:"customUrl,omitempty"`
	ReverseProxy  string            `yaml:"reverseProxy,omitempty"`
	ProxyPassword string            `yaml:"proxyPassword,omitempty"`
	Key           string            `yaml:"key,omitempty"`
	Model         string            `yaml:"model,omitempty"`
	SecretID      string            `yaml:"secretId,omitempty"`
	SecretIDs     map[string]string `yaml:"secretIds,omitempty"`
}

// SettingsDocument is the on-disk settings root. Root fields other than the
// profile list are loosely typed; the normalizer validates them and falls
// back to defaults instead of failing the load.
type SettingsDocument struct {
	Configs              []ProfileDocument `yaml:"configs"`
	CollapsedGroups      any               `yaml:"collapsedGroups,omitempty"`
	ListSortMode         any               `yaml:"listSortMode,omitempty"`
	LastAppliedSignature any               `yaml:"lastAppliedSignature,omitempty"`
	UsageHistory         any               `yaml:"usageHistory,omitempty"`

	// DroppedConfigs counts config entries that were not mappings
	DroppedConfigs int `yaml:"-"`
	// RepairedConfigs counts profiles kept after resetting malformed fields
	RepairedConfigs int `yaml:"-"`
}

// UnmarshalYAML decodes the document, skipping config entries that are not
// profile mappings instead of rejecting the whole file. A mapping with a
// wrong-typed field is kept with that field reset.
func (d *SettingsDocument) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Configs              []yaml.Node `yaml:"configs"`
		CollapsedGroups      any         `yaml:"collapsedGroups"`
		ListSortMode         any         `yaml:"listSortMode"`
		LastAppliedSignature any         `yaml:"lastAppliedSignature"`
		UsageHistory         any         `yaml:"usageHistory"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	d.Configs = make([]ProfileDocument, 0, len(raw.Configs))
	d.DroppedConfigs = 0
	d.RepairedConfigs = 0
	for i := range raw.Configs {
		if raw.Configs[i].Kind != yaml.MappingNode {
			d.DroppedConfigs++
			continue
		}
		var p ProfileDocument
		if err := raw.Configs[i].Decode(&p); err != nil {
			p = salvageProfile(&raw.Configs[i])
			d.RepairedConfigs++
		}
		d.Configs = append(d.Configs, p)
	}
	d.CollapsedGroups = raw.CollapsedGroups
	d.ListSortMode = raw.ListSortMode
	d.LastAppliedSignature = raw.LastAppliedSignature
	d.UsageHistory = raw.UsageHistory
	return nil
}

// salvageProfile decodes a profile mapping field by field, leaving any field
// whose value has the wrong type at its zero value.
func salvageProfile(node *yaml.Node) ProfileDocument {
	var p ProfileDocument
	var fields map[string]yaml.Node
	if err := node.Decode(&fields); err != nil {
		return p
	}

	text := func(key string) string {
		var v string
		if f, ok := fields[key]; ok && f.Kind == yaml.ScalarNode {
			_ = f.Decode(&v)
		}
		return v
	}
	optional := func(key string) *string {
		if f, ok := fields[key]; ok && f.Kind == yaml.ScalarNode && f.Tag != "!!null" {
			v := text(key)
			return &v
		}
		return nil
	}

	p.Name = text("name")
	p.Group = text("group")
	p.Source = text("source")
	p.URL = optional("url")
	p.CustomURL = optional("customUrl")
	p.ReverseProxy = text("reverseProxy")
	p.ProxyPassword = text("proxyPassword")
	p.Key = text("key")
	p.Model = text("model")
	p.SecretID = text("secretId")
	if f, ok := fields["secretIds"]; ok && f.Kind == yaml.MappingNode {
		var ids map[string]string
		if f.Decode(&ids) == nil {
			p.SecretIDs = ids
		}
	}
	return p
}

// LoadSettings reads the settings root from the config dir.
// A missing file yields an empty document.
func LoadSettings(configDir string) (*SettingsDocument, error) {
	data, err := os.ReadFile(filepath.Join(configDir, SettingsFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &SettingsDocument{}, nil
		}
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	return ParseSettings(data)
}

// ParseSettings decodes a settings root from YAML (or JSON)
func ParseSettings(data []byte) (*SettingsDocument, error) {
	doc := &SettingsDocument{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	return doc, nil
}

// SaveSettings writes the settings root to the config dir
func SaveSettings(configDir string, settings *domain.Settings) error {
	return saveDocument(configDir, EncodeSettings(settings))
}

func saveDocument(configDir string, doc *SettingsDocument) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	// Write through a temp file so a crash never leaves a truncated root
	path := filepath.Join(configDir, SettingsFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}

// EncodeSettings converts the canonical settings root to its stored shape.
// Custom endpoints are written to both url and customUrl. The result shares
// no mutable state with s.
func EncodeSettings(s *domain.Settings) *SettingsDocument {
	doc := &SettingsDocument{
		Configs: make([]ProfileDocument, len(s.Profiles)),
	}
	for i := range s.Profiles {
		doc.Configs[i] = EncodeProfile(&s.Profiles[i])
	}

	collapsed := make(map[string]any, len(s.CollapsedGroups))
	for group, v := range s.CollapsedGroups {
		collapsed[group] = v
	}
	doc.CollapsedGroups = collapsed
	doc.ListSortMode = string(s.SortMode)

	if s.LastApplied != nil {
		doc.LastAppliedSignature = EncodeSignature(*s.LastApplied)
	}

	history := make([]any, len(s.UsageHistory))
	for i, ev := range s.UsageHistory {
		history[i] = map[string]any{
			"ts":        ev.Timestamp,
			"signature": EncodeSignature(ev.Signature),
		}
	}
	doc.UsageHistory = history

	return doc
}

// EncodeSignature converts a signature to its stored mapping
func EncodeSignature(sig domain.Signature) map[string]any {
	return map[string]any{
		"source":   string(sig.Source),
		"endpoint": sig.Endpoint,
		"model":    sig.Model,
		"name":     sig.Name,
	}
}

// EncodeProfile converts a profile to its stored shape
func EncodeProfile(p *domain.Profile) ProfileDocument {
	doc := ProfileDocument{
		Name:      p.Name,
		Group:     p.Group,
		Source:    p.Source,
		Key:       p.Key,
		Model:     p.Model,
		SecretIDs: maps.Clone(p.SecretIDs),
	}
	if p.NormalizedSource() == domain.SourceMakerSuite {
		doc.ReverseProxy = p.Endpoint
		doc.ProxyPassword = p.ProxyPassword
	} else {
		endpoint := p.Endpoint
		doc.URL = &endpoint
		doc.CustomURL = &endpoint
	}
	return doc
}

// DecodeProfile converts a stored profile to the canonical shape.
// It does not apply migrations; the normalizer does that first.
func DecodeProfile(doc *ProfileDocument) domain.Profile {
	p := domain.Profile{
		Name:      doc.Name,
		Group:     doc.Group,
		Source:    doc.Source,
		Key:       doc.Key,
		Model:     doc.Model,
		SecretIDs: doc.SecretIDs,
	}
	if domain.NormalizeSource(doc.Source) == domain.SourceMakerSuite {
		p.Endpoint = doc.ReverseProxy
		p.ProxyPassword = doc.ProxyPassword
	} else {
		switch {
		case doc.CustomURL != nil:
			p.Endpoint = *doc.CustomURL
		case doc.URL != nil:
			p.Endpoint = *doc.URL
		}
	}
	if p.SecretIDs == nil && doc.SecretID != "" {
		p.SecretIDs = map[string]string{domain.SecretKeyCustom: doc.SecretID}
	}
	return p
}
