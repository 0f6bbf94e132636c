package domain

import (
	"maps"
	"strings"
)

// Profile is one stored connection configuration
type Profile struct {
	Name          string            // Display identity, dedupe key on create
	Group         string            // Explicit display group (optional)
	Source        string            // Raw source value, preserved even when unsupported
	Endpoint      string            // Custom URL or MakerSuite reverse proxy
	ProxyPassword string            // MakerSuite reverse proxy password (optional)
	Key           string            // Plaintext key as typed, linked into the vault on apply
	Model         string            // Preferred model (optional)
	SecretIDs     map[string]string // Vault key -> vault secret id
}

// NormalizedSource returns the profile's source coerced onto the supported set
func (p *Profile) NormalizedSource() Source {
	return NormalizeSource(p.Source)
}

// EndpointValue returns the trimmed endpoint
func (p *Profile) EndpointValue() string {
	return strings.TrimSpace(p.Endpoint)
}

// SecretID returns the vault id recorded for the profile's source, if any
func (p *Profile) SecretID() string {
	if p.SecretIDs == nil {
		return ""
	}
	return p.SecretIDs[p.NormalizedSource().SecretKey()]
}

// SetSecretID records a vault id for the given vault key
func (p *Profile) SetSecretID(key, id string) {
	if p.SecretIDs == nil {
		p.SecretIDs = make(map[string]string)
	}
	p.SecretIDs[key] = id
}

// Clone returns a deep copy of the profile
func (p Profile) Clone() Profile {
	if p.SecretIDs != nil {
		p.SecretIDs = maps.Clone(p.SecretIDs)
	}
	return p
}

// ExportedProfile is the YAML-serializable format for sharing.
// Keys and vault ids are never exported.
type ExportedProfile struct {
	Name     string `yaml:"name"`
	Group    string `yaml:"group,omitempty"`
	Source   string `yaml:"source"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Model    string `yaml:"model,omitempty"`
}
