package domain

// Signature is the comparable projection of a profile or of the live connection
type Signature struct {
	Source   Source `yaml:"source"`
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	Name     string `yaml:"name"`
}

// ConnectionState is the host's current connection as it reports it.
// SavedEndpoint and SavedModel are the host's persisted values, consulted
// when the live fields are empty.
type ConnectionState struct {
	Source        string
	Endpoint      string
	Model         string
	SavedEndpoint string
	SavedModel    string
}

// ConnectRequest carries the connection fields pushed to the host
type ConnectRequest struct {
	Source        Source
	Endpoint      string // Custom URL, or MakerSuite reverse proxy
	ProxyPassword string
}

// SecretEntry is one vault secret as reported by the vault's state listing.
// Value is empty when the vault masks secret values.
type SecretEntry struct {
	ID     string
	Value  string
	Label  string
	Active bool
}
