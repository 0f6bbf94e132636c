package domain

import "fmt"

// Source is the provider family a profile connects to
type Source string

const (
	SourceCustom     Source = "custom"     // OpenAI-compatible endpoint
	SourceMakerSuite Source = "makersuite" // Google AI Studio
)

// Vault keys under which the host stores each source's API key
const (
	SecretKeyCustom     = "api_key_custom"
	SecretKeyMakerSuite = "api_key_makersuite"
)

// NormalizeSource maps a raw source value onto the supported set.
// Anything unrecognized is treated as custom.
func NormalizeSource(raw string) Source {
	if Source(raw) == SourceMakerSuite {
		return SourceMakerSuite
	}
	return SourceCustom
}

// IsSupportedSource reports whether raw names a source this tool can apply
func IsSupportedSource(raw string) bool {
	switch Source(raw) {
	case SourceCustom, SourceMakerSuite:
		return true
	}
	return false
}

// String implements fmt.Stringer
func (s Source) String() string {
	return string(s)
}

// SecretKey returns the vault key holding this source's API key
func (s Source) SecretKey() string {
	if s == SourceMakerSuite {
		return SecretKeyMakerSuite
	}
	return SecretKeyCustom
}

// SourceLabel returns the display label for a raw source value
func SourceLabel(raw string) string {
	normalized := NormalizeSource(raw)
	if raw != "" && string(normalized) != raw {
		return fmt.Sprintf("Unsupported (%s)", raw)
	}
	if normalized == SourceMakerSuite {
		return "Google AI Studio"
	}
	return "Custom (OpenAI-compatible)"
}

// EndpointLabel names the endpoint field for a source
func EndpointLabel(s Source) string {
	if s == SourceMakerSuite {
		return "reverse proxy"
	}
	return "URL"
}
