package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSource(t *testing.T) {
	tests := []struct {
		raw  string
		want Source
	}{
		{"makersuite", SourceMakerSuite},
		{"custom", SourceCustom},
		{"", SourceCustom},
		{"openrouter", SourceCustom},
		{"MakerSuite", SourceCustom},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSource(tt.raw))
		})
	}
}

func TestIsSupportedSource(t *testing.T) {
	assert.True(t, IsSupportedSource("custom"))
	assert.True(t, IsSupportedSource("makersuite"))
	assert.False(t, IsSupportedSource(""))
	assert.False(t, IsSupportedSource("claude"))
}

func TestSourceLabels(t *testing.T) {
	assert.Equal(t, "Custom (OpenAI-compatible)", SourceLabel("custom"))
	assert.Equal(t, "Custom (OpenAI-compatible)", SourceLabel(""))
	assert.Equal(t, "Google AI Studio", SourceLabel("makersuite"))
	assert.Equal(t, "Unsupported (openrouter)", SourceLabel("openrouter"))

	assert.Equal(t, "URL", EndpointLabel(SourceCustom))
	assert.Equal(t, "reverse proxy", EndpointLabel(SourceMakerSuite))

	assert.Equal(t, SecretKeyCustom, SourceCustom.SecretKey())
	assert.Equal(t, SecretKeyMakerSuite, SourceMakerSuite.SecretKey())
}

func TestSortMode(t *testing.T) {
	for _, s := range []string{"group", "usage", "name"} {
		mode, ok := ParseSortMode(s)
		assert.True(t, ok, s)
		assert.Equal(t, SortMode(s), mode)
	}

	mode, ok := ParseSortMode("recent")
	assert.False(t, ok)
	assert.Equal(t, SortGroup, mode)

	assert.Equal(t, SortUsage, SortGroup.Next())
	assert.Equal(t, SortName, SortUsage.Next())
	assert.Equal(t, SortGroup, SortName.Next())
	assert.Equal(t, SortGroup, SortMode("").Next())
}

func TestProfile_SecretIDs(t *testing.T) {
	p := Profile{Name: "x", Source: "makersuite"}
	assert.Empty(t, p.SecretID())

	p.SetSecretID(SecretKeyCustom, "c1")
	assert.Empty(t, p.SecretID(), "id of another source")
	p.SetSecretID(SecretKeyMakerSuite, "m1")
	assert.Equal(t, "m1", p.SecretID())

	clone := p.Clone()
	clone.SetSecretID(SecretKeyMakerSuite, "m2")
	assert.Equal(t, "m1", p.SecretID(), "clone does not share the map")
}

func TestProfile_EndpointValue(t *testing.T) {
	p := Profile{Endpoint: "  https://h.test/v1 \n"}
	assert.Equal(t, "https://h.test/v1", p.EndpointValue())
}

func TestSettings_Lookup(t *testing.T) {
	s := NewSettings()
	assert.Equal(t, SortGroup, s.SortMode)
	s.Profiles = append(s.Profiles, Profile{Name: "a"}, Profile{Name: "b"}, Profile{Name: "b"})

	assert.Equal(t, 1, s.IndexByName("b"))
	assert.Equal(t, -1, s.IndexByName("c"))

	p, err := s.Profile(2)
	require.NoError(t, err)
	assert.Equal(t, "b", p.Name)

	_, err = s.Profile(3)
	assert.ErrorIs(t, err, ErrProfileNotFound)
	_, err = s.Profile(-1)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(ErrNameRequired))
	assert.True(t, IsValidation(fmt.Errorf("saving: %w", ErrEndpointOrKeyRequired)))
	assert.False(t, IsValidation(ErrVault))
	assert.False(t, IsValidation(errors.New("other")))
}
