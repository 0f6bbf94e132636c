package core_test

import (
	"testing"

	"acm/internal/core"
	"acm/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestDetectGroup(t *testing.T) {
	tests := []struct {
		name    string
		profile domain.Profile
		want    string
	}{
		{"leading token before dash", domain.Profile{Name: "Acme-GPT4"}, "acme"},
		{"whole name is a token", domain.Profile{Name: "MyKey"}, "mykey"},
		{"token before space", domain.Profile{Name: "OpenRouter claude"}, "openrouter"},
		{"token before colon", domain.Profile{Name: "deepseek:chat"}, "deepseek"},
		{"token before fullwidth colon", domain.Profile{Name: "Moonshot：kimi"}, "moonshot"},
		{"non-ascii token kept as written", domain.Profile{Name: "中转站-A"}, "中转站"},
		{"endpoint skips generic labels", domain.Profile{Endpoint: "https://api.example-provider.com/v1"}, "example-provider"},
		{"endpoint without scheme", domain.Profile{Endpoint: "gateway.acme.ai/v1"}, "acme"},
		{"endpoint strips www", domain.Profile{Endpoint: "https://www.relay.net"}, "relay"},
		{"endpoint of only generic labels", domain.Profile{Endpoint: "https://api.openai.com/v1"}, "openai"},
		{"endpoint single label", domain.Profile{Endpoint: "http://localhost:8080/v1"}, "localhost"},
		{"name token wins over endpoint", domain.Profile{Name: "Work-1", Endpoint: "https://api.acme.com"}, "work"},
		{"token too short falls to endpoint", domain.Profile{Name: "x-1", Endpoint: "https://api.acme.com"}, "acme"},
		{"split fallback", domain.Profile{Name: "a.b test"}, "a.b"},
		{"default custom", domain.Profile{Name: "x"}, "Custom"},
		{"default makersuite", domain.Profile{Name: "x", Source: "makersuite"}, "Google"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.DetectGroup(&tt.profile))
		})
	}
}

func TestDetectGroup_TokenLengthLimit(t *testing.T) {
	long := domain.Profile{Name: "abcdefghijklmnopqrstuvwxyz0123456789-x"}
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz0123456789", core.DetectGroup(&long))
}

func TestResolveGroup(t *testing.T) {
	p := domain.Profile{Name: "Acme-GPT4", Group: "  Team  "}
	assert.Equal(t, "Team", core.ResolveGroup(&p))

	p.Group = "   "
	assert.Equal(t, "acme", core.ResolveGroup(&p))
	assert.Equal(t, "   ", p.Group, "resolving must not mutate the profile")
}
