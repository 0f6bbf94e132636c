package core

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"acm/internal/domain"
)

const (
	minGroupLen = 2
	maxGroupLen = 32
)

// Separators that end a leading name token
var groupSeparators = []string{"-", "_", "·", "/", "|", "：", ":"}

// Separators used by the looser name split, which also splits on spaces
var splitSeparators = []string{"-", "_", "·", "/", "|", "：", ":", " "}

// Host labels too generic to name a provider
var hostSkip = map[string]bool{
	"api":     true,
	"www":     true,
	"gateway": true,
	"proxy":   true,
	"service": true,
	"chat":    true,
	"llm":     true,
	"openai":  true,
}

// Top-level and common second-level domain labels
var tldSkip = map[string]bool{
	"com":   true,
	"cn":    true,
	"net":   true,
	"org":   true,
	"io":    true,
	"ai":    true,
	"co":    true,
	"dev":   true,
	"app":   true,
	"top":   true,
	"vip":   true,
	"pro":   true,
	"site":  true,
	"cloud": true,
	"art":   true,
}

// ResolveGroup returns the profile's display group: the explicit group if
// set, otherwise one inferred from the name, then the endpoint host, then a
// looser split of the name, then a per-source default. It never mutates p.
func ResolveGroup(p *domain.Profile) string {
	if group := strings.TrimSpace(p.Group); group != "" {
		return group
	}
	return DetectGroup(p)
}

// DetectGroup infers a group ignoring any explicit one
func DetectGroup(p *domain.Profile) string {
	if g := groupFromNameToken(p.Name); g != "" {
		return g
	}
	if g := groupFromEndpoint(p.Endpoint); g != "" {
		return g
	}
	if g := groupFromNameSplit(p.Name); g != "" {
		return g
	}
	if p.NormalizedSource() == domain.SourceMakerSuite {
		return "Google"
	}
	return "Custom"
}

// groupFromNameToken takes the leading run of letters and digits when it is
// followed by whitespace, a separator, or the end of the name
func groupFromNameToken(name string) string {
	text := strings.TrimSpace(name)
	end := 0
	for i, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		end = i + utf8.RuneLen(r)
	}
	if end == 0 {
		return ""
	}

	token, rest := text[:end], text[end:]
	if rest != "" && !startsWithSeparator(rest) {
		return ""
	}
	if n := utf8.RuneCountInString(token); n < minGroupLen || n > maxGroupLen {
		return ""
	}
	return normalizeGroupToken(token)
}

func startsWithSeparator(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	if unicode.IsSpace(r) {
		return true
	}
	for _, sep := range groupSeparators {
		if strings.HasPrefix(s, sep) {
			return true
		}
	}
	return false
}

// normalizeGroupToken lowercases plain ASCII identifiers and leaves
// everything else as written
func normalizeGroupToken(token string) string {
	for _, r := range token {
		ascii := r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-')
		if !ascii {
			return token
		}
	}
	return strings.ToLower(token)
}

func groupFromEndpoint(endpoint string) string {
	raw := strings.TrimSpace(endpoint)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	var labels []string
	for _, l := range strings.Split(host, ".") {
		if l != "" {
			labels = append(labels, l)
		}
	}
	if len(labels) == 0 {
		return ""
	}

	for _, l := range labels {
		if hostSkip[l] || tldSkip[l] || len(l) < minGroupLen {
			continue
		}
		return l
	}
	if len(labels) >= 2 {
		return labels[len(labels)-2]
	}
	return labels[0]
}

// groupFromNameSplit splits the name at the earliest separator past the
// first character, falling back to the first whitespace-delimited word
func groupFromNameSplit(name string) string {
	text := strings.TrimSpace(name)
	if text == "" {
		return ""
	}

	split := -1
	for _, sep := range splitSeparators {
		if i := strings.Index(text, sep); i > 1 && (split == -1 || i < split) {
			split = i
		}
	}
	if split > 1 {
		if candidate := strings.TrimSpace(text[:split]); utf8.RuneCountInString(candidate) >= minGroupLen {
			return candidate
		}
	}

	if fields := strings.Fields(text); len(fields) > 0 && utf8.RuneCountInString(fields[0]) >= minGroupLen {
		return fields[0]
	}
	return ""
}
