package core

import (
	"slices"
	"time"

	"acm/internal/domain"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Entry is one profile in a ranked view
type Entry struct {
	Index   int // Position in the settings profile list
	Profile domain.Profile
	Group   string // Resolved display group
	Usage   int    // Usage score within the retention window
}

// Section is a run of entries in a ranked view. Group is empty for entries
// shown without a group header: every entry in name and usage order, and
// profiles that are alone in their group.
type Section struct {
	Group     string
	Usage     int // Sum of member usage scores
	Collapsed bool
	Entries   []Entry
}

// Ranker orders profiles for display
type Ranker struct {
	tag language.Tag
}

// NewRanker creates a ranker collating names for locale. An empty or
// unknown locale collates with root rules.
func NewRanker(locale string) *Ranker {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Ranker{tag: tag}
}

// Rank orders the profiles at the given indices (all profiles when include
// is nil). The order is total and deterministic: ties that survive every
// rule fall back to the original index.
func (r *Ranker) Rank(profiles []domain.Profile, include []int, history []domain.UsageEvent, mode domain.SortMode, now time.Time) []Section {
	// Collators keep per-call state
	col := collate.New(r.tag, collate.IgnoreCase, collate.Numeric)

	if include == nil {
		include = make([]int, len(profiles))
		for i := range include {
			include[i] = i
		}
	}

	entries := make([]Entry, 0, len(include))
	for _, i := range include {
		if i < 0 || i >= len(profiles) {
			continue
		}
		p := profiles[i]
		entries = append(entries, Entry{
			Index:   i,
			Profile: p,
			Group:   ResolveGroup(&p),
			Usage:   UsageScore(history, BuildSignature(&p, ""), now),
		})
	}

	byName := func(a, b Entry) int {
		if c := col.CompareString(a.Profile.Name, b.Profile.Name); c != 0 {
			return c
		}
		return a.Index - b.Index
	}
	byUsage := func(a, b Entry) int {
		if a.Usage != b.Usage {
			return b.Usage - a.Usage
		}
		return byName(a, b)
	}

	switch mode {
	case domain.SortName:
		slices.SortFunc(entries, byName)
		return []Section{flatSection(entries)}
	case domain.SortUsage:
		slices.SortFunc(entries, byUsage)
		return []Section{flatSection(entries)}
	}

	return r.rankGroups(col, entries, byUsage)
}

func (r *Ranker) rankGroups(col *collate.Collator, entries []Entry, byUsage func(a, b Entry) int) []Section {
	var order []string
	members := make(map[string][]Entry)
	for _, e := range entries {
		if _, seen := members[e.Group]; !seen {
			order = append(order, e.Group)
		}
		members[e.Group] = append(members[e.Group], e)
	}

	sections := make([]Section, 0, len(order))
	for _, group := range order {
		list := members[group]
		slices.SortFunc(list, byUsage)

		if len(list) == 1 {
			sections = append(sections, Section{Usage: list[0].Usage, Entries: list})
			continue
		}
		total := 0
		for _, e := range list {
			total += e.Usage
		}
		sections = append(sections, Section{Group: group, Usage: total, Entries: list})
	}

	// Buckets and lone profiles compete on usage, then on their display key
	key := func(s Section) string {
		if s.Group != "" {
			return s.Group
		}
		return s.Entries[0].Profile.Name
	}
	slices.SortFunc(sections, func(a, b Section) int {
		if a.Usage != b.Usage {
			return b.Usage - a.Usage
		}
		if c := col.CompareString(key(a), key(b)); c != 0 {
			return c
		}
		if (a.Group == "") != (b.Group == "") {
			if a.Group != "" {
				return -1
			}
			return 1
		}
		return a.Entries[0].Index - b.Entries[0].Index
	})
	return sections
}

func flatSection(entries []Entry) Section {
	total := 0
	for _, e := range entries {
		total += e.Usage
	}
	return Section{Usage: total, Entries: entries}
}

// Flatten returns the entries of sections in display order
func Flatten(sections []Section) []Entry {
	var out []Entry
	for _, s := range sections {
		out = append(out, s.Entries...)
	}
	return out
}
