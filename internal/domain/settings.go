package domain

import "fmt"

// SortMode selects how the profile list is ordered
type SortMode string

const (
	SortGroup SortMode = "group"
	SortUsage SortMode = "usage"
	SortName  SortMode = "name"
)

// ParseSortMode parses a sort mode, reporting whether it was recognized
func ParseSortMode(s string) (SortMode, bool) {
	switch SortMode(s) {
	case SortGroup, SortUsage, SortName:
		return SortMode(s), true
	}
	return SortGroup, false
}

// Next cycles group -> usage -> name -> group
func (m SortMode) Next() SortMode {
	switch m {
	case SortGroup:
		return SortUsage
	case SortUsage:
		return SortName
	default:
		return SortGroup
	}
}

// UsageEvent records one successful profile application
type UsageEvent struct {
	Timestamp int64 // Unix milliseconds
	Signature Signature
}

// Settings is the root of everything this tool persists
type Settings struct {
	Profiles        []Profile
	CollapsedGroups map[string]bool
	SortMode        SortMode
	LastApplied     *Signature
	UsageHistory    []UsageEvent
}

// NewSettings returns an empty settings root with defaults
func NewSettings() *Settings {
	return &Settings{
		Profiles:        []Profile{},
		CollapsedGroups: map[string]bool{},
		SortMode:        SortGroup,
		UsageHistory:    []UsageEvent{},
	}
}

// Profile returns the profile at index or ErrProfileNotFound
func (s *Settings) Profile(index int) (*Profile, error) {
	if index < 0 || index >= len(s.Profiles) {
		return nil, fmt.Errorf("%w: index %d", ErrProfileNotFound, index)
	}
	return &s.Profiles[index], nil
}

// IndexByName returns the index of the first profile with the exact name, or -1
func (s *Settings) IndexByName(name string) int {
	for i := range s.Profiles {
		if s.Profiles[i].Name == name {
			return i
		}
	}
	return -1
}
