package core

import (
	"math"
	"slices"
	"strings"
	"time"

	"acm/internal/domain"
)

const (
	// UsageRetention is how long an application counts toward ranking
	UsageRetention = 7 * 24 * time.Hour
	// MaxUsageEvents caps the stored history; oldest events go first
	MaxUsageEvents = 2000
)

// RecordApplication appends an application of sig at now and prunes the
// history to the retention window and size cap
func RecordApplication(history []domain.UsageEvent, sig domain.Signature, now time.Time) []domain.UsageEvent {
	out := slices.Clone(history)
	out = append(out, domain.UsageEvent{Timestamp: now.UnixMilli(), Signature: trimSignature(sig)})
	return pruneUsage(out, now)
}

// UsageScore counts applications of sig within the retention window
func UsageScore(history []domain.UsageEvent, sig domain.Signature, now time.Time) int {
	cutoff := now.Add(-UsageRetention).UnixMilli()
	score := 0
	for i := range history {
		if history[i].Timestamp < cutoff {
			continue
		}
		if SignaturesEqual(&history[i].Signature, &sig) {
			score++
		}
	}
	return score
}

// NormalizeUsage validates a typed history: drops events with no timestamp
// or an invalid signature, then prunes like RecordApplication
func NormalizeUsage(history []domain.UsageEvent, now time.Time) []domain.UsageEvent {
	out := make([]domain.UsageEvent, 0, len(history))
	for _, ev := range history {
		if ev.Timestamp <= 0 || !domain.IsSupportedSource(string(ev.Signature.Source)) {
			continue
		}
		ev.Signature = trimSignature(ev.Signature)
		out = append(out, ev)
	}
	return pruneUsage(out, now)
}

// DecodeUsage converts a stored history of unknown shape into events,
// dropping anything malformed. The second result reports whether any entry
// was dropped or rewritten.
func DecodeUsage(raw any, now time.Time) ([]domain.UsageEvent, bool) {
	items, ok := raw.([]any)
	if !ok {
		return []domain.UsageEvent{}, raw != nil
	}

	events := make([]domain.UsageEvent, 0, len(items))
	changed := false
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			changed = true
			continue
		}
		ts, ok := toMillis(m["ts"])
		if !ok {
			changed = true
			continue
		}
		sig, ok := DecodeSignature(m["signature"])
		if !ok {
			changed = true
			continue
		}
		events = append(events, domain.UsageEvent{Timestamp: ts, Signature: sig})
	}

	normalized := NormalizeUsage(events, now)
	if len(normalized) != len(events) {
		changed = true
	}
	return normalized, changed
}

// DecodeSignature converts a stored signature mapping. The source must be a
// supported value; the other fields must be strings when present.
func DecodeSignature(raw any) (domain.Signature, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return domain.Signature{}, false
	}
	source, ok := m["source"].(string)
	if !ok || !domain.IsSupportedSource(strings.TrimSpace(source)) {
		return domain.Signature{}, false
	}

	var sig domain.Signature
	sig.Source = domain.Source(strings.TrimSpace(source))
	for key, dst := range map[string]*string{"endpoint": &sig.Endpoint, "model": &sig.Model, "name": &sig.Name} {
		v, present := m[key]
		if !present || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return domain.Signature{}, false
		}
		*dst = strings.TrimSpace(s)
	}
	return sig, true
}

func toMillis(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), n > 0
	case int64:
		return n, n > 0
	case uint64:
		return int64(n), n > 0 && n <= math.MaxInt64
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func trimSignature(sig domain.Signature) domain.Signature {
	return domain.Signature{
		Source:   domain.NormalizeSource(strings.TrimSpace(string(sig.Source))),
		Endpoint: strings.TrimSpace(sig.Endpoint),
		Model:    strings.TrimSpace(sig.Model),
		Name:     strings.TrimSpace(sig.Name),
	}
}

// pruneUsage drops events outside the retention window, orders the rest
// oldest first, and keeps the newest MaxUsageEvents
func pruneUsage(history []domain.UsageEvent, now time.Time) []domain.UsageEvent {
	cutoff := now.Add(-UsageRetention).UnixMilli()
	out := slices.DeleteFunc(history, func(ev domain.UsageEvent) bool {
		return ev.Timestamp < cutoff
	})
	slices.SortStableFunc(out, func(a, b domain.UsageEvent) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
	if len(out) > MaxUsageEvents {
		out = slices.Clone(out[len(out)-MaxUsageEvents:])
	}
	return out
}
