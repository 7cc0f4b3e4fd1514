package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Interval is a half-open range [Start, End) in minutes of day.
// 0 <= Start < End <= 1440. MinutesPerDay (1440) as an End means "until
// midnight" and renders as "24:00".
type Interval struct {
	Start int
	End   int
}

const MinutesPerDay = 1440

// Merge returns the canonical form of intervals: sorted by start, with
// overlapping and adjacent entries folded together. Empty input yields an
// empty result.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := append([]Interval(nil), intervals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := sorted[:1]
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if last.End >= iv.Start {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Invert returns the complement of off over [0, MinutesPerDay). An empty off
// list means power all day: the single interval [0, 1440). Merge(off) and
// Invert(off) always partition the day.
func Invert(off []Interval) []Interval {
	if len(off) == 0 {
		return []Interval{{Start: 0, End: MinutesPerDay}}
	}
	merged := Merge(off)

	var on []Interval
	cur := 0
	for _, iv := range merged {
		if cur < iv.Start {
			on = append(on, Interval{Start: cur, End: iv.Start})
		}
		if iv.End > cur {
			cur = iv.End
		}
	}
	if cur < MinutesPerDay {
		on = append(on, Interval{Start: cur, End: MinutesPerDay})
	}
	return on
}

// Strings merges intervals and renders each as "HH:MM–HH:MM".
func Strings(intervals []Interval) []string {
	merged := Merge(intervals)
	out := make([]string, 0, len(merged))
	for _, iv := range merged {
		out = append(out, FormatMinutes(iv.Start)+"–"+FormatMinutes(iv.End))
	}
	return out
}

// Normalize parses raw "HH:MM–HH:MM" strings (either dash), drops entries
// that do not parse, merges, and re-renders. Every comparison and hash goes
// through this so source formatting differences never read as a schedule
// change.
func Normalize(raw []string) []string {
	var parsed []Interval
	for _, s := range raw {
		iv, err := ParseInterval(s)
		if err != nil {
			continue
		}
		parsed = append(parsed, iv)
	}
	if len(parsed) == 0 {
		return nil
	}
	return Strings(parsed)
}

// ParseInterval parses "HH:MM–HH:MM", accepting both the en dash and the
// ASCII hyphen as separator.
func ParseInterval(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	sep := "–"
	if !strings.Contains(s, sep) {
		sep = "-"
	}
	parts := strings.SplitN(s, sep, 2)
	if len(parts) != 2 {
		return Interval{}, fmt.Errorf("invalid interval %q", s)
	}
	start, err := ParseHHMM(parts[0])
	if err != nil {
		return Interval{}, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	end, err := ParseHHMM(parts[1])
	if err != nil {
		return Interval{}, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	if start >= end {
		return Interval{}, fmt.Errorf("invalid interval %q: start >= end", s)
	}
	return Interval{Start: start, End: end}, nil
}

// ParseHHMM converts "HH:MM" to minutes of day. "24:00" maps to 1440.
func ParseHHMM(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	total := h*60 + m
	if total > MinutesPerDay {
		return 0, fmt.Errorf("time out of range in %q", s)
	}
	return total, nil
}

// FormatMinutes renders minutes of day as "HH:MM"; 1440 renders as "24:00".
func FormatMinutes(mins int) string {
	if mins >= MinutesPerDay {
		return "24:00"
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// Diff compares two interval lists after normalization and reports which
// rendered intervals were added and which were removed, both sorted.
func Diff(old, new []string) (added, removed []string) {
	oldSet := make(map[string]struct{})
	for _, s := range Normalize(old) {
		oldSet[s] = struct{}{}
	}
	newSet := make(map[string]struct{})
	for _, s := range Normalize(new) {
		newSet[s] = struct{}{}
	}
	for s := range newSet {
		if _, ok := oldSet[s]; !ok {
			added = append(added, s)
		}
	}
	for s := range oldSet {
		if _, ok := newSet[s]; !ok {
			removed = append(removed, s)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
