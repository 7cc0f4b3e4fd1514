package source

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"svitlobot/internal/schedule"
)

var (
	dateLineRe  = regexp.MustCompile(`Графік погодинних відключень на\s+(\d{2}\.\d{2}\.\d{4})`)
	groupLineRe = regexp.MustCompile(`^Група\s+(\d\.\d)\.`)
	intervalRe  = regexp.MustCompile(`з\s+(\d{2}:\d{2})\s+до\s+(\d{2}:\d{2})`)
)

// ParseDate parses the operator's DD.MM.YYYY date format.
func ParseDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// FormatDate renders a date in the operator's DD.MM.YYYY format.
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

type section struct {
	date  string
	lines []string
}

// ParseText turns the schedule page's text lines into a snapshot. The page
// carries one or two blocks, each introduced by a "Графік погодинних
// відключень на DD.MM.YYYY" header; a headerless page is treated as one
// block for today (older page layout). A block must yield all 12 groups to
// count; a partial block is discarded so a half-rendered page never reads
// as "most groups lost their outages".
//
// now anchors the today/tomorrow classification and must already be in the
// operator's timezone.
func ParseText(lines []string, now time.Time) *schedule.Snapshot {
	sections := splitSections(lines, now)

	today := FormatDate(now)
	tomorrow := FormatDate(now.AddDate(0, 0, 1))

	snap := &schedule.Snapshot{}
	for _, sec := range sections {
		day := parseSection(sec)
		if day == nil {
			continue
		}
		switch sec.date {
		case today:
			snap.Today = day
		case tomorrow:
			snap.Tomorrow = day
		}
	}
	if snap.Today == nil && snap.Tomorrow == nil {
		return nil
	}
	return snap
}

func splitSections(lines []string, now time.Time) []section {
	var out []section
	cur := section{date: FormatDate(now)}
	started := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := dateLineRe.FindStringSubmatch(line); m != nil {
			if started && len(cur.lines) > 0 {
				out = append(out, cur)
			}
			cur = section{date: m[1]}
			started = true
			continue
		}
		cur.lines = append(cur.lines, line)
	}
	if len(cur.lines) > 0 {
		out = append(out, cur)
	}
	return out
}

func parseSection(sec section) *schedule.DaySnapshot {
	groups := make(map[string]schedule.GroupSchedule)
	for _, line := range sec.lines {
		m := groupLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		code := m[1]
		if !schedule.ValidGroup(code) {
			continue
		}

		var off []schedule.Interval
		for _, iv := range intervalRe.FindAllStringSubmatch(line, -1) {
			start, err1 := schedule.ParseHHMM(iv[1])
			end, err2 := schedule.ParseHHMM(iv[2])
			if err1 != nil || err2 != nil || start >= end {
				continue
			}
			off = append(off, schedule.Interval{Start: start, End: end})
		}
		if len(off) == 0 {
			continue
		}

		merged := schedule.Merge(off)
		groups[code] = schedule.GroupSchedule{
			Off:   schedule.Strings(merged),
			On:    schedule.Strings(schedule.Invert(merged)),
			Maybe: nil, // absent in the current page format
		}
	}

	if len(groups) != len(schedule.Groups) {
		return nil
	}
	return &schedule.DaySnapshot{ScheduleDate: sec.date, Groups: groups}
}
