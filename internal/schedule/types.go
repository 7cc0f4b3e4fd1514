package schedule

import "time"

// Slot says which calendar day a schedule record applies to relative to the
// fetch time.
type Slot string

const (
	SlotToday    Slot = "today"
	SlotTomorrow Slot = "tomorrow"
)

// Groups is the fixed set of outage groups published by the operator.
var Groups = []string{
	"1.1", "1.2", "2.1", "2.2", "3.1", "3.2",
	"4.1", "4.2", "5.1", "5.2", "6.1", "6.2",
}

// ValidGroup reports whether code is one of the published outage groups.
func ValidGroup(code string) bool {
	for _, g := range Groups {
		if g == code {
			return true
		}
	}
	return false
}

// GroupSchedule holds one group's interval lists for one day, as rendered
// "HH:MM–HH:MM" strings. Maybe is empty in the current page format but is
// carried through hashing and messages.
type GroupSchedule struct {
	Off   []string
	On    []string
	Maybe []string
}

// DaySnapshot is one day's parsed schedule across all groups.
type DaySnapshot struct {
	ScheduleDate string // DD.MM.YYYY as published
	Groups       map[string]GroupSchedule
}

// Snapshot is one fetch cycle's complete result. Either slot may be absent;
// an absent slot means "no data this cycle", never "empty schedule".
type Snapshot struct {
	Today    *DaySnapshot
	Tomorrow *DaySnapshot
}

// State is the persisted schedule state for one (group, slot).
type State struct {
	GroupCode    string
	Slot         Slot
	ScheduleDate string
	Hash         string
	Off          []string
	On           []string
	Maybe        []string
	UpdatedAt    time.Time
}
