package schedule

import (
	"context"
	"fmt"
	"time"

	"svitlobot/pkg/logx"
)

// StateStore is the slice of persistence the detector needs. The sqlite
// store implements it; tests substitute a map-backed fake.
type StateStore interface {
	// State returns the stored state for (group, slot), or nil when none
	// has been recorded yet.
	State(ctx context.Context, group string, slot Slot) (*State, error)
	// SaveState upserts, last write wins.
	SaveState(ctx context.Context, st State) error
}

// Change describes one detected schedule update. It carries everything the
// notification path needs; the detector itself never talks to the dispatcher.
type Change struct {
	GroupCode    string
	Slot         Slot
	ScheduleDate string
	Off          []string
	On           []string
	Maybe        []string

	// FirstForDate is set for the tomorrow slot only: true when this is the
	// first snapshot seen for that calendar date. Downstream message framing
	// uses it ("tomorrow's schedule published" vs "tomorrow's schedule
	// changed").
	FirstForDate bool

	// Prior is the replaced state, nil on first detection. The store row is
	// overwritten before the change is dispatched, so diff rendering gets
	// its old side from here.
	Prior *State
}

// Detector decides whether a freshly scraped (group, slot) schedule differs
// from the stored one, persisting the new state when it does.
type Detector struct {
	store StateStore
	log   logx.Logger
	now   func() time.Time
}

func NewDetector(store StateStore, log logx.Logger) *Detector {
	return &Detector{store: store, log: log.With(logx.String("comp", "detect")), now: time.Now}
}

// Detect normalizes the scraped lists, hashes them together with the
// schedule date, and compares against the stored hash. On mismatch (or no
// prior state) the new state is persisted and a Change is returned; otherwise
// Detect returns (nil, nil).
//
// A schedule date moving backwards is treated like any other hash mismatch;
// the source site occasionally corrects itself and the detector must not
// mask that.
func (d *Detector) Detect(ctx context.Context, group string, slot Slot, scheduleDate string, off, on, maybe []string) (*Change, error) {
	off = Normalize(off)
	on = Normalize(on)
	maybe = Normalize(maybe)
	newHash := Hash(scheduleDate, off, on, maybe)

	prior, err := d.store.State(ctx, group, slot)
	if err != nil {
		return nil, fmt.Errorf("load state %s/%s: %w", group, slot, err)
	}
	if prior != nil && prior.Hash == newHash {
		return nil, nil
	}

	firstForDate := false
	if slot == SlotTomorrow {
		firstForDate = prior == nil || prior.ScheduleDate != scheduleDate
	}

	st := State{
		GroupCode:    group,
		Slot:         slot,
		ScheduleDate: scheduleDate,
		Hash:         newHash,
		Off:          off,
		On:           on,
		Maybe:        maybe,
		UpdatedAt:    d.now().UTC(),
	}
	if err := d.store.SaveState(ctx, st); err != nil {
		// No job without a committed state: a half-written cycle self-heals
		// on the next poll.
		return nil, fmt.Errorf("save state %s/%s: %w", group, slot, err)
	}

	d.log.Info("schedule changed",
		logx.String("group", group),
		logx.String("slot", string(slot)),
		logx.String("date", scheduleDate),
		logx.Bool("first_for_date", firstForDate),
	)

	return &Change{
		GroupCode:    group,
		Slot:         slot,
		ScheduleDate: scheduleDate,
		Off:          off,
		On:           on,
		Maybe:        maybe,
		FirstForDate: firstForDate,
		Prior:        prior,
	}, nil
}
