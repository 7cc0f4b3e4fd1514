package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"svitlobot/internal/notify"
	"svitlobot/internal/schedule"
	"svitlobot/pkg/logx"
)

type memStateStore struct {
	mu     sync.Mutex
	states map[string]schedule.State
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: make(map[string]schedule.State)}
}

func (m *memStateStore) State(_ context.Context, group string, slot schedule.Slot) (*schedule.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[group+"/"+string(slot)]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *memStateStore) SaveState(_ context.Context, st schedule.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[st.GroupCode+"/"+string(st.Slot)] = st
	return nil
}

type fakeFetcher struct {
	snap *schedule.Snapshot
	err  error
}

func (f *fakeFetcher) Fetch(context.Context) (*schedule.Snapshot, error) { return f.snap, f.err }

type captureSink struct {
	mu   sync.Mutex
	jobs []notify.Job
	full bool
}

func (c *captureSink) Enqueue(job notify.Job) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return false
	}
	c.jobs = append(c.jobs, job)
	return true
}

func (c *captureSink) captured() []notify.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notify.Job(nil), c.jobs...)
}

func snapshotWith(date string, groups map[string]schedule.GroupSchedule) *schedule.Snapshot {
	return &schedule.Snapshot{
		Today: &schedule.DaySnapshot{ScheduleDate: date, Groups: groups},
	}
}

func TestTickEnqueuesDetectedChanges(t *testing.T) {
	t.Parallel()
	store := newMemStateStore()
	fetcher := &fakeFetcher{snap: snapshotWith("25.12.2025", map[string]schedule.GroupSchedule{
		"1.1": {Off: []string{"10:00–12:00"}, On: []string{"00:00–10:00", "12:00–24:00"}},
		"2.2": {Off: []string{"14:00–16:00"}, On: []string{"00:00–14:00", "16:00–24:00"}},
	})}
	sink := &captureSink{}
	svc := New(Config{}, fetcher, schedule.NewDetector(store, logx.Nop()), sink, logx.Nop())

	svc.tick(context.Background())

	jobs := sink.captured()
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d, want 2: %+v", len(jobs), jobs)
	}
	// sorted group order
	if jobs[0].GroupCode != "1.1" || jobs[1].GroupCode != "2.2" {
		t.Fatalf("job order = %s, %s", jobs[0].GroupCode, jobs[1].GroupCode)
	}
	if jobs[0].Kind != schedule.SlotToday || jobs[0].ScheduleDate != "25.12.2025" {
		t.Fatalf("job = %+v", jobs[0])
	}

	// a second tick over the same snapshot produces nothing
	svc.tick(context.Background())
	if jobs := sink.captured(); len(jobs) != 2 {
		t.Fatalf("unchanged snapshot re-enqueued: %d jobs", len(jobs))
	}
}

func TestTickSkipsOnFetchFailure(t *testing.T) {
	t.Parallel()
	sink := &captureSink{}
	store := newMemStateStore()

	svc := New(Config{}, &fakeFetcher{err: errors.New("http 503")}, schedule.NewDetector(store, logx.Nop()), sink, logx.Nop())
	svc.tick(context.Background())
	if len(sink.captured()) != 0 {
		t.Fatal("jobs enqueued despite fetch failure")
	}

	// nil snapshot without error also skips the cycle
	svc = New(Config{}, &fakeFetcher{}, schedule.NewDetector(store, logx.Nop()), sink, logx.Nop())
	svc.tick(context.Background())
	if len(sink.captured()) != 0 {
		t.Fatal("jobs enqueued despite empty snapshot")
	}
}

func TestTickStateSurvivesFullQueue(t *testing.T) {
	t.Parallel()
	store := newMemStateStore()
	fetcher := &fakeFetcher{snap: snapshotWith("25.12.2025", map[string]schedule.GroupSchedule{
		"1.1": {Off: []string{"10:00–12:00"}},
	})}
	sink := &captureSink{full: true}
	svc := New(Config{}, fetcher, schedule.NewDetector(store, logx.Nop()), sink, logx.Nop())

	// the detector commits state even when the queue rejects the job; the
	// dropped notification is simply lost, not re-sent forever
	svc.tick(context.Background())
	st, err := store.State(context.Background(), "1.1", schedule.SlotToday)
	if err != nil || st == nil {
		t.Fatalf("state not committed: st=%+v err=%v", st, err)
	}

	sink.full = false
	svc.tick(context.Background())
	if len(sink.captured()) != 0 {
		t.Fatal("unchanged schedule re-enqueued after drop")
	}
}
