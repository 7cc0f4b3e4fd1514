package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"svitlobot/internal/notify"
	"svitlobot/internal/schedule"
	"svitlobot/internal/source"
	"svitlobot/pkg/logx"
)

// Config controls the ingestion loop.
type Config struct {
	// PollInterval is the scrape period.
	PollInterval time.Duration
	// FetchTimeout bounds one fetch-and-detect run.
	FetchTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 3 * time.Minute
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 2 * time.Minute
	}
	return c
}

// Enqueuer is the queue side of the dispatcher. Enqueue must not block.
type Enqueuer interface {
	Enqueue(job notify.Job) bool
}

// Service is the ingestion loop: on every tick it fetches a snapshot, runs
// change detection across groups and slots, and hands changes to the queue.
// The loop never waits on dispatch; the non-blocking queue is the only
// contact point.
type Service struct {
	cfg      Config
	fetcher  source.Fetcher
	detector *schedule.Detector
	sink     Enqueuer
	log      logx.Logger

	mu      sync.Mutex
	c       *cron.Cron
	running bool // overlap guard: skip a tick while the previous still runs
}

func New(cfg Config, fetcher source.Fetcher, detector *schedule.Detector, sink Enqueuer, log logx.Logger) *Service {
	return &Service{
		cfg:      cfg.withDefaults(),
		fetcher:  fetcher,
		detector: detector,
		sink:     sink,
		log:      log.With(logx.String("comp", "monitor")),
	}
}

// Start schedules the poll job and fires one run immediately so a fresh
// process does not sit dark for a whole interval.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %s", s.cfg.PollInterval)
	if _, err := c.AddFunc(spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule poll job: %w", err)
	}
	s.c = c
	c.Start()

	go s.tick(ctx)

	s.log.Info("ingestion loop started", logx.Duration("interval", s.cfg.PollInterval))
	return nil
}

// Stop halts scheduling. A tick already running is left to finish against
// its own timeout.
func (s *Service) Stop() {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
		s.log.Info("ingestion loop stopped")
	}
}

// tick runs one fetch-detect-enqueue cycle. Cron invokes each job on its own
// goroutine, so a slow fetch delays nothing but its own (skipped) successors.
func (s *Service) tick(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("previous cycle still running; tick skipped")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	rctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	snap, err := s.fetcher.Fetch(rctx)
	if err != nil {
		s.log.Warn("fetch failed; cycle skipped", logx.Err(err), logx.Duration("dur", time.Since(start)))
		return
	}
	if snap == nil {
		s.log.Warn("no snapshot this cycle", logx.Duration("dur", time.Since(start)))
		return
	}

	enqueued := 0
	enqueued += s.runSlot(rctx, schedule.SlotToday, snap.Today)
	enqueued += s.runSlot(rctx, schedule.SlotTomorrow, snap.Tomorrow)

	s.log.Info("cycle complete",
		logx.Int("enqueued", enqueued),
		logx.Duration("dur", time.Since(start)),
	)
}

func (s *Service) runSlot(ctx context.Context, slot schedule.Slot, day *schedule.DaySnapshot) int {
	if day == nil {
		return 0
	}

	// Deterministic group order keeps runs comparable in logs.
	codes := make([]string, 0, len(day.Groups))
	for code := range day.Groups {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	enqueued := 0
	for _, code := range codes {
		gs := day.Groups[code]
		change, err := s.detector.Detect(ctx, code, slot, day.ScheduleDate, gs.Off, gs.On, gs.Maybe)
		if err != nil {
			// Abandon this group's cycle; the row was not (fully) written,
			// so the next poll re-detects.
			s.log.Warn("detection failed",
				logx.String("group", code),
				logx.String("slot", string(slot)),
				logx.Err(err),
			)
			continue
		}
		if change == nil {
			continue
		}
		if s.sink.Enqueue(jobFromChange(change)) {
			enqueued++
		}
	}
	return enqueued
}

func jobFromChange(ch *schedule.Change) notify.Job {
	return notify.Job{
		Kind:         ch.Slot,
		GroupCode:    ch.GroupCode,
		ScheduleDate: ch.ScheduleDate,
		Off:          ch.Off,
		On:           ch.On,
		Maybe:        ch.Maybe,
		FirstForDate: ch.FirstForDate,
		Prior:        ch.Prior,
	}
}
