package notify

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"svitlobot/pkg/logx"
)

// Service owns the bounded job queue and the single dispatch worker. The
// queue is the only coupling between the ingestion loop and delivery: a slow
// fan-out fills the queue, never the scrape cycle.
type Service struct {
	mu  sync.Mutex
	cfg Config

	messenger Messenger
	store     SubscriberStore
	log       logx.Logger

	queue  chan Job
	pacer  *rate.Limiter
	stopCh chan struct{}
	// stopDone is non-nil while a Stop() is in progress; it is closed when
	// the worker fully exits.
	stopDone chan struct{}

	runCancel context.CancelFunc
	workerWG  sync.WaitGroup
}

func New(cfg Config, messenger Messenger, store SubscriberStore, log logx.Logger) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		cfg:       cfg,
		messenger: messenger,
		store:     store,
		log:       log.With(logx.String("comp", "notify")),
		queue:     make(chan Job, cfg.QueueSize),
		pacer:     rate.NewLimiter(rate.Every(cfg.SendDelay), 1),
	}
}

// Apply updates runtime knobs. The queue capacity is fixed at construction;
// resizing a live channel is not worth the complexity when a restart does it.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg.QueueSize = s.cfg.QueueSize
	s.cfg = cfg
	s.pacer = rate.NewLimiter(rate.Every(cfg.SendDelay), 1)
}

// Enqueue offers a job to the queue without blocking. When the queue is
// saturated the job is dropped and logged; the schedule state behind it is
// already persisted, so the next poll cycle re-detects anything still
// different and enqueues again.
func (s *Service) Enqueue(job Job) bool {
	select {
	case s.queue <- job:
		return true
	default:
		s.log.Warn("queue full; job dropped",
			logx.String("group", job.GroupCode),
			logx.String("slot", string(job.Kind)),
			logx.Int("queue_cap", cap(s.queue)),
		)
		return false
	}
}

// QueueLen reports the number of queued jobs, for observability.
func (s *Service) QueueLen() int { return len(s.queue) }

// Start launches the single dispatch worker. Jobs and subscribers are
// processed sequentially, which bounds the outbound request rate without a
// second limiter.
func (s *Service) Start(ctx context.Context) {
	// If a Stop() is in progress, wait for it to complete so we never run
	// two workers.
	for {
		s.mu.Lock()
		if s.stopCh == nil {
			break
		}
		done := s.stopDone
		if done == nil {
			// already running
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
	}
	defer s.mu.Unlock()

	s.stopCh = make(chan struct{})
	runCtx, cancel := context.WithCancel(ctx)
	s.runCancel = cancel
	stopCh := s.stopCh

	s.workerWG.Add(1)
	go func() {
		defer s.workerWG.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in dispatch worker",
					logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())),
				)
			}
		}()
		s.worker(runCtx, stopCh)
	}()

	s.log.Info("dispatcher started",
		logx.Int("queue_cap", cap(s.queue)),
		logx.Int("max_per_minute", s.cfg.MaxPerMinute),
		logx.Duration("send_timeout", s.cfg.SendTimeout),
	)
}

// Stop shuts the worker down. An in-flight delivery finishes or is abandoned
// at its timeout; either way no partial state results, state writes are
// single-row upserts.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}

	done := make(chan struct{})
	s.stopDone = done
	stopCh := s.stopCh
	cancel := s.runCancel
	s.runCancel = nil
	s.mu.Unlock()

	close(stopCh)
	if cancel != nil {
		cancel()
	}

	go func() {
		s.workerWG.Wait()
		s.mu.Lock()
		s.stopCh = nil
		s.stopDone = nil
		s.mu.Unlock()
		close(done)
		s.log.Info("dispatcher stopped", logx.Duration("took", time.Since(start)))
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// stop continues in background
	}
}
