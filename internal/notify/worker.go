package notify

import (
	"context"
	"time"

	"svitlobot/pkg/logx"
)

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}) {
	for {
		// fast-exit so stop wins over queued work
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case job := <-s.queue:
			s.dispatch(ctx, job)
		}
	}
}

// dispatch fans one job out to the group's subscribers, fully, before the
// next job is dequeued. Per-subscriber failures are isolated; the job itself
// always completes and is never retried as a whole.
func (s *Service) dispatch(ctx context.Context, job Job) {
	start := time.Now()

	s.mu.Lock()
	cfg := s.cfg
	pacer := s.pacer
	s.mu.Unlock()

	subs, err := s.store.Subscribers(ctx, job.GroupCode)
	if err != nil {
		s.log.Error("subscriber lookup failed; job skipped",
			logx.String("group", job.GroupCode),
			logx.String("slot", string(job.Kind)),
			logx.Err(err),
		)
		return
	}

	var sent, skipped, failed int
	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}

		allowed, err := s.store.CanSend(ctx, sub.UserID, cfg.MaxPerMinute)
		if err != nil {
			failed++
			s.log.Warn("rate check failed",
				logx.Int64("user_id", sub.UserID), logx.Err(err))
			continue
		}
		if !allowed {
			skipped++
			continue
		}

		sctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
		err = s.messenger.SendJob(sctx, sub.ChatID, job)
		cancel()
		if err != nil {
			failed++
			s.log.Warn("delivery failed",
				logx.Int64("user_id", sub.UserID),
				logx.Int64("chat_id", sub.ChatID),
				logx.String("group", job.GroupCode),
				logx.Err(err),
			)
		} else {
			sent++
			if err := s.store.TouchLastSent(ctx, sub.UserID); err != nil {
				s.log.Warn("last_sent_at update failed",
					logx.Int64("user_id", sub.UserID), logx.Err(err))
			}
		}

		// Pace consecutive sends; the external endpoint has its own limits.
		if err := pacer.Wait(ctx); err != nil {
			break
		}
	}

	s.log.Info("job dispatched",
		logx.String("group", job.GroupCode),
		logx.String("slot", string(job.Kind)),
		logx.String("date", job.ScheduleDate),
		logx.Int("subscribers", len(subs)),
		logx.Int("sent", sent),
		logx.Int("skipped", skipped),
		logx.Int("failed", failed),
		logx.Duration("dur", time.Since(start)),
	)
}
