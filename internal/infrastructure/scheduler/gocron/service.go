package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/TrainProtocol/swapd/internal/core/ports"
)

type service struct {
	scheduler *gocron.Scheduler
}

func NewScheduler() ports.TimelockScheduler {
	return &service{gocron.NewScheduler(time.UTC)}
}

func (s *service) Start() {
	s.scheduler.StartAsync()
}

func (s *service) Stop() {
	s.scheduler.Stop()
}

// ScheduleExpiry arms a one-shot job firing at the given time, replacing any
// job previously armed for the same commit id.
func (s *service) ScheduleExpiry(commitId string, at time.Time, fn func()) error {
	if at.Before(time.Now()) {
		return fmt.Errorf("cannot schedule expiry in the past")
	}

	// nolint:all
	s.scheduler.RemoveByTag(commitId)

	_, err := s.scheduler.
		Every(1).
		Day().
		StartAt(at).
		LimitRunsTo(1).
		Tag(commitId).
		Do(fn)
	return err
}

func (s *service) Cancel(commitId string) {
	// nolint:all
	s.scheduler.RemoveByTag(commitId)
}
