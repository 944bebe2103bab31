package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

const jobTimeout = 30 * time.Second

// Capturer stores one forecast snapshot per call.
type Capturer interface {
	FetchAndStore(ctx context.Context) error
}

// Scheduler periodically captures a full forecast summary.
type Scheduler struct {
	scheduler *gocron.Scheduler
	capturer  Capturer
	interval  time.Duration
}

// New creates a new Scheduler. A zero interval disables it.
func New(interval time.Duration, capturer Capturer) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		capturer:  capturer,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: capture interval not configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.run)
	if err != nil {
		return err
	}

	log.Printf("scheduler: capturing forecasts every %s", s.interval)
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run() {
	log.Println("scheduler: running forecast capture job")

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.capturer.FetchAndStore(ctx); err != nil {
		log.Printf("scheduler: forecast capture failed: %v", err)
		return
	}
	log.Println("scheduler: completed forecast capture job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
