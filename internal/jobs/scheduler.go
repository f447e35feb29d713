package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	bioSchedule    string
	log            *slog.Logger
}

// NewScheduler builds the cron scheduler. bioSchedule is a cron expression
// for the bot bio refresh, e.g. "0 * * * *" for hourly.
func NewScheduler(redisOpt asynq.RedisConnOpt, bioSchedule string, log *slog.Logger) Scheduler {
	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, nil),
		bioSchedule:    bioSchedule,
		log:            log,
	}
}

func (s *scheduler) RegisterTasks() error {
	task, err := NewBioUpdateTask()
	if err != nil {
		return err
	}

	if _, err := s.asynqScheduler.Register(s.bioSchedule, task); err != nil {
		return err
	}

	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: registered bio update task",
			slog.String("schedule", s.bioSchedule))
	}

	return nil
}

func (s *scheduler) Run() {
	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: starting")
	}

	go func() {
		if err := s.asynqScheduler.Run(); err != nil && s.log != nil {
			s.log.ErrorContext(context.Background(), "scheduler: run failed", "error", err)
		}
	}()
}

func (s *scheduler) Shutdown() {
	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: shutting down")
	}

	s.asynqScheduler.Shutdown()
}
