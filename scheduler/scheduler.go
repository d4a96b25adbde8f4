package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Gocron runs one-shot game timers.
type Gocron struct {
	s   gocron.Scheduler
	log zerolog.Logger
}

func New(log zerolog.Logger) (*Gocron, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	s.Start()
	return &Gocron{s: s, log: log.With().Str("component", "scheduler").Logger()}, nil
}

// ScheduleOnce runs task once after delay and returns the job handle. The
// handle is passed to task as well so it can tell whether it is still wanted.
func (g *Gocron) ScheduleOnce(delay time.Duration, task func(ctx context.Context, job uuid.UUID)) (uuid.UUID, error) {
	var id uuid.UUID
	ready := make(chan struct{})

	job, err := g.s.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(time.Now().Add(delay))),
		gocron.NewTask(func() {
			<-ready
			task(context.Background(), id)
		}),
	)
	if err != nil {
		return uuid.Nil, err
	}
	id = job.ID()
	close(ready)

	g.log.Debug().Str("job", id.String()).Dur("delay", delay).Msg("job scheduled")
	return id, nil
}

// Cancel removes a job. Jobs that already ran or were removed are ignored.
func (g *Gocron) Cancel(job uuid.UUID) error {
	err := g.s.RemoveJob(job)
	if err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		return err
	}
	return nil
}

func (g *Gocron) Shutdown() error {
	return g.s.Shutdown()
}
