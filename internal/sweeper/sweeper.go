package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/JustSeanC/camp-weather-bot/internal/ride"
)

// Sweeper periodically expires overdue rides. The schedule is a cron
// expression evaluated in the configured timezone; per-ride failures
// are handled inside the engine and never abort a sweep.
type Sweeper struct {
	cron    *cron.Cron
	service *ride.Service
	log     *logrus.Logger
}

// New creates a sweeper running ExpireDue on the given cron schedule.
func New(service *ride.Service, schedule, timezone string, log *logrus.Logger) (*Sweeper, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	s := &Sweeper{
		cron:    cron.New(cron.WithLocation(loc)),
		service: service,
		log:     log,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running sweeps on schedule.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule; a sweep already in flight runs to completion.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) sweep() {
	if n := s.service.ExpireDue(context.Background()); n > 0 {
		s.log.WithField("expired", n).Info("expiry sweep removed rides")
	}
}
