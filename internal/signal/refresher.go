package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
)

// Refresher drives cache refreshes on independent per-signal schedules, so a
// slow or rate-limited API never delays the others.
type Refresher struct {
	cron  *cron.Cron
	cache *Cache
	log   *zap.Logger
}

// NewRefresher schedules a refresh job per signal type. Schedules use cron
// syntax, including the @every form.
func NewRefresher(cache *Cache, schedules map[domain.SignalType]string, timeout time.Duration, log *zap.Logger) (*Refresher, error) {
	c := cron.New()

	for signalType, schedule := range schedules {
		signalType := signalType
		_, err := c.AddFunc(schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if err := cache.Refresh(ctx, signalType); err != nil {
				log.Warn("Scheduled signal refresh failed",
					zap.String("signal_type", string(signalType)),
					zap.Error(err))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("invalid schedule %q for signal %q: %w", schedule, signalType, err)
		}
	}

	return &Refresher{cron: c, cache: cache, log: log}, nil
}

// Start begins running the refresh schedules
func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop halts scheduling and waits for running refreshes to finish
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}
