package runner

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// DefaultAnalysisInterval paces continuous mode when none is configured.
const DefaultAnalysisInterval = 5 * time.Second

// RunContinuous plays turns no faster than the analysis interval. The
// interval adapts to how long turns take: each turn moves it 30% towards the
// last turn duration, never below the configured interval.
func (o *Orchestrator) RunContinuous(ctx context.Context) error {
	base := o.cfg.AnalysisInterval
	if base <= 0 {
		base = DefaultAnalysisInterval
	}
	interval := base
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	o.logger.Info("play loop started", "mode", "continuous", "interval", base, "max_turns", o.cfg.MaxTurns)

	for n := 0; o.cfg.MaxTurns <= 0 || n < o.cfg.MaxTurns; n++ {
		// Wait only fails once ctx is done or its deadline is too close.
		if err := limiter.Wait(ctx); err != nil {
			o.setState(StateStopped)
			o.publish("")
			o.logger.Info("play loop stopped", "turns", o.state.TurnCounter)
			return nil
		}

		start := o.now()
		if err := o.RunTurn(ctx); err != nil {
			return o.finish(err)
		}
		took := o.now().Sub(start)
		interval = adaptInterval(interval, took, base)
		limiter.SetLimit(rate.Every(interval))

		if took > base {
			o.logger.Warn("turn took longer than the analysis interval", "took", took, "interval", base, "adaptive_interval", interval)
		} else {
			o.logger.Debug("turn paced", "took", took, "adaptive_interval", interval)
		}
	}
	o.logger.Info("play loop finished", "turns", o.state.TurnCounter)
	return nil
}

func adaptInterval(cur, last, floor time.Duration) time.Duration {
	next := time.Duration(math.Round(0.7*float64(cur) + 0.3*float64(last)))
	if next < floor {
		return floor
	}
	return next
}
