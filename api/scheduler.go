/*
scheduler.go - Periodic data-quality sweep

PURPOSE:
  Runs the warnings report on an interval and logs what it finds, so
  dirty upstream data shows up in the server log without anyone
  polling /api/warnings. The sweep derives everything fresh each run;
  it stores nothing.

CONFIGURATION:
  - Interval: How often to sweep (default: 1 hour)
  - Enabled:  Whether the sweep is active (default: true)

USAGE:
  sweep := NewQualitySweep(handler)
  sweep.Start()
  // ... later
  sweep.Stop()

SEE ALSO:
  - handlers.go: ListWarnings endpoint (on-demand report)
  - reconcile/snapshot.go: The engine the sweep runs
*/
package api

import (
	"context"
	"sync"
	"time"
)

// QualitySweep periodically re-derives the data-quality report.
type QualitySweep struct {
	Handler  *Handler
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewQualitySweep creates a sweep with the default interval.
func NewQualitySweep(handler *Handler) *QualitySweep {
	return &QualitySweep{
		Handler:  handler,
		Interval: 1 * time.Hour,
		Enabled:  true,
	}
}

// Start launches the background sweep. Safe to call once.
func (s *QualitySweep) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ticker.C:
				s.run()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts the sweep and waits for an in-flight run to finish.
func (s *QualitySweep) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
}

func (s *QualitySweep) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	warnings, err := s.Handler.Engine.Warnings(ctx)
	if err != nil {
		s.Handler.Log.Error().Err(err).Msg("quality sweep failed")
		return
	}
	if len(warnings) == 0 {
		s.Handler.Log.Debug().Msg("quality sweep clean")
		return
	}

	for _, w := range warnings {
		s.Handler.Log.Warn().
			Str("code", string(w.Code)).
			Str("source", w.SourceID).
			Msg(w.Message)
	}
	s.Handler.Log.Info().Int("warnings", len(warnings)).Msg("quality sweep finished")
}
