package sentinel

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module/component"
	"github.com/witnessnet/witnessnet/module/irrecoverable"
)

// Automation schedules reports at a fixed interval.
type Automation struct {
	Interval time.Duration

	// Start delays the first report. The zero time starts right away.
	Start time.Time

	// Remaining bounds the number of reports. Zero means unbounded.
	Remaining int
}

// ResultFunc receives the outcome of every automated report.
type ResultFunc func(payloads []payload.Payload, err error)

// Runner runs the automations of a sentinel, one worker per automation.
type Runner struct {
	*component.ComponentManager
	log      zerolog.Logger
	sentinel *Sentinel
	onResult ResultFunc
	runs     *atomic.Uint64
}

func NewRunner(log zerolog.Logger, s *Sentinel, onResult ResultFunc, automations ...Automation) (*Runner, error) {
	r := &Runner{
		log:      log.With().Str("component", "sentinel_runner").Str("sentinel", s.Address().Hex()).Logger(),
		sentinel: s,
		onResult: onResult,
		runs:     atomic.NewUint64(0),
	}

	builder := component.NewComponentManagerBuilder()
	for i, a := range automations {
		if a.Interval <= 0 {
			return nil, fmt.Errorf("automation %d: interval must be positive, got %s", i, a.Interval)
		}
		if a.Remaining < 0 {
			return nil, fmt.Errorf("automation %d: negative remaining runs %d", i, a.Remaining)
		}
		builder.AddWorker(r.automate(a))
	}
	r.ComponentManager = builder.Build()
	return r, nil
}

// Runs counts the reports triggered, successful or not.
func (r *Runner) Runs() uint64 {
	return r.runs.Load()
}

func (r *Runner) automate(a Automation) component.ComponentWorker {
	return func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
		ready()

		if wait := time.Until(a.Start); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		ticker := time.NewTicker(a.Interval)
		defer ticker.Stop()

		remaining := a.Remaining
		for {
			r.trigger(ctx)
			if remaining > 0 {
				remaining--
				if remaining == 0 {
					r.log.Info().Msg("automation completed")
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

func (r *Runner) trigger(ctx irrecoverable.SignalerContext) {
	payloads, err := r.sentinel.Report(ctx, nil)
	r.runs.Inc()
	if err != nil {
		r.log.Warn().Err(err).Msg("automated report failed")
	}
	if r.onResult != nil {
		r.onResult(payloads, err)
	}
}
