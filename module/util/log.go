package util

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ProgressFunc adds to a progress count. It is safe for concurrent use.
type ProgressFunc func(done int)

// LogProgress returns a ProgressFunc logging msg each time the count crosses a tenth of total,
// and once the count reaches total.
func LogProgress(log zerolog.Logger, msg string, total int) ProgressFunc {
	start := time.Now()

	var mu sync.Mutex
	current := 0
	step := total / 10
	if step == 0 {
		step = 1
	}

	return func(done int) {
		if done <= 0 {
			return
		}

		mu.Lock()
		defer mu.Unlock()

		before := current
		current += done
		if current/step == before/step && current < total {
			return
		}
		if before >= total {
			return
		}

		ev := log.Info().
			Int("current", current).
			Int("total", total).
			Dur("elapsed", time.Since(start))
		if total > 0 {
			ev = ev.Float64("percent", float64(min(current, total))*100/float64(total))
		}
		ev.Msg(msg)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
