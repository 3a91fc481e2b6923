// Package scheduler runs periodic maintenance tasks.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type Task func(ctx context.Context) error

// Every runs task once immediately and then on each tick until ctx ends.
// Task errors are logged and do not stop the schedule.
func Every(ctx context.Context, interval time.Duration, name string, log zerolog.Logger, task Task) {
	t := time.NewTicker(interval)
	defer t.Stop()

	run := func() {
		start := time.Now()
		if err := task(ctx); err != nil {
			log.Error().Err(err).Str("task", name).Msg("scheduled task failed")
			return
		}
		log.Debug().Str("task", name).Dur("took", time.Since(start)).Msg("scheduled task done")
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
