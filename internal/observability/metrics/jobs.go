package metrics

import (
	"context"
	"time"
)

// JobFunc is a unit of background work, a poll or a scheduled run.
type JobFunc = func(ctx context.Context) error

// RecordJobDuration wraps f so that every run is timed under job.
func RecordJobDuration(job string, f JobFunc) JobFunc {
	return func(ctx context.Context) error {
		start := time.Now()
		err := f(ctx)

		status := Success
		if err != nil {
			status = Error
		}
		jobDurationHistogram.WithLabelValues(job, status.String()).Observe(time.Since(start).Seconds())

		return err
	}
}
