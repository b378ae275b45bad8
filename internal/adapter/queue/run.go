// Package queue holds the job queue backends: a durable Badger-backed queue
// and an in-process FIFO used when the durable one is unavailable.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/arturoeanton/docintel/internal/domain"
	"github.com/arturoeanton/docintel/internal/port"
)

// Retention windows applied by Cleanup.
const (
	completedTTL = 24 * time.Hour
	failedTTL    = 7 * 24 * time.Hour
)

// runJob calls the processor, turning a panic into a job-level error.
func runJob(ctx context.Context, p port.JobProcessor, payload domain.JobPayload, progress port.ProgressFunc) (res *domain.JobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("job panicked: %v", r)
		}
	}()
	return p.Process(ctx, payload, progress)
}
