// file: internals/features/correction/scheduler/token_cleanup.go
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"longessay_backend/internals/features/correction/tokens"
)

const DefaultPurgeSchedule = "@every 1h"

// PurgeOnce drops expired data/file token rows.
func PurgeOnce(ctx context.Context, gate *tokens.Gate) (int64, error) {
	n, err := gate.Purge(ctx)
	if err != nil {
		log.Printf("[CLEANUP ERROR] purge tokens failed: %v", err)
		return 0, err
	}
	if n > 0 {
		log.Printf("[CLEANUP] %d expired tokens removed", n)
	}
	return n, nil
}

// StartTokenCleanupCron runs PurgeOnce on schedule (robfig/cron expression,
// "@every 1h" when empty). The caller stops the returned cron on shutdown.
func StartTokenCleanupCron(gate *tokens.Gate, schedule string) (*cron.Cron, error) {
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_, _ = PurgeOnce(ctx, gate)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[CLEANUP] token purge started schedule=%q", schedule)
	c.Start()
	return c, nil
}
