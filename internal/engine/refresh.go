package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ScheduleWarm rebuilds the suggestion index on the cron schedule spec
// (standard five-field syntax or descriptors such as "@every 5m") until
// ctx is done. The returned stop function waits for a running rebuild.
func (d *Directory) ScheduleWarm(ctx context.Context, spec string) (stop func(), err error) {
	c := cron.New(
		cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(d.logger))),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if err := d.Warm(ctx); err != nil {
			d.logger.Error("suggestion refresh failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("suggestion refresh schedule %q: %w", spec, err)
	}
	c.Start()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			<-c.Stop().Done()
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-c.Stop().Done()
		})
	}, nil
}
