package scheduler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/gescom/internal/observability/context"
	obslogger "github.com/smallbiznis/gescom/internal/observability/logger"
	"go.uber.org/zap"
)

// jobResources names what each job counts in processed_count.
var jobResources = map[string]string{
	JobOverdueSweep: "invoice",
}

// jobRun tracks one execution of a job. asOf is the business day the job
// evaluated, which is what an operator matches against due dates.
type jobRun struct {
	job        string
	resource   string
	runID      string
	asOf       time.Time
	startedAt  time.Time
	processed  int
	errorCount int
}

type jobRunKey struct{}

func (r *jobRun) AddProcessed(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.processed += count
}

func (r *jobRun) IncError() {
	if r == nil {
		return
	}
	r.errorCount++
}

// startJobRun tags ctx with a run id of the form <job>-<id>, which stands in
// for the request id in every log line the job emits.
func (s *Scheduler) startJobRun(ctx context.Context, job string) (context.Context, *jobRun) {
	if ctx == nil {
		ctx = context.Background()
	}
	now := s.clock.Now()
	run := &jobRun{
		job:       job,
		resource:  jobResources[job],
		runID:     s.genID.Generate().String(),
		asOf:      now,
		startedAt: now,
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = obscontext.WithRequestID(ctx, job+"-"+run.runID)
	return ctx, run
}

func jobRunFromContext(ctx context.Context) *jobRun {
	if ctx == nil {
		return nil
	}
	if run, ok := ctx.Value(jobRunKey{}).(*jobRun); ok {
		return run
	}
	return nil
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	s.logger(ctx).Debug("scheduler.job.start",
		zap.String("job", run.job),
		zap.String("as_of", run.asOf.UTC().Format(time.DateOnly)),
	)
}

// logJobFinish reports at Info only when the run changed documents or
// failed, so an idle sweep every few minutes stays out of production logs.
func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("as_of", run.asOf.UTC().Format(time.DateOnly)),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
		zap.Int("processed_count", run.processed),
		zap.Int("error_count", run.errorCount),
	}
	if run.resource != "" {
		fields = append(fields, zap.String("resource", run.resource))
	}
	log := s.logger(ctx)
	switch {
	case run.errorCount > 0:
		log.Warn("scheduler.job.finish", fields...)
	case run.processed == 0:
		log.Debug("scheduler.job.finish", fields...)
	default:
		log.Info("scheduler.job.finish", fields...)
	}
}
