package metricspush

import (
	"context"
	"time"

	"github.com/smallbiznis/gescom/internal/config"
	obsmetrics "github.com/smallbiznis/gescom/internal/observability/metrics"
	reportingdomain "github.com/smallbiznis/gescom/internal/reporting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobName = "metrics_push"

var Module = fx.Module("metrics.push",
	fx.Provide(NewPusher),
	fx.Invoke(Register),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
	Pusher    Pusher `optional:"true"`
	Reporting reportingdomain.Service
	Jobs      *obsmetrics.JobMetrics `optional:"true"`
}

// Register starts the push loop when a pusher is configured.
func Register(p Params) {
	if p.Pusher == nil {
		return
	}
	worker := &worker{
		log:       p.Log.Named("metrics.push"),
		pusher:    p.Pusher,
		reporting: p.Reporting,
		gauges:    NewGauges(p.Config.AppName, p.Config.Environment),
		jobs:      p.Jobs,
		interval:  p.Config.Push.Interval,
	}
	if worker.interval <= 0 {
		worker.interval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			worker.log.Info("starting metrics push worker", zap.Duration("interval", worker.interval))
			go worker.run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

type worker struct {
	log       *zap.Logger
	pusher    Pusher
	reporting reportingdomain.Service
	gauges    *Gauges
	jobs      *obsmetrics.JobMetrics
	interval  time.Duration
}

func (w *worker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.tick(ctx); err != nil {
			w.log.Warn("metrics push failed", zap.Error(err))
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			w.log.Info("stopping metrics push worker")
			return
		}
	}
}

func (w *worker) tick(ctx context.Context) error {
	start := time.Now()
	w.jobs.IncJobRun(jobName)
	defer func() { w.jobs.ObserveJobDuration(jobName, time.Since(start)) }()

	if err := w.gauges.Refresh(ctx, w.reporting); err != nil {
		w.jobs.IncJobError(jobName, err)
		return err
	}
	if err := w.pusher.Push(ctx, w.gauges); err != nil {
		w.jobs.IncJobError(jobName, err)
		return err
	}
	return nil
}
