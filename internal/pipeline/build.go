package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"fee/internal/trace"
)

// OutputMode is the permission of files written by Build.
const OutputMode os.FileMode = 0o644

// Target is one entry of a batch build.
type Target struct {
	Request Request
	// Output is where the program is written. Empty keeps it in memory.
	Output string
}

// TargetResult is the outcome of one batch target.
type TargetResult struct {
	Name   string
	Output string
	Result Result
	Err    error
}

// Build runs every target with at most jobs concurrent generations. A
// failing target does not stop the others; the returned error joins every
// target failure. Outputs are written only for targets that fully succeed.
func Build(ctx context.Context, targets []Target, jobs int, sink ProgressSink) ([]TargetResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]TargetResult, len(targets))
	for i := range targets {
		results[i].Name = targets[i].Request.label()
		results[i].Output = targets[i].Output
		emit(sink, results[i].Name, StageRead, StatusQueued, nil, 0)
	}

	tracer := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i := range targets {
		i := i // per-iteration copy; go directive is below 1.22
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			span := trace.Begin(tracer, trace.ScopeTarget, "target:"+results[i].Name, parent)
			tctx := trace.WithSpan(gctx, span)
			res, err := buildTarget(tctx, &targets[i], sink)
			status, detail := StatusDone, "ok"
			if err != nil {
				status, detail = StatusError, err.Error()
			}
			emit(sink, results[i].Name, "", status, err, span.End(detail))
			results[i].Result = res
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

func buildTarget(ctx context.Context, t *Target, sink ProgressSink) (Result, error) {
	req := t.Request
	req.Progress = sink
	res, err := Run(ctx, &req)
	if err != nil || t.Output == "" {
		return res, err
	}

	name := req.label()
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeStage, string(StageWrite), trace.CurrentSpan(ctx))
	emit(sink, name, StageWrite, StatusWorking, nil, 0)
	err = WriteOutput(t.Output, res.Source, OutputMode)
	dur := span.WithExtra("path", t.Output).End("")
	if err != nil {
		emit(sink, name, StageWrite, StatusError, err, dur)
		return res, err
	}
	res.Timings.Set(StageWrite, dur)
	emit(sink, name, StageWrite, StatusDone, nil, dur)
	return res, nil
}
