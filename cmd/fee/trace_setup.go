package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fee/internal/trace"
)

var activeTracer trace.Tracer = trace.Nop

// setupTracing inspects trace-related flags and attaches a tracer to the
// command context.
func setupTracing(cmd *cobra.Command) error {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return fmt.Errorf("invalid trace level: %w", err)
	}
	// An output path alone turns on phase tracing.
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(ctx, trace.Nop))
		return nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return fmt.Errorf("invalid trace mode: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	activeTracer = tracer
	cmd.SetContext(trace.WithTracer(ctx, tracer))
	return nil
}

// finishTracing dumps ring buffers when the command failed, then flushes
// and closes the tracer.
func finishTracing(cmd *cobra.Command, runErr error) {
	tracer := activeTracer
	activeTracer = trace.Nop
	if !tracer.Enabled() {
		return
	}
	if runErr != nil {
		for _, ring := range trace.Rings(tracer) {
			fmt.Fprintln(cmd.ErrOrStderr(), "trace: recent events")
			if err := ring.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
	}
	if err := tracer.Flush(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
	}
	if err := tracer.Close(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
	}
}

// beginDriver opens the driver span for cmd and returns a context that
// parents stage spans under it.
func beginDriver(cmd *cobra.Command) (context.Context, *trace.Span) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, cmd.Name(), 0)
	return trace.WithSpan(ctx, span), span
}
