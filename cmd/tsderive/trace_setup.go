package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tsderive/internal/config"
	"tsderive/internal/trace"
)

// traceRing is the in-memory buffer of the current run's tracer in ring or
// both mode; nil otherwise.
var (
	traceRing       *trace.RingTracer
	traceRingFormat trace.Format
)

// setupTracing builds the tracer described by cfg and attaches it to the
// command context. The returned cleanup stops the heartbeat and flushes.
func setupTracing(cmd *cobra.Command, cfg config.TraceConfig) (func(), error) {
	heartbeatInterval, err := cmd.Flags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := trace.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	mode, err := trace.ParseMode(cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}

	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	output := cfg.Output
	if output == "" {
		output = "-"
	}
	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: output,
		RingSize:   cfg.RingSize,
		Heartbeat:  heartbeatInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	traceRing, traceRingFormat = trace.RingOf(tracer), format

	var heartbeat *trace.Heartbeat
	if heartbeatInterval > 0 {
		heartbeat = trace.StartHeartbeat(tracer, heartbeatInterval)
	}

	cleanup := func() {
		traceRing = nil
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}

// dumpTraceRing writes the buffered trace events to w, if the run kept any.
func dumpTraceRing(w io.Writer) {
	if traceRing == nil {
		return
	}
	fmt.Fprintln(w, "trace: last events before failure:")
	if err := traceRing.Dump(w, traceRingFormat); err != nil {
		fmt.Fprintf(w, "trace: dump error: %v\n", err)
	}
}
