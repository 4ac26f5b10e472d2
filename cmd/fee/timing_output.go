package main

import (
	"fmt"
	"io"
	"time"

	"fee/internal/pipeline"
)

var (
	timeNow   = time.Now
	timeSince = time.Since
)

func printStageTimings(out io.Writer, timings pipeline.Timings) {
	if out == nil {
		return
	}
	for _, stage := range pipeline.Stages {
		if !timings.Has(stage) {
			continue
		}
		fmt.Fprintf(out, "%-8s %.1f ms\n", stage, toMillis(timings.Duration(stage)))
	}
	fmt.Fprintf(out, "%-8s %.1f ms\n", "total", toMillis(timings.Sum(pipeline.Stages...)))
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
