// Package trace records what the generator did and how long it took.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	fee generate --trace=- --trace-level=detail ./tool
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is disabled
//   - StreamTracer: writes each event immediately (stderr or a file)
//   - RingTracer: keeps the last N events, dumped when a command fails
//   - MultiTracer: fans out to several tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: nothing is streamed; the ring is dumped on failure
//   - LevelPhase: driver and stage boundaries
//   - LevelDetail: per-target events of batch builds
//   - LevelDebug: everything
//
// # Scopes
//
//   - ScopeDriver: one CLI command
//   - ScopeStage: pipeline stages (read, classify, resolve, encode, generate, write)
//   - ScopeTarget: one target of a batch build
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeStage, "encode", parentID)
//	defer span.End("")
package trace
