// Package pipeline threads one generation request through header
// classification, syscall resolution, payload encoding and code generation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"fee/internal/arch"
	"fee/internal/codegen"
	"fee/internal/diag"
	"fee/internal/elfhdr"
	"fee/internal/payload"
	"fee/internal/trace"
)

// Request configures one loader generation.
type Request struct {
	// Name labels progress events and trace spans. Defaults to Path.
	Name string
	// Path is the ELF file. It may be empty when Stdin is set and the
	// syscall does not need detection.
	Path string
	// Data holds the ELF bytes when the caller already has them.
	Data []byte
	// Stdin makes the loader read its payload from standard input.
	Stdin bool

	Mode        arch.Mode
	Runtime     codegen.Runtime
	Argv        []string
	Interpreter string
	Command     bool
	Level       int
	Wrap        int

	// Cache is consulted for encoded payloads when non-nil.
	Cache    *payload.Cache
	Progress ProgressSink
}

// Result captures the generated program and what went into it.
type Result struct {
	Source         string
	Classification *elfhdr.Classification
	Syscall        arch.Resolved
	Payload        payload.Encoded
	CacheHit       bool
	// CacheErr is set when the payload could not be stored; generation
	// still succeeded.
	CacheErr error
	Timings  Timings
}

func (r *Request) label() string {
	if r.Name != "" {
		return r.Name
	}
	if r.Path != "" {
		return r.Path
	}
	return "<stdin>"
}

// Run reads, classifies, resolves, encodes and generates. Header resolution
// and payload encoding run concurrently and are joined before generation.
func Run(ctx context.Context, req *Request) (Result, error) {
	var result Result
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing generation request")
	}
	name := req.label()
	sink := req.Progress
	tracer := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx)

	if !req.Runtime.Valid() {
		err := diag.New(diag.GenUnknownRuntime, "unknown runtime %d", req.Runtime)
		emit(sink, name, StageResolve, StatusError, err, 0)
		return result, err
	}

	data := req.Data
	if data == nil && req.Path != "" {
		span := trace.Begin(tracer, trace.ScopeStage, string(StageRead), parent)
		emit(sink, name, StageRead, StatusWorking, nil, 0)
		raw, err := os.ReadFile(req.Path)
		dur := span.WithExtra("bytes", strconv.Itoa(len(raw))).End("")
		if err != nil {
			err = fmt.Errorf("failed to read %q: %w", req.Path, err)
			emit(sink, name, StageRead, StatusError, err, dur)
			return result, err
		}
		result.Timings.Set(StageRead, dur)
		emit(sink, name, StageRead, StatusDone, nil, dur)
		data = raw
	}
	if data == nil && !req.Stdin {
		err := diag.New(diag.OptInvalid, "no input file")
		emit(sink, name, StageRead, StatusError, err, 0)
		return result, err
	}

	var (
		classifyDur, resolveDur, encodeDur time.Duration
		class                              *elfhdr.Classification
		resolved                           arch.Resolved
		encoded                            payload.Encoded
		cacheHit                           bool
		cacheErr                           error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		class, resolved, classifyDur, resolveDur, err = resolveStage(gctx, req, name, data, parent)
		return err
	})
	g.Go(func() error {
		var err error
		encoded, cacheHit, encodeDur, err = encodeStage(gctx, req, name, data, parent)
		if errors.Is(err, payload.ErrCacheWrite) {
			cacheErr = err
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return result, err
	}

	result.Classification = class
	result.Syscall = resolved
	result.Payload = encoded
	result.CacheHit = cacheHit
	result.CacheErr = cacheErr
	if class != nil {
		result.Timings.Set(StageClassify, classifyDur)
	}
	result.Timings.Set(StageResolve, resolveDur)
	result.Timings.Set(StageEncode, encodeDur)

	if err := ctx.Err(); err != nil {
		return result, err
	}

	span := trace.Begin(tracer, trace.ScopeStage, string(StageGenerate), parent)
	emit(sink, name, StageGenerate, StatusWorking, nil, 0)
	src, err := codegen.Generate(&codegen.Request{
		Syscall:     resolved,
		Payload:     encoded,
		Runtime:     req.Runtime,
		Argv:        req.Argv,
		Interpreter: req.Interpreter,
		Command:     req.Command,
	})
	dur := span.WithExtra("runtime", req.Runtime.String()).End("")
	if err != nil {
		emit(sink, name, StageGenerate, StatusError, err, dur)
		return result, err
	}
	result.Timings.Set(StageGenerate, dur)
	emit(sink, name, StageGenerate, StatusDone, nil, dur)
	result.Source = src
	return result, nil
}

func resolveStage(ctx context.Context, req *Request, name string, data []byte, parent uint64) (*elfhdr.Classification, arch.Resolved, time.Duration, time.Duration, error) {
	tracer := trace.FromContext(ctx)
	var (
		class       *elfhdr.Classification
		classifyDur time.Duration
	)
	if data != nil && req.Mode.NeedsELF() {
		span := trace.Begin(tracer, trace.ScopeStage, string(StageClassify), parent)
		emit(req.Progress, name, StageClassify, StatusWorking, nil, 0)
		c, err := elfhdr.Classify(data)
		classifyDur = span.End(c.String())
		if err != nil {
			emit(req.Progress, name, StageClassify, StatusError, err, classifyDur)
			return nil, arch.Resolved{}, classifyDur, 0, err
		}
		emit(req.Progress, name, StageClassify, StatusDone, nil, classifyDur)
		class = &c
	}
	if err := ctx.Err(); err != nil {
		return class, arch.Resolved{}, classifyDur, 0, err
	}

	span := trace.Begin(tracer, trace.ScopeStage, string(StageResolve), parent)
	emit(req.Progress, name, StageResolve, StatusWorking, nil, 0)
	resolved, err := arch.Resolve(req.Mode, class, req.Runtime)
	resolveDur := span.WithExtra("mode", req.Mode.String()).End(resolved.String())
	if err != nil {
		emit(req.Progress, name, StageResolve, StatusError, err, resolveDur)
		return class, arch.Resolved{}, classifyDur, resolveDur, err
	}
	emit(req.Progress, name, StageResolve, StatusDone, nil, resolveDur)
	return class, resolved, classifyDur, resolveDur, nil
}

func encodeStage(ctx context.Context, req *Request, name string, data []byte, parent uint64) (payload.Encoded, bool, time.Duration, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeStage, string(StageEncode), parent)
	emit(req.Progress, name, StageEncode, StatusWorking, nil, 0)

	if req.Stdin {
		if err := payload.CheckOptions(req.Level, req.Wrap); err != nil {
			dur := span.End("")
			emit(req.Progress, name, StageEncode, StatusError, err, dur)
			return payload.Encoded{}, false, dur, err
		}
		dur := span.End("stdin")
		emit(req.Progress, name, StageEncode, StatusDone, nil, dur)
		return payload.FromStdin(req.Wrap), false, dur, nil
	}
	if err := ctx.Err(); err != nil {
		return payload.Encoded{}, false, span.End(""), err
	}

	enc, hit, err := payload.EncodeCached(req.Cache, data, req.Level, req.Wrap)
	dur := span.
		WithExtra("raw", strconv.Itoa(enc.RawSize)).
		WithExtra("compressed", strconv.Itoa(enc.CompressedSize)).
		WithExtra("cache", strconv.FormatBool(hit)).
		End("")
	if err != nil && !errors.Is(err, payload.ErrCacheWrite) {
		emit(req.Progress, name, StageEncode, StatusError, err, dur)
		return payload.Encoded{}, false, dur, err
	}
	emit(req.Progress, name, StageEncode, StatusDone, nil, dur)
	return enc, hit, dur, err
}
