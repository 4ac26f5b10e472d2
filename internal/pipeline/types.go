package pipeline

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageRead loads the ELF file.
	StageRead Stage = "read"
	// StageClassify parses the ELF header.
	StageClassify Stage = "classify"
	// StageResolve picks the memfd_create number.
	StageResolve Stage = "resolve"
	// StageEncode compresses and base64-encodes the payload.
	StageEncode Stage = "encode"
	// StageGenerate emits the loader program.
	StageGenerate Stage = "generate"
	// StageWrite stores the program at its output path.
	StageWrite Stage = "write"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageRead, StageClassify, StageResolve, StageEncode, StageGenerate, StageWrite}

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the target is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the target is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the target is done.
	StatusDone Status = "done"
	// StatusError indicates the target encountered an error.
	StatusError Status = "error"
)

// Event reports progress for a target. Stage is empty on the last event
// Build sends for a target.
type Event struct {
	Target  string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
