package batch

import (
	"fmt"
	"slices"
)

// Stage is the lifecycle state of a single document task.
type Stage int

const (
	StagePending Stage = iota
	StageReading
	StageChunking
	StageStoring
	StageSucceeded
	StageFailed
)

var stageNames = map[Stage]string{
	StagePending:   "pending",
	StageReading:   "reading",
	StageChunking:  "chunking",
	StageStoring:   "storing",
	StageSucceeded: "succeeded",
	StageFailed:    "failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// MarshalText renders the stage name in JSON and logs.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transitions are possible.
func (s Stage) Terminal() bool {
	return s == StageSucceeded || s == StageFailed
}

// transitions lists the legal successors of each stage. Any stage may fail;
// otherwise a task advances one stage at a time.
var transitions = map[Stage][]Stage{
	StagePending:  {StageReading, StageFailed},
	StageReading:  {StageChunking, StageFailed},
	StageChunking: {StageStoring, StageFailed},
	StageStoring:  {StageSucceeded, StageFailed},
}

// task tracks one document through the pipeline. It is owned by a single worker.
type task struct {
	index int
	id    string
	stage Stage
}

// advance moves the task to the next stage, rejecting skipped or repeated stages.
func (t *task) advance(to Stage) error {
	if !slices.Contains(transitions[t.stage], to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.stage, to)
	}
	t.stage = to
	return nil
}

// fail marks the task failed and describes the failure at the stage it was in.
func (t *task) fail(err error) Failure {
	stage := t.stage
	if stage.Terminal() {
		// A task is recorded once; failing a finished task is a logic error, keep the evidence
		err = fmt.Errorf("%w: fail after %s: %v", ErrInvalidTransition, stage, err)
	}
	t.stage = StageFailed

	return Failure{
		Index:      t.index,
		DocumentID: t.id,
		Stage:      stage,
		Err:        newDocumentError(t.id, stage, classify(stage, err), err),
	}
}
