package pipeline

import "time"

// Stage is a state of the run. Stages advance strictly in order; any
// fatal error moves the run to StageFailed.
type Stage string

const (
	StageEnumerate Stage = "enumerate"
	StageProbe     Stage = "probe"
	StageScan      Stage = "scan"
	StageExport    Stage = "export"
	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
)

func (s Stage) String() string { return string(s) }

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// StageResult records one completed or failed stage.
type StageResult struct {
	Stage    Stage
	Duration time.Duration
	Err      error
}
