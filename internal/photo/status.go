// Package photo holds the race photo domain model shared by the pipeline
// stages, the stores and the search handlers.
package photo

import "fmt"

// Status is the processing status of a photo record.
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusTextDetected Status = "TEXT_DETECTED"
	StatusFacesIndexed Status = "FACES_INDEXED"
	StatusCompleted    Status = "COMPLETED"
)

// statusRank orders statuses along the forward edges of the state machine.
var statusRank = map[Status]int{
	StatusPending:      0,
	StatusTextDetected: 1,
	StatusFacesIndexed: 2,
	StatusCompleted:    3,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// AtLeast reports whether s is the same as or later than other.
// Unknown statuses are never at least anything.
func (s Status) AtLeast(other Status) bool {
	a, ok := statusRank[s]
	if !ok {
		return false
	}
	b, ok := statusRank[other]
	if !ok {
		return false
	}
	return a >= b
}

// Stage is one orchestrated processing step. Each stage moves a record from
// its entry status to its exit status; on failure the record is rolled back
// to the entry status so a retried invocation re-enters at the same stage.
type Stage string

const (
	StageDetectText Stage = "detect-text"
	StageIndexFaces Stage = "index-faces"
	StageDBUpdate   Stage = "db-update"
)

type stageEdge struct {
	entry Status
	exit  Status
}

var stageEdges = map[Stage]stageEdge{
	StageDetectText: {entry: StatusPending, exit: StatusTextDetected},
	StageIndexFaces: {entry: StatusTextDetected, exit: StatusFacesIndexed},
	StageDBUpdate:   {entry: StatusFacesIndexed, exit: StatusCompleted},
}

// Stages returns the stages in execution order.
func Stages() []Stage {
	return []Stage{StageDetectText, StageIndexFaces, StageDBUpdate}
}

// Entry returns the status a record holds before the stage runs. It is also
// the rollback target when the stage fails.
func (s Stage) Entry() Status {
	return stageEdges[s].entry
}

// Exit returns the status a record holds after the stage succeeds.
func (s Stage) Exit() Status {
	return stageEdges[s].exit
}

// Done reports whether a record in status current has already passed the stage.
func (s Stage) Done(current Status) bool {
	return current.AtLeast(s.Exit())
}

// Rollback returns the status to restore after the stage failed.
func (s Stage) Rollback() Status {
	return s.Entry()
}

// ParseStage converts a stage name into a Stage.
func ParseStage(name string) (Stage, error) {
	st := Stage(name)
	if _, ok := stageEdges[st]; !ok {
		return "", fmt.Errorf("unknown stage %q", name)
	}
	return st, nil
}
