package session

import "fmt"

type Stage int

const (
	StageLoading Stage = iota
	StageReady
	StageInProgress
	StageAnswering
	StageCompleted
	StageErrored
)

var stageNames = map[Stage]string{
	StageLoading:    "loading",
	StageReady:      "ready",
	StageInProgress: "in_progress",
	StageAnswering:  "answering",
	StageCompleted:  "completed",
	StageErrored:    "errored",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transitions can happen.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageErrored
}

// Trigger says what caused a submission.
type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerTimeout Trigger = "timeout"
)
