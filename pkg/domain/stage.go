package domain

import "fmt"

// StageName identifies a pipeline stage.
type StageName string

const (
	StageScriptGeneration StageName = "scriptGeneration"
	StageVideoCreation    StageName = "videoCreation"
	StageYoutubeUpload    StageName = "youtubeUpload"
	StageEc2Shutdown      StageName = "ec2Shutdown"
)

// stageOrder is the fixed, total order of the pipeline.
var stageOrder = []StageName{
	StageScriptGeneration,
	StageVideoCreation,
	StageYoutubeUpload,
	StageEc2Shutdown,
}

// Stages returns the stage names in execution order.
func Stages() []StageName {
	out := make([]StageName, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Order returns the 1-based position of the stage, or 0 if it is unknown.
func (s StageName) Order() int {
	for i, name := range stageOrder {
		if name == s {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether s is one of the pipeline stages.
func (s StageName) Valid() bool {
	return s.Order() > 0
}

// ParseStageName validates a stage name read from configuration.
func ParseStageName(raw string) (StageName, error) {
	name := StageName(raw)
	if !name.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, raw)
	}
	return name, nil
}
