package alert

import (
	"fmt"

	"proctor-quiz-service/internal/domain"
)

// Condition identifies which monitoring rule produced an alert.
type Condition int

const (
	ConditionNone Condition = iota
	ConditionNoFace
	ConditionMultipleFaces
	ConditionHorizontal
	ConditionVertical
	ConditionDirection
)

// Finding is the single highest-priority condition that holds for a sample.
type Finding struct {
	Condition Condition
	Severity  domain.Severity
	Message   string
}

// Derive inspects one sample and returns at most one finding. Rules are
// checked from highest priority down and the first that holds wins.
func Derive(sample domain.TelemetrySample) (Finding, bool) {
	switch {
	case sample.FaceCount == 0:
		return Finding{ConditionNoFace, domain.SeverityError, "No face detected"}, true
	case sample.FaceCount > 1:
		return Finding{ConditionMultipleFaces, domain.SeverityError, "Multiple faces detected"}, true
	case deviates(sample.HeadPose.Horizontal):
		return Finding{ConditionHorizontal, domain.SeverityInfo, fmt.Sprintf("Head turned %s", sample.HeadPose.Horizontal)}, true
	case deviates(sample.HeadPose.Vertical):
		return Finding{ConditionVertical, domain.SeverityInfo, fmt.Sprintf("Head tilted %s", sample.HeadPose.Vertical)}, true
	case deviates(sample.HeadPose.Direction):
		return Finding{ConditionDirection, domain.SeverityInfo, fmt.Sprintf("Look %s", sample.HeadPose.Direction)}, true
	}
	return Finding{}, false
}

func deviates(d domain.Direction) bool {
	return d != "" && d != domain.DirectionStraight
}
