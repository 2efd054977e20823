package authoring

import "fmt"

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCollectingVideo
	PhaseCollectingDetails
)

func (p Phase) String() string {
	switch p {
	case PhaseCollectingVideo:
		return "collecting_video"
	case PhaseCollectingDetails:
		return "collecting_details"
	default:
		return "idle"
	}
}

// Edit sessions start on the details step and never leave it.
var allowedPhaseTransitions = map[Phase]map[Phase]bool{
	PhaseCollectingVideo: {
		PhaseCollectingDetails: true,
	},
	PhaseCollectingDetails: {
		PhaseCollectingVideo: true,
	},
}

func canTransition(from, to Phase, editMode bool) bool {
	if editMode {
		return false
	}
	return allowedPhaseTransitions[from][to]
}

func transition(s *session, to Phase) error {
	if !canTransition(s.phase, to, s.editMode) {
		return fmt.Errorf("%w: %s -> %s (edit=%t)", ErrInvalidTransition, s.phase, to, s.editMode)
	}
	s.phase = to
	return nil
}
