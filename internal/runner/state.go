package runner

// State is a phase of the turn state machine.
type State int32

const (
	StateIdle State = iota
	StateCapturingFrame
	StateAwaitingModel
	StateDispatchingTools
	StateAdvancing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturingFrame:
		return "capturing_frame"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateDispatchingTools:
		return "dispatching_tools"
	case StateAdvancing:
		return "advancing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
