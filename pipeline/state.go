package pipeline

// State identifies where the pipeline is in its linear flow.
type State int

const (
	// StateIdle means no operation is running.
	StateIdle State = iota
	// StateListening means the recognizer is capturing audio.
	StateListening
	// StateRecognizing means the final transcript is being assembled.
	StateRecognizing
	// StateTranslating means the translation client is working.
	StateTranslating
	// StateSynthesizing means audio is being generated.
	StateSynthesizing
	// StatePlaying means synthesized audio is being played.
	StatePlaying
	// StateCompleted is the terminal success state.
	StateCompleted
	// StateError is the terminal failure state, reachable from any
	// non-terminal state.
	StateError
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateRecognizing:
		return "recognizing"
	case StateTranslating:
		return "translating"
	case StateSynthesizing:
		return "synthesizing"
	case StatePlaying:
		return "playing"
	case StateCompleted:
		return "completed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Progress returns the monotonic progress fraction associated with the
// state. Error has no progress of its own; the orchestrator keeps the last
// value.
func (s State) Progress() float64 {
	switch s {
	case StateListening:
		return 0.1
	case StateRecognizing:
		return 0.25
	case StateTranslating:
		return 0.45
	case StateSynthesizing:
		return 0.7
	case StatePlaying:
		return 0.9
	case StateCompleted:
		return 1.0
	default:
		return 0
	}
}

// Terminal reports whether the state ends an operation.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// stateMachine validates pipeline transitions. Forward transitions are
// linear; Error is reachable from every non-terminal state; Idle is
// reachable from anywhere via Stop.
type stateMachine struct {
	current     State
	transitions map[State][]State
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		current: StateIdle,
		transitions: map[State][]State{
			StateIdle:         {StateListening, StateTranslating},
			StateListening:    {StateRecognizing},
			StateRecognizing:  {StateTranslating},
			StateTranslating:  {StateSynthesizing},
			StateSynthesizing: {StatePlaying, StateCompleted},
			StatePlaying:      {StateCompleted},
		},
	}
}

// transition moves to the requested state when the move is legal and reports
// whether it happened. Error from non-terminal states and Idle resets are
// always legal.
func (sm *stateMachine) transition(to State) bool {
	if to == StateIdle {
		sm.current = StateIdle
		return true
	}
	if to == StateError {
		if sm.current.Terminal() {
			return false
		}
		sm.current = StateError
		return true
	}

	for _, next := range sm.transitions[sm.current] {
		if next == to {
			sm.current = to
			return true
		}
	}
	return false
}

func (sm *stateMachine) state() State {
	return sm.current
}
