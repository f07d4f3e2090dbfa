package pipeline

// State is a step of a generation run.
//
//	Idle -> FetchingSchema -> Mapping -> Emitting -> Transforming -> Writing -> Done
//	                       \-> Degraded -----------------------------> Writing -> Done
type State int

// Pipeline states.
const (
	StateIdle State = iota
	StateFetchingSchema
	StateMapping
	StateEmitting
	StateTransforming
	StateDegraded
	StateWriting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingSchema:
		return "fetching_schema"
	case StateMapping:
		return "mapping"
	case StateEmitting:
		return "emitting"
	case StateTransforming:
		return "transforming"
	case StateDegraded:
		return "degraded"
	case StateWriting:
		return "writing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// transitions lists the allowed successors of each state.
var transitions = map[State][]State{
	StateIdle:           {StateFetchingSchema},
	StateFetchingSchema: {StateMapping, StateDegraded},
	StateMapping:        {StateEmitting, StateDegraded},
	StateEmitting:       {StateTransforming, StateDegraded},
	StateTransforming:   {StateWriting, StateDegraded},
	StateDegraded:       {StateWriting},
	StateWriting:        {StateDone},
}

// CanTransition reports whether a run may move from one state to another.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
