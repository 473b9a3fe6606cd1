package supervisor

// State is the supervisor lifecycle state.
type State string

// Supervisor states. Terminated is final.
const (
	StateIdle          State = "idle"
	StateSpawning      State = "spawning"
	StateAwaitingReady State = "awaiting_ready"
	StateMonitoring    State = "monitoring"
	StateRestarting    State = "restarting"
	StateTerminated    State = "terminated"
)

// States lists every state in lifecycle order.
var States = []State{
	StateIdle,
	StateSpawning,
	StateAwaitingReady,
	StateMonitoring,
	StateRestarting,
	StateTerminated,
}

func (s State) String() string {
	return string(s)
}
