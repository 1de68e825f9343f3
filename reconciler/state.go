package reconciler

// State describes the session lifecycle:
//
//	idle → connecting → connected ⇄ reconnecting → disconnected
//
// Disconnected is terminal and reached only through explicit teardown.
// Transport errors keep the session in connecting/reconnecting.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateDisconnected State = "disconnected"
)

// allowed maps each state to the states reachable from it.
var allowed = map[State][]State{
	StateIdle:         {StateConnecting, StateDisconnected},
	StateConnecting:   {StateConnected, StateConnecting, StateDisconnected},
	StateConnected:    {StateReconnecting, StateConnecting, StateDisconnected},
	StateReconnecting: {StateConnected, StateConnecting, StateDisconnected},
	StateDisconnected: {},
}

// canTransition reports whether moving from one state to another is legal.
func canTransition(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
