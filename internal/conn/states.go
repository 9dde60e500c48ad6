package conn

// State is the lifecycle position of a Connection's transport. Transitions
// are driven by Connect/Request/GetResponse/body reads; any transport error
// lands in Broken, from which the next Request performs a clean reconnect.
type State int32

const (
	StateUnconnected State = iota
	StateConnecting
	StateTunneling
	StateIdle
	StateRequestSent
	StateResponsePending
	StateBroken
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateTunneling:
		return "tunneling"
	case StateIdle:
		return "idle"
	case StateRequestSent:
		return "request-sent"
	case StateResponsePending:
		return "response-pending"
	case StateBroken:
		return "broken"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}
