package mqttendpoint

// ConnectionPhase is the endpoint's top-level state. It governs which
// events are legal to act on: a SendPacket carrying a PUBLISH is only
// meaningful while Connected, while a CONNECT is only meaningful while
// Disconnected.
type ConnectionPhase int

const (
	PhaseDisconnected ConnectionPhase = iota
	PhaseConnecting
	PhaseConnected
	PhaseDisconnecting
)

func (p ConnectionPhase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// validPhaseTransition reports whether moving from `from` to `to` is one
// the endpoint ever performs. endpoint_state.go sets phases directly and
// does not call it.
func validPhaseTransition(from, to ConnectionPhase) bool {
	switch from {
	case PhaseDisconnected:
		return to == PhaseConnecting
	case PhaseConnecting:
		return to == PhaseConnected || to == PhaseDisconnected || to == PhaseDisconnecting
	case PhaseConnected:
		return to == PhaseDisconnecting || to == PhaseDisconnected
	case PhaseDisconnecting:
		return to == PhaseDisconnected
	default:
		return false
	}
}
