package mqttendpoint

import "time"

// Event is the input side of the endpoint's cooperative event/action
// model: every state change is triggered by exactly one Event, processed
// synchronously by the single owning goroutine, and answered with zero or
// more Actions. Transport implementations must never call back into the
// endpoint directly from their own I/O goroutines; they post events onto
// the I/O core's event queue instead (see Endpoint.postEvent in
// endpoint.go), which is what keeps the
// endpoint single-threaded and reentrancy-free.
type Event interface{}

// SendPacketEvent requests that packet be encoded and written to the
// transport, after any session bookkeeping (packet id assignment, topic
// alias substitution, flow control) it requires.
type SendPacketEvent struct {
	Packet Packet
}

// BytesReceivedEvent delivers newly read transport bytes for decoding.
// Bytes accumulate across calls until a full frame is available.
type BytesReceivedEvent struct {
	Data []byte
}

// TransportConnectedEvent reports that the attached Transport finished
// establishing its underlying connection (TCP handshake, TLS handshake,
// WebSocket upgrade, ...), so the endpoint may now send CONNECT.
type TransportConnectedEvent struct{}

// TransportClosedEvent reports that the transport closed, whether cleanly
// or due to an error. Err is nil for a clean close initiated by this
// endpoint's own CloseTransport action.
type TransportClosedEvent struct {
	Err error
}

// TimerFiredEvent reports that a previously armed timer's deadline
// elapsed. Generation must match timerService's current generation for
// Kind or the fire is stale and is ignored.
type TimerFiredEvent struct {
	Kind       TimerKind
	Generation uint64
}

// Action is the output side of the event/action model: the host (endpoint.go)
// executes each action exactly once, in the order returned, before
// processing the next Event.
type Action interface{}

// WriteBytesAction instructs the host to write Data to the attached
// Transport.
type WriteBytesAction struct {
	Data []byte
}

// DeliverToCallerAction instructs the host to hand Packet to whichever
// caller is waiting on Recv (or to the undelivered-packet holder if none
// is waiting right now).
type DeliverToCallerAction struct {
	Packet Packet
}

// ArmTimerAction instructs the host to schedule a callback after Duration
// that posts TimerFiredEvent{Kind, Generation} back to the event queue.
type ArmTimerAction struct {
	Kind       TimerKind
	Duration   time.Duration
	Generation uint64
}

// CancelTimerAction instructs the host to cancel any pending callback for
// Kind. It is safe to issue even if no timer of that kind is currently
// armed.
type CancelTimerAction struct {
	Kind TimerKind
}

// CloseTransportAction instructs the host to close the attached Transport.
// This never exits the endpoint's own event loop: a closed transport can
// always be replaced by calling Attach again and sending a fresh CONNECT.
type CloseTransportAction struct{}

// ErrorAction reports an error the caller should observe, independent of
// whatever Send/Recv call (if any) is currently pending.
type ErrorAction struct {
	Err error
}
