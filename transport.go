package mqttendpoint

import "context"

// Transport is the narrow capability set the endpoint needs from whatever
// byte pipe carries MQTT frames: connect, send, close, and four callback
// registrations. It deliberately says nothing about TCP, TLS, WebSocket
// frames, or any other transport-specific detail — implementations for
// each of those live in transport_*.go and all satisfy this one interface.
//
// Callback implementations MUST NOT call back into the owning Endpoint
// synchronously; they must post the corresponding Event onto the
// endpoint's event queue (see Endpoint.Attach in endpoint.go) and return
// immediately. Transports
// in this package follow that rule by construction: their I/O goroutines
// only ever call the registered callbacks, never touch the Endpoint.
type Transport interface {
	// Connect establishes the underlying connection. It blocks until the
	// connection is ready to send or ctx is cancelled.
	Connect(ctx context.Context) error

	// Send writes one complete MQTT frame. Implementations must not
	// fragment or coalesce frames across calls in a way that changes frame
	// boundaries on a message-based transport (WebSocket, QUIC datagram).
	Send(frame []byte) error

	// Close tears down the underlying connection. It is safe to call more
	// than once.
	Close() error

	// OnConnected registers a callback fired once Connect's handshake
	// completes, if that isn't already known by the time Connect returns.
	OnConnected(fn func())
	// OnMessage registers a callback fired with each chunk of received
	// bytes (for a byte-stream transport) or the payload of each received
	// message (for a message-framed transport). Chunks need not align with
	// MQTT frames; the endpoint's receive buffer joins them.
	OnMessage(fn func([]byte))
	// OnError registers a callback fired on a non-fatal transport error
	// that does not by itself close the connection.
	OnError(fn func(error))
	// OnClosed registers a callback fired exactly once when the
	// connection ends, whether cleanly or due to an error.
	OnClosed(fn func(error))
}

// callbackSet is embedded by every concrete Transport in this package to
// hold its registered callbacks; it is not part of the public Transport
// interface.
type callbackSet struct {
	onConnected func()
	onMessage   func([]byte)
	onError     func(error)
	onClosed    func(error)
}

func (c *callbackSet) OnConnected(fn func())     { c.onConnected = fn }
func (c *callbackSet) OnMessage(fn func([]byte)) { c.onMessage = fn }
func (c *callbackSet) OnError(fn func(error))    { c.onError = fn }
func (c *callbackSet) OnClosed(fn func(error))   { c.onClosed = fn }

func (c *callbackSet) fireConnected() {
	if c.onConnected != nil {
		c.onConnected()
	}
}

func (c *callbackSet) fireMessage(b []byte) {
	if c.onMessage != nil {
		c.onMessage(b)
	}
}

func (c *callbackSet) fireError(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}

func (c *callbackSet) fireClosed(err error) {
	if c.onClosed != nil {
		c.onClosed(err)
	}
}
