package mqttendpoint

import "context"

// BridgeTransport is a caller-supplied Transport for environments where
// this process does not own the socket itself: a WASM build calling out to
// a host-provided WebSocket object, a mobile binding handed a
// platform-native connection, or a test harness driving the endpoint
// without any real I/O. The caller supplies the three operations as plain
// functions and drives the callbacks itself by calling FireConnected,
// FireMessage, FireError and FireClosed as the underlying bridge reports
// them.
type BridgeTransport struct {
	callbackSet

	ConnectFunc func(ctx context.Context) error
	SendFunc    func(frame []byte) error
	CloseFunc   func() error
}

// NewBridgeTransport builds a BridgeTransport from the three required
// operations. Any of them may be nil, in which case the corresponding
// Transport method is a no-op that returns nil.
func NewBridgeTransport(connect func(ctx context.Context) error, send func([]byte) error, closeFn func() error) *BridgeTransport {
	return &BridgeTransport{ConnectFunc: connect, SendFunc: send, CloseFunc: closeFn}
}

func (b *BridgeTransport) Connect(ctx context.Context) error {
	if b.ConnectFunc == nil {
		return nil
	}
	return b.ConnectFunc(ctx)
}

func (b *BridgeTransport) Send(frame []byte) error {
	if b.SendFunc == nil {
		return nil
	}
	return b.SendFunc(frame)
}

func (b *BridgeTransport) Close() error {
	if b.CloseFunc == nil {
		return nil
	}
	return b.CloseFunc()
}

// FireConnected notifies the endpoint that the host-side bridge finished
// connecting. Call this from the bridge's own callback, not from within
// ConnectFunc.
func (b *BridgeTransport) FireConnected() { b.fireConnected() }

// FireMessage delivers a chunk of received bytes from the bridge.
func (b *BridgeTransport) FireMessage(data []byte) { b.fireMessage(data) }

// FireError reports a non-fatal bridge error.
func (b *BridgeTransport) FireError(err error) { b.fireError(err) }

// FireClosed reports that the bridge connection ended.
func (b *BridgeTransport) FireClosed(err error) { b.fireClosed(err) }
