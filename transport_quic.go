package mqttendpoint

import (
	"context"
	"crypto/tls"
	"sync"

	"github.com/quic-go/quic-go"
)

// quicTransport is a Transport over a single bidirectional QUIC stream. It
// treats the stream as a byte pipe the same way tcpTransport treats a
// net.Conn: MQTT frames are not aligned to QUIC stream reads any more than
// they are to TCP segments, so DecodeFrame's NeedMore handling in
// endpoint_state.go does the reassembly, not this transport.
type quicTransport struct {
	callbackSet

	addr      string
	tlsConfig *tls.Config

	mu     sync.Mutex
	stream *quic.Stream
	conn   *quic.Conn
	closed bool
}

// DialQUIC returns a Transport that opens a QUIC connection to addr and a
// single bidirectional stream over it for MQTT traffic.
func DialQUIC(addr string, tlsConfig *tls.Config) Transport {
	cfg := tlsConfig
	if cfg == nil {
		cfg = &tls.Config{NextProtos: []string{"mqtt"}}
	}
	return &quicTransport{addr: addr, tlsConfig: cfg}
}

func (t *quicTransport) Connect(ctx context.Context) error {
	conn, err := quic.DialAddr(ctx, t.addr, t.tlsConfig, nil)
	if err != nil {
		return newTransportError("connect", err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "stream open failed")
		return newTransportError("open-stream", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.stream = stream
	t.mu.Unlock()

	go t.readLoop(stream)
	t.fireConnected()
	return nil
}

func (t *quicTransport) readLoop(stream *quic.Stream) {
	buf := make([]byte, 32*1024)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			t.fireMessage(chunk)
		}
		if err != nil {
			t.mu.Lock()
			alreadyClosed := t.closed
			t.closed = true
			t.mu.Unlock()
			if alreadyClosed {
				t.fireClosed(nil)
			} else {
				t.fireClosed(newTransportError("read", err))
			}
			return
		}
	}
}

func (t *quicTransport) Send(frame []byte) error {
	t.mu.Lock()
	stream := t.stream
	t.mu.Unlock()
	if stream == nil {
		return ErrNotConnected
	}
	if _, err := stream.Write(frame); err != nil {
		return newTransportError("send", err)
	}
	return nil
}

func (t *quicTransport) Close() error {
	t.mu.Lock()
	stream := t.stream
	conn := t.conn
	alreadyClosed := t.closed
	t.closed = true
	t.mu.Unlock()
	if alreadyClosed {
		return nil
	}
	if stream != nil {
		_ = stream.Close()
	}
	if conn != nil {
		return conn.CloseWithError(0, "closed by endpoint")
	}
	return nil
}
