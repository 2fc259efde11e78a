package mqttendpoint

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
)

// tcpTransport is a Transport over a plain or TLS-wrapped net.Conn. It runs
// one read goroutine that feeds OnMessage; Send and Close are safe to call
// from any goroutine.
type tcpTransport struct {
	callbackSet

	dialer    *net.Dialer
	tlsConfig *tls.Config
	addr      string

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// DialTCP returns a Transport that connects over plain TCP to addr
// ("host:port") when Connect is called.
func DialTCP(addr string) Transport {
	return &tcpTransport{dialer: &net.Dialer{}, addr: addr}
}

// DialTLS returns a Transport that connects over TLS to addr. A nil
// tlsConfig uses the standard library's default configuration.
func DialTLS(addr string, tlsConfig *tls.Config) Transport {
	return &tcpTransport{dialer: &net.Dialer{}, tlsConfig: tlsConfig, addr: addr}
}

func (t *tcpTransport) Connect(ctx context.Context) error {
	var conn net.Conn
	var err error
	if t.tlsConfig != nil {
		tlsDialer := &tls.Dialer{NetDialer: t.dialer, Config: t.tlsConfig}
		conn, err = tlsDialer.DialContext(ctx, "tcp", t.addr)
	} else {
		conn, err = t.dialer.DialContext(ctx, "tcp", t.addr)
	}
	if err != nil {
		return newTransportError("connect", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	go t.readLoop(conn)
	t.fireConnected()
	return nil
}

func (t *tcpTransport) readLoop(conn net.Conn) {
	buf := make([]byte, 32*1024)
	for {
		n, err := conn.Read(buf)
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

func (t *tcpTransport) Send(frame []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if _, err := conn.Write(frame); err != nil {
		return newTransportError("send", err)
	}
	return nil
}

func (t *tcpTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	alreadyClosed := t.closed
	t.closed = true
	t.mu.Unlock()
	if conn == nil || alreadyClosed {
		return nil
	}
	return conn.Close()
}
