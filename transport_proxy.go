package mqttendpoint

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"sync"

	"golang.org/x/net/proxy"
)

// proxyTransport is a Transport over TCP dialed through a SOCKS5 or
// HTTP CONNECT proxy, for deployments where outbound MQTT traffic must
// egress through a corporate or carrier proxy rather than connecting to
// the broker directly.
type proxyTransport struct {
	callbackSet

	proxyURL  *url.URL
	addr      string
	tlsConfig *tls.Config

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// DialViaProxy returns a Transport that reaches addr ("host:port") through
// the proxy described by proxyURL (e.g. "socks5://127.0.0.1:1080" or
// "http://proxy.example.com:8080"). A non-nil tlsConfig wraps the
// proxied connection in TLS, for connecting to a TLS broker through a
// plaintext proxy tunnel.
func DialViaProxy(proxyURL, addr string, tlsConfig *tls.Config) (Transport, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, newTransportError("parse-proxy-url", err)
	}
	return &proxyTransport{proxyURL: u, addr: addr, tlsConfig: tlsConfig}, nil
}

func (t *proxyTransport) Connect(ctx context.Context) error {
	dialer, err := proxy.FromURL(t.proxyURL, proxy.Direct)
	if err != nil {
		return newTransportError("proxy-setup", err)
	}

	var conn net.Conn
	if ctxDialer, ok := dialer.(proxy.ContextDialer); ok {
		conn, err = ctxDialer.DialContext(ctx, "tcp", t.addr)
	} else {
		conn, err = dialer.Dial("tcp", t.addr)
	}
	if err != nil {
		return newTransportError("connect", err)
	}

	if t.tlsConfig != nil {
		tlsConn := tls.Client(conn, t.tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return newTransportError("tls-handshake", err)
		}
		conn = tlsConn
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	go t.readLoop(conn)
	t.fireConnected()
	return nil
}

func (t *proxyTransport) readLoop(conn net.Conn) {
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

func (t *proxyTransport) Send(frame []byte) error {
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

func (t *proxyTransport) Close() error {
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
