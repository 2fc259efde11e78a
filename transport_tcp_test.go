package mqttendpoint

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialTCPConnectSendReceiveClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	tr := DialTCP(ln.Addr().String())

	connectedCh := make(chan struct{}, 1)
	closedCh := make(chan error, 1)
	tr.OnConnected(func() { connectedCh <- struct{}{} })
	tr.OnClosed(func(err error) { closedCh <- err })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tr.Connect(ctx))

	select {
	case <-connectedCh:
	case <-time.After(time.Second):
		t.Fatal("OnConnected never fired")
	}

	var serverConn net.Conn
	select {
	case serverConn = <-accepted:
	case <-time.After(time.Second):
		t.Fatal("listener never accepted the connection")
	}
	defer serverConn.Close()

	require.NoError(t, tr.Send([]byte("hello")))
	buf := make([]byte, 5)
	serverConn.SetReadDeadline(time.Now().Add(time.Second))
	n, err := serverConn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	received := make(chan []byte, 1)
	tr.OnMessage(func(data []byte) { received <- data })
	_, err = serverConn.Write([]byte("world"))
	require.NoError(t, err)

	select {
	case data := <-received:
		assert.Equal(t, "world", string(data))
	case <-time.After(time.Second):
		t.Fatal("OnMessage never fired for server-sent bytes")
	}

	require.NoError(t, tr.Close())
	select {
	case err := <-closedCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("OnClosed never fired after Close")
	}
}

func TestDialTCPSendBeforeConnectFails(t *testing.T) {
	tr := DialTCP("127.0.0.1:1")
	err := tr.Send([]byte("x"))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestDialTCPConnectFailureReturnsTransportError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close() // nothing listening now

	tr := DialTCP(addr)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = tr.Connect(ctx)
	require.Error(t, err)
	var te *TransportError
	assert.ErrorAs(t, err, &te)
}
