package mqttendpoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMQTTWebSocketServer(t *testing.T, handle func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{Subprotocols: []string{"mqtt"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDialWebSocketSendAndReceive(t *testing.T) {
	fromClient := make(chan []byte, 4)
	srv := newMQTTWebSocketServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		fromClient <- data
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("ack"))
	})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	tr := DialWebSocket(wsURL)

	received := make(chan []byte, 1)
	tr.OnMessage(func(data []byte) { received <- data })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tr.Connect(ctx))
	defer tr.Close()

	require.NoError(t, tr.Send([]byte("hello")))

	select {
	case data := <-fromClient:
		assert.Equal(t, "hello", string(data))
	case <-time.After(time.Second):
		t.Fatal("server never received the client's message")
	}

	select {
	case data := <-received:
		assert.Equal(t, "ack", string(data))
	case <-time.After(time.Second):
		t.Fatal("OnMessage never fired for the server's reply")
	}
}

func TestDialWebSocketCloseFiresOnClosed(t *testing.T) {
	srv := newMQTTWebSocketServer(t, func(conn *websocket.Conn) {
		_, _, _ = conn.ReadMessage()
	})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	tr := DialWebSocket(wsURL)

	closedCh := make(chan error, 1)
	tr.OnClosed(func(err error) { closedCh <- err })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tr.Connect(ctx))

	require.NoError(t, tr.Close())

	select {
	case <-closedCh:
	case <-time.After(time.Second):
		t.Fatal("OnClosed never fired")
	}
}

func TestDialWebSocketConnectFailureReturnsTransportError(t *testing.T) {
	tr := DialWebSocket("ws://127.0.0.1:1/")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := tr.Connect(ctx)
	require.Error(t, err)
	var te *TransportError
	assert.ErrorAs(t, err, &te)
}
