package mqttendpoint

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

// wsTransport is a Transport over a WebSocket connection carrying the
// "mqtt" subprotocol. WebSocket is message-framed rather than a raw byte
// stream, and a sender may split a control packet's bytes across several
// WebSocket messages. Each binary message is handed to OnMessage as it
// arrives; the endpoint's receive buffer (handleBytesReceived in
// endpoint_state.go) concatenates them, so MQTT frames that straddle
// message boundaries are reassembled there.
type wsTransport struct {
	callbackSet

	url    string
	dialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// DialWebSocket returns a Transport that connects to a "ws://" or "wss://"
// URL using the "mqtt" WebSocket subprotocol, as required by the MQTT
// WebSocket transport binding.
func DialWebSocket(url string) Transport {
	return &wsTransport{
		url: url,
		dialer: &websocket.Dialer{
			Subprotocols: []string{"mqtt"},
		},
	}
}

func (t *wsTransport) Connect(ctx context.Context) error {
	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
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

func (t *wsTransport) readLoop(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
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
		if msgType != websocket.BinaryMessage {
			continue
		}
		t.fireMessage(data)
	}
}

func (t *wsTransport) Send(frame []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return newTransportError("send", err)
	}
	return nil
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	alreadyClosed := t.closed
	t.closed = true
	t.mu.Unlock()
	if conn == nil || alreadyClosed {
		return nil
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}
