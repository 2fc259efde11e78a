// Package mqttendpoint implements the MQTT protocol endpoint: the part of an
// MQTT 3.1.1 / 5.0 client that turns application-level requests (send, recv,
// packet-id management) into a byte stream exchanged with a broker, while
// enforcing session state, QoS handshakes, keep-alive, flow control, and
// topic-alias substitution.
//
// The endpoint does not open sockets itself. It is driven by a Transport
// (TCP, TLS, WebSocket, QUIC, or a caller-supplied bridge) and is safe to
// reuse across reconnects: attach a fresh Transport and send a CONNECT again.
//
//	ep := mqttendpoint.New(mqttendpoint.NewConfig(mqttendpoint.V5,
//		mqttendpoint.WithAutoPubResponse(true),
//	))
//	tr := mqttendpoint.DialTCP("broker.example.com:1883")
//	ep.Attach(ctx, tr)
//	ep.Send(ctx, connectPacket)
//	pkt, _ := ep.Recv(ctx)
package mqttendpoint
