package mqttendpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCore(t *testing.T, version Version, opts ...Option) *endpointCore {
	t.Helper()
	cfg := NewConfig(version, opts...)
	return newEndpointCore(cfg)
}

func actionsOfType[T Action](actions []Action) []T {
	var out []T
	for _, a := range actions {
		if t, ok := a.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

func connectAndAck(t *testing.T, c *endpointCore, receiveMax uint16) {
	t.Helper()
	actions := c.handleSend(&ConnectPacket{ClientID: "c1", KeepAlive: 30})
	require.NotEmpty(t, actionsOfType[WriteBytesAction](actions))
	assert.Equal(t, PhaseConnecting, c.phase)

	ack := &ConnackPacket{ReasonCode: ReasonSuccess, HasReceiveMaximum: receiveMax != 0, ReceiveMaximum: receiveMax}
	c.handleIncomingPacket(ack)
	require.Equal(t, PhaseConnected, c.phase)
}

func TestSendConnectArmsConnectTimer(t *testing.T) {
	c := newTestCore(t, V5)
	actions := c.handleSend(&ConnectPacket{ClientID: "x", KeepAlive: 20})
	require.Len(t, actionsOfType[WriteBytesAction](actions), 1)
	timers := actionsOfType[ArmTimerAction](actions)
	require.Len(t, timers, 1)
	assert.Equal(t, TimerConnectionEstablish, timers[0].Kind)
	assert.Equal(t, PhaseConnecting, c.phase)
}

func TestSendConnectWhileConnectedIsRejected(t *testing.T) {
	c := newTestCore(t, V5)
	connectAndAck(t, c, 0)
	actions := c.handleSend(&ConnectPacket{ClientID: "x"})
	errs := actionsOfType[ErrorAction](actions)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0].Err, ErrAlreadyConnected)
}

func TestConnackSuccessTransitionsToConnectedAndArmsKeepAlive(t *testing.T) {
	c := newTestCore(t, V5)
	c.handleSend(&ConnectPacket{ClientID: "x", KeepAlive: 15})
	actions := c.handleIncomingPacket(&ConnackPacket{ReasonCode: ReasonSuccess})
	assert.Equal(t, PhaseConnected, c.phase)
	require.Len(t, actionsOfType[DeliverToCallerAction](actions), 1)
	require.Len(t, actionsOfType[ArmTimerAction](actions), 1)
}

func TestConnackRefusedClosesTransportAndDoesNotConnect(t *testing.T) {
	c := newTestCore(t, V5)
	c.handleSend(&ConnectPacket{ClientID: "x"})
	actions := c.handleIncomingPacket(&ConnackPacket{ReasonCode: ReasonNotAuthorized})
	assert.Equal(t, PhaseDisconnected, c.phase)
	require.Len(t, actionsOfType[CloseTransportAction](actions), 1)
	errs := actionsOfType[ErrorAction](actions)
	require.Len(t, errs, 1)
	var refused *ConnectionRefusedError
	require.ErrorAs(t, errs[0].Err, &refused)
}

func TestConnackWithoutSessionPresentClearsSession(t *testing.T) {
	c := newTestCore(t, V5)
	id, _ := c.session.ids.Acquire()
	c.session.outbound.Append(id, Message{Topic: "t"}, stageAwaitingPuback)

	c.handleSend(&ConnectPacket{ClientID: "x"})
	c.handleIncomingPacket(&ConnackPacket{ReasonCode: ReasonSuccess, SessionPresent: false})

	assert.Equal(t, 0, c.session.outbound.Len())
	assert.Equal(t, 0, c.session.ids.Count())
}

func TestConnackWithSessionPresentResendsStoredPublishes(t *testing.T) {
	c := newTestCore(t, V5)
	id, _ := c.session.ids.Acquire()
	c.session.outbound.Append(id, Message{Topic: "t", Payload: []byte("x"), QoS: QoS1}, stageAwaitingPuback)

	c.handleSend(&ConnectPacket{ClientID: "x"})
	actions := c.handleIncomingPacket(&ConnackPacket{ReasonCode: ReasonSuccess, SessionPresent: true})

	writes := actionsOfType[WriteBytesAction](actions)
	require.NotEmpty(t, writes)
	pkt, _, err := DecodeFrame(writes[len(writes)-1].Data, V5, RoleServer)
	require.NoError(t, err)
	pub, ok := pkt.(*PublishPacket)
	require.True(t, ok)
	assert.True(t, pub.Dup)
	assert.Equal(t, id, pub.ID)
}

// A stored publish must retain the fully expanded topic name, never a
// topic alias, even when the PUBLISH actually sent on the wire was
// alias-substituted: the alias table is connection-scoped and a resend
// after reconnect (publishFromMessage) must not resurrect a stale alias.
func TestSendPublishStoresFullTopicEvenWhenWireUsesAlias(t *testing.T) {
	c := newTestCore(t, V5, WithTopicAliasMaximum(8))
	connectAndAck(t, c, 0)
	c.peerTopicAliasMax = 8
	c.session.aliases.outboundMax = 8

	id, _ := c.session.ids.Acquire()
	actions := c.handleSend(&PublishPacket{Topic: "devices/1/temp", Payload: []byte("x"), QoS: QoS1, ID: id})
	writes := actionsOfType[WriteBytesAction](actions)
	require.Len(t, writes, 1)
	pkt, _, err := DecodeFrame(writes[0].Data, V5, RoleServer)
	require.NoError(t, err)
	wire := pkt.(*PublishPacket)
	assert.NotZero(t, wire.TopicAlias)

	sp, ok := c.session.outbound.Get(id)
	require.True(t, ok)
	assert.Equal(t, "devices/1/temp", sp.message.Topic)
	assert.Zero(t, sp.message.TopicAlias)
}

// Topic aliases are never part of MQTT session state: the alias table must
// be cleared on every successful (re)connect, even when the broker reports
// SessionPresent=true and the rest of the session (stored publishes,
// packet ids) survives.
func TestConnackClearsTopicAliasesRegardlessOfSessionPresent(t *testing.T) {
	c := newTestCore(t, V5, WithTopicAliasMaximum(8))
	connectAndAck(t, c, 0)
	c.peerTopicAliasMax = 8
	c.session.aliases.outboundMax = 8

	id, _ := c.session.ids.Acquire()
	c.handleSend(&PublishPacket{Topic: "t", Payload: []byte("x"), QoS: QoS1, ID: id})
	require.True(t, c.session.aliases.isOutboundMapped("t"))

	// Simulate a reconnect: the transport dropped and a fresh CONNECT was
	// sent, reaching CONNACK with the broker reporting a resumed session.
	c.phase = PhaseConnecting
	c.handleIncomingPacket(&ConnackPacket{ReasonCode: ReasonSuccess, SessionPresent: true})

	assert.False(t, c.session.aliases.isOutboundMapped("t"))
}

// Universal property: QoS 1 publish/ack round trip releases the packet id
// and quota and is delivered to the caller exactly once.
func TestQoS1PublishAckRoundTrip(t *testing.T) {
	c := newTestCore(t, V311)
	connectAndAck(t, c, 0)

	id, err := c.session.ids.Acquire()
	require.NoError(t, err)
	actions := c.handleSend(&PublishPacket{Topic: "t", Payload: []byte("x"), QoS: QoS1, ID: id})
	require.Len(t, actionsOfType[WriteBytesAction](actions), 1)
	_, stored := c.session.outbound.Get(id)
	assert.True(t, stored)

	ack := &PubackPacket{}
	ack.ID = id
	ack.ReasonCode = ReasonSuccess
	actions = c.handleIncomingPacket(ack)
	require.Len(t, actionsOfType[DeliverToCallerAction](actions), 1)
	_, stillStored := c.session.outbound.Get(id)
	assert.False(t, stillStored)
	assert.False(t, c.session.ids.InUse(id))
}

// Universal property: QoS 2 publish/pubrec/pubrel/pubcomp round trip, with
// the PUBREL reason code tracked independently of PUBREC's.
func TestQoS2PublishFullHandshake(t *testing.T) {
	c := newTestCore(t, V5)
	connectAndAck(t, c, 0)

	id, _ := c.session.ids.Acquire()
	c.handleSend(&PublishPacket{Topic: "t", Payload: []byte("x"), QoS: QoS2, ID: id})

	rec := &PubrecPacket{}
	rec.ID = id
	rec.ReasonCode = ReasonSuccess
	actions := c.handleIncomingPacket(rec)
	writes := actionsOfType[WriteBytesAction](actions)
	require.Len(t, writes, 1)
	relPkt, _, err := DecodeFrame(writes[0].Data, V5, RoleServer)
	require.NoError(t, err)
	rel, ok := relPkt.(*PubrelPacket)
	require.True(t, ok)
	assert.Equal(t, ReasonSuccess, rel.ReasonCode)
	assert.True(t, c.session.pubrels.Has(id))

	comp := &PubcompPacket{}
	comp.ID = id
	comp.ReasonCode = ReasonSuccess
	actions = c.handleIncomingPacket(comp)
	require.Len(t, actionsOfType[DeliverToCallerAction](actions), 1)
	assert.False(t, c.session.pubrels.Has(id))
	assert.False(t, c.session.ids.InUse(id))
}

// PUBREC carrying an error reason code terminates the QoS2 send-side
// handshake: no PUBREL follows, and the packet id and quota are released
// immediately instead of waiting for a PUBCOMP that will never arrive.
func TestPubrecErrorReasonTerminatesHandshakeWithoutPubrel(t *testing.T) {
	c := newTestCore(t, V5)
	connectAndAck(t, c, 0)
	id, _ := c.session.ids.Acquire()
	c.handleSend(&PublishPacket{Topic: "t", QoS: QoS2, ID: id})

	rec := &PubrecPacket{}
	rec.ID = id
	rec.ReasonCode = ReasonUnspecifiedError
	actions := c.handleIncomingPacket(rec)

	assert.Empty(t, actionsOfType[WriteBytesAction](actions))
	require.Len(t, actionsOfType[DeliverToCallerAction](actions), 1)
	assert.False(t, c.session.pubrels.Has(id))
	_, stillStored := c.session.outbound.Get(id)
	assert.False(t, stillStored)
	assert.False(t, c.session.ids.InUse(id))
}

// scenario (f), codec/state half: insufficient quota signals ErrFlowControl
// rather than silently succeeding or writing a frame.
func TestSendPublishSignalsFlowControlWhenQuotaExhausted(t *testing.T) {
	c := newTestCore(t, V5)
	connectAndAck(t, c, 1)

	id1, _ := c.session.ids.Acquire()
	actions := c.handleSend(&PublishPacket{Topic: "t", QoS: QoS1, ID: id1})
	require.Len(t, actionsOfType[WriteBytesAction](actions), 1)

	id2, _ := c.session.ids.Acquire()
	actions = c.handleSend(&PublishPacket{Topic: "t", QoS: QoS1, ID: id2})
	assert.Empty(t, actionsOfType[WriteBytesAction](actions))
	errs := actionsOfType[ErrorAction](actions)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0].Err, ErrFlowControl)
}

func TestSendPublishQoS0NeverConsumesQuotaOrPacketID(t *testing.T) {
	c := newTestCore(t, V311)
	connectAndAck(t, c, 1)
	before := c.session.quota.Available()
	actions := c.handleSend(&PublishPacket{Topic: "t", Payload: []byte("x"), QoS: QoS0})
	require.Len(t, actionsOfType[WriteBytesAction](actions), 1)
	assert.Equal(t, before, c.session.quota.Available())
	assert.Equal(t, 0, c.session.ids.Count())
}

func TestSendPublishRejectsUnregisteredPacketID(t *testing.T) {
	c := newTestCore(t, V5)
	connectAndAck(t, c, 0)
	actions := c.handleSend(&PublishPacket{Topic: "t", QoS: QoS1, ID: 42})
	errs := actionsOfType[ErrorAction](actions)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0].Err, ErrPacketIDNotFound)
}

// QoS 2 duplicate inbound PUBLISH (same id, PUBREL not yet sent by the
// peer) is suppressed from caller delivery but still acknowledged.
func TestHandlePublishQoS2SuppressesDuplicateDelivery(t *testing.T) {
	c := newTestCore(t, V5)
	connectAndAck(t, c, 0)

	pkt := &PublishPacket{Topic: "t", Payload: []byte("x"), QoS: QoS2, ID: 7}
	actions := c.handleIncomingPacket(pkt)
	require.Len(t, actionsOfType[DeliverToCallerAction](actions), 1)

	actions = c.handleIncomingPacket(pkt)
	assert.Empty(t, actionsOfType[DeliverToCallerAction](actions))
	writes := actionsOfType[WriteBytesAction](actions)
	require.Len(t, writes, 1) // still re-acks with PUBREC
}

func TestHandlePubrelClearsIncomingRecordAndAcksWithPubcomp(t *testing.T) {
	c := newTestCore(t, V5)
	connectAndAck(t, c, 0)
	c.session.incoming.Add(9)

	rel := &PubrelPacket{}
	rel.ID = 9
	actions := c.handleIncomingPacket(rel)
	assert.False(t, c.session.incoming.Has(9))
	writes := actionsOfType[WriteBytesAction](actions)
	require.Len(t, writes, 1)
	pkt, _, err := DecodeFrame(writes[0].Data, V5, RoleClient)
	require.NoError(t, err)
	_, ok := pkt.(*PubcompPacket)
	assert.True(t, ok)
}

func TestHandlePublishInvalidTopicAliasDisconnects(t *testing.T) {
	c := newTestCore(t, V5, WithTopicAliasMaximum(5))
	connectAndAck(t, c, 0)

	pkt := &PublishPacket{TopicAlias: 99}
	actions := c.handleIncomingPacket(pkt)
	require.Len(t, actionsOfType[CloseTransportAction](actions), 1)
	errs := actionsOfType[ErrorAction](actions)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0].Err, ErrProtocolError)

	writes := actionsOfType[WriteBytesAction](actions)
	require.Len(t, writes, 1)
	disc, _, err := DecodeFrame(writes[0].Data, V5, RoleClient)
	require.NoError(t, err)
	assert.Equal(t, ReasonTopicAliasInvalid, disc.(*DisconnectPacket).ReasonCode)
}

func TestServerDisconnectTearsDownConnection(t *testing.T) {
	c := newTestCore(t, V5)
	connectAndAck(t, c, 0)

	actions := c.handleIncomingPacket(&DisconnectPacket{ReasonCode: ReasonServerShuttingDown})
	assert.Equal(t, PhaseDisconnected, c.phase)
	require.Len(t, actionsOfType[CloseTransportAction](actions), 1)
	require.Len(t, actionsOfType[DeliverToCallerAction](actions), 1)
}

func TestTransportClosedCancelsTimersAndResetsRecvBuffer(t *testing.T) {
	c := newTestCore(t, V5)
	connectAndAck(t, c, 0)
	c.recvBuf = []byte{1, 2, 3}

	c.handleTransportClosed(nil)
	assert.Equal(t, PhaseDisconnected, c.phase)
	assert.Nil(t, c.recvBuf)
	assert.False(t, c.timers.IsArmed(TimerPingreqSend))
}

func TestTransportClosedWithErrorReportsTransportError(t *testing.T) {
	c := newTestCore(t, V5)
	connectAndAck(t, c, 0)
	actions := c.handleTransportClosed(assertCause)
	errs := actionsOfType[ErrorAction](actions)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0].Err, ErrTransport)
}

var assertCause = &TransportError{Op: "read", Err: ErrClosed}

// Stale timer fires (generation mismatch, e.g. after a later re-arm or a
// cancel) are ignored entirely.
func TestStaleTimerFireIsIgnored(t *testing.T) {
	c := newTestCore(t, V5)
	gen := c.timers.Arm(TimerPingreqSend, 0)
	c.timers.Cancel(TimerPingreqSend)
	actions := c.handleTimerFired(TimerPingreqSend, gen)
	assert.Nil(t, actions)
}

func TestConnectionEstablishTimeoutClosesTransport(t *testing.T) {
	c := newTestCore(t, V5)
	c.handleSend(&ConnectPacket{ClientID: "x"})
	gen := c.timers.generation[TimerConnectionEstablish]
	actions := c.handleTimerFired(TimerConnectionEstablish, gen)
	require.Len(t, actionsOfType[CloseTransportAction](actions), 1)
	errs := actionsOfType[ErrorAction](actions)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0].Err, ErrConnectTimeout)
	assert.Equal(t, PhaseDisconnected, c.phase)
}

// scenario (e): reserved packet type arriving mid-stream is a malformed
// packet that closes the transport, observed at the endpoint-state layer.
func TestHandleBytesReceivedRejectsReservedPacketType(t *testing.T) {
	c := newTestCore(t, V5)
	connectAndAck(t, c, 0)
	actions := c.handleBytesReceived([]byte{0x00, 0x00})
	require.Len(t, actionsOfType[CloseTransportAction](actions), 1)
	errs := actionsOfType[ErrorAction](actions)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0].Err, ErrInvalidPacketType)
}

func TestHandleBytesReceivedBuffersPartialFrameAcrossCalls(t *testing.T) {
	c := newTestCore(t, V311)
	connectAndAck(t, c, 0)
	frame, err := EncodePacket(&PublishPacket{Topic: "t", Payload: []byte("hi"), QoS: QoS0}, V311, 0)
	require.NoError(t, err)

	actions := c.handleBytesReceived(frame[:3])
	assert.Empty(t, actions)
	assert.NotEmpty(t, c.recvBuf)

	actions = c.handleBytesReceived(frame[3:])
	delivered := actionsOfType[DeliverToCallerAction](actions)
	require.Len(t, delivered, 1)
	pub := delivered[0].Packet.(*PublishPacket)
	assert.Equal(t, []byte("hi"), pub.Payload)
	assert.Empty(t, c.recvBuf)
}

// With both auto-map and auto-replace disabled, an outbound PUBLISH's
// topic and alias must pass through unchanged, per the "send unchanged"
// fallback branch.
func TestSendPublishLeavesTopicUnchangedWhenAliasingDisabled(t *testing.T) {
	c := newTestCore(t, V5, WithTopicAliasMaximum(8), WithAutoMapTopicAliasSend(false), WithAutoReplaceTopicAliasSend(false))
	connectAndAck(t, c, 0)
	c.peerTopicAliasMax = 8
	c.session.aliases.outboundMax = 8

	id, _ := c.session.ids.Acquire()
	actions := c.handleSend(&PublishPacket{Topic: "t", Payload: []byte("x"), QoS: QoS1, ID: id})
	writes := actionsOfType[WriteBytesAction](actions)
	require.Len(t, writes, 1)
	pkt, _, err := DecodeFrame(writes[0].Data, V5, RoleServer)
	require.NoError(t, err)
	wire := pkt.(*PublishPacket)
	assert.Equal(t, "t", wire.Topic)
	assert.Zero(t, wire.TopicAlias)
	assert.False(t, c.session.aliases.isOutboundMapped("t"))
}

// With auto-map disabled but auto-replace enabled, a never-before-seen
// topic is sent unchanged (nothing to replace yet), since auto-map is what
// would have created the mapping in the first place.
func TestSendPublishAutoReplaceWithoutAutoMapNeverCreatesMapping(t *testing.T) {
	c := newTestCore(t, V5, WithTopicAliasMaximum(8), WithAutoMapTopicAliasSend(false), WithAutoReplaceTopicAliasSend(true))
	connectAndAck(t, c, 0)
	c.peerTopicAliasMax = 8
	c.session.aliases.outboundMax = 8

	id, _ := c.session.ids.Acquire()
	actions := c.handleSend(&PublishPacket{Topic: "t", Payload: []byte("x"), QoS: QoS1, ID: id})
	writes := actionsOfType[WriteBytesAction](actions)
	require.Len(t, writes, 1)
	pkt, _, err := DecodeFrame(writes[0].Data, V5, RoleServer)
	require.NoError(t, err)
	wire := pkt.(*PublishPacket)
	assert.Equal(t, "t", wire.Topic)
	assert.Zero(t, wire.TopicAlias)
}

// With auto-map enabled but auto-replace disabled, a topic that already
// has a mapping is still sent in full on every subsequent PUBLISH: the
// alias is never substituted in for it.
func TestSendPublishAutoMapWithoutAutoReplaceNeverSubstitutes(t *testing.T) {
	c := newTestCore(t, V5, WithTopicAliasMaximum(8), WithAutoMapTopicAliasSend(true), WithAutoReplaceTopicAliasSend(false))
	connectAndAck(t, c, 0)
	c.peerTopicAliasMax = 8
	c.session.aliases.outboundMax = 8

	id1, _ := c.session.ids.Acquire()
	actions := c.handleSend(&PublishPacket{Topic: "t", Payload: []byte("x"), QoS: QoS1, ID: id1})
	writes := actionsOfType[WriteBytesAction](actions)
	require.Len(t, writes, 1)
	pkt, _, err := DecodeFrame(writes[0].Data, V5, RoleServer)
	require.NoError(t, err)
	first := pkt.(*PublishPacket)
	assert.Equal(t, "t", first.Topic)
	assert.NotZero(t, first.TopicAlias)
	require.True(t, c.session.aliases.isOutboundMapped("t"))

	ack := &PubackPacket{}
	ack.ID = id1
	ack.ReasonCode = ReasonSuccess
	c.handleIncomingPacket(ack)

	id2, _ := c.session.ids.Acquire()
	actions = c.handleSend(&PublishPacket{Topic: "t", Payload: []byte("y"), QoS: QoS1, ID: id2})
	writes = actionsOfType[WriteBytesAction](actions)
	require.Len(t, writes, 1)
	pkt, _, err = DecodeFrame(writes[0].Data, V5, RoleServer)
	require.NoError(t, err)
	second := pkt.(*PublishPacket)
	assert.Equal(t, "t", second.Topic)
	assert.Zero(t, second.TopicAlias)
}

// A received PINGREQ gets an automatic PINGRESP when AutoPingResponse is
// enabled (the default).
func TestHandlePingreqAutoRespondsWithPingresp(t *testing.T) {
	c := newTestCore(t, V5)
	connectAndAck(t, c, 0)

	actions := c.handleIncomingPacket(&PingreqPacket{})
	writes := actionsOfType[WriteBytesAction](actions)
	require.Len(t, writes, 1)
	pkt, _, err := DecodeFrame(writes[0].Data, V5, RoleClient)
	require.NoError(t, err)
	_, ok := pkt.(*PingrespPacket)
	assert.True(t, ok)
}

// With AutoPingResponse disabled, a received PINGREQ is handed to the
// caller instead, who is then responsible for responding.
func TestHandlePingreqDeliversToCallerWhenAutoPingResponseDisabled(t *testing.T) {
	c := newTestCore(t, V5, WithAutoPingResponse(false))
	connectAndAck(t, c, 0)

	actions := c.handleIncomingPacket(&PingreqPacket{})
	assert.Empty(t, actionsOfType[WriteBytesAction](actions))
	delivered := actionsOfType[DeliverToCallerAction](actions)
	require.Len(t, delivered, 1)
	_, ok := delivered[0].Packet.(*PingreqPacket)
	assert.True(t, ok)
}

// By default, the PINGREQ send period is half the effective keep-alive
// interval, so a single missed round trip doesn't already blow through
// the PINGRESP deadline.
func TestPingreqSendIntervalDefaultsToHalfKeepAlive(t *testing.T) {
	c := newTestCore(t, V5)
	c.handleSend(&ConnectPacket{ClientID: "x", KeepAlive: 20})
	actions := c.handleIncomingPacket(&ConnackPacket{ReasonCode: ReasonSuccess})
	timers := actionsOfType[ArmTimerAction](actions)
	require.Len(t, timers, 1)
	assert.Equal(t, TimerPingreqSend, timers[0].Kind)
	assert.Equal(t, 10*time.Second, timers[0].Duration)
}

// An explicit PingreqSendInterval overrides the half-keep-alive default.
func TestPingreqSendIntervalOverrideIsHonored(t *testing.T) {
	c := newTestCore(t, V5, WithPingreqSendInterval(3*time.Second))
	c.handleSend(&ConnectPacket{ClientID: "x", KeepAlive: 20})
	actions := c.handleIncomingPacket(&ConnackPacket{ReasonCode: ReasonSuccess})
	timers := actionsOfType[ArmTimerAction](actions)
	require.Len(t, timers, 1)
	assert.Equal(t, 3*time.Second, timers[0].Duration)
}

// firePingreqSend arms TimerPingrespRecv with the dedicated
// PingrespRecvTimeout rather than the (halved) PingreqSend period.
func TestFirePingreqSendUsesDedicatedPingrespTimeout(t *testing.T) {
	c := newTestCore(t, V5, WithPingrespRecvTimeout(25*time.Second))
	c.handleSend(&ConnectPacket{ClientID: "x", KeepAlive: 20})
	c.handleIncomingPacket(&ConnackPacket{ReasonCode: ReasonSuccess})

	gen := c.timers.generation[TimerPingreqSend]
	actions := c.handleTimerFired(TimerPingreqSend, gen)
	timers := actionsOfType[ArmTimerAction](actions)
	require.Len(t, timers, 2)
	var pingresp *ArmTimerAction
	for i := range timers {
		if timers[i].Kind == TimerPingrespRecv {
			pingresp = &timers[i]
		}
	}
	require.NotNil(t, pingresp)
	assert.Equal(t, 25*time.Second, pingresp.Duration)
}

// Any outbound packet write resets TimerPingreqSend to its full period,
// not just a PINGREQ firing itself.
func TestAnyOutboundWriteResetsPingreqSendTimer(t *testing.T) {
	c := newTestCore(t, V5)
	connectAndAck(t, c, 0)
	require.True(t, c.timers.IsArmed(TimerPingreqSend))
	before := c.timers.generation[TimerPingreqSend]

	id, _ := c.session.ids.Acquire()
	actions := c.resetPingreqTimerOnWrite(c.handleSend(&PublishPacket{Topic: "t", Payload: []byte("x"), QoS: QoS1, ID: id}))

	timers := actionsOfType[ArmTimerAction](actions)
	require.Len(t, timers, 1)
	assert.Equal(t, TimerPingreqSend, timers[0].Kind)
	assert.Greater(t, c.timers.generation[TimerPingreqSend], before)
}
