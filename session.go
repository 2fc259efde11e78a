package mqttendpoint

// session holds everything that must survive a reconnect when the broker
// reports SessionPresent (MQTT 3.1.1) or a non-zero Session Expiry Interval
// was honored (MQTT 5.0): packet identifiers, unacknowledged outbound QoS
// 1/2 sends, in-flight PUBRELs, and the incoming QoS 2 dedup record. It
// also holds the topic alias tables, which are not session state:
// handleConnack clears them on every successful CONNACK. Clear resets all
// of it except the send quota.
type session struct {
	ids     *packetIDPool
	outbound *storedPublishLog
	pubrels  *storedPubrelLog
	incoming *incomingQoS2Record
	aliases  *topicAliasStore
	quota    *sendQuota
}

func newSession(outboundAliasMax, inboundAliasMax, receiveMaximum uint16) *session {
	return &session{
		ids:      newPacketIDPool(),
		outbound: newStoredPublishLog(),
		pubrels:  newStoredPubrelLog(),
		incoming: newIncomingQoS2Record(),
		aliases:  newTopicAliasStore(outboundAliasMax, inboundAliasMax),
		quota:    newSendQuota(receiveMaximum),
	}
}

// Clear discards all session state, used when a clean start/clean session
// CONNECT is sent or the broker reports no session was present.
func (s *session) Clear() {
	s.ids.Clear()
	s.outbound.Clear()
	s.pubrels.Clear()
	s.incoming.Clear()
	s.aliases.Clear()
}
