package mqttendpoint

// Packet is implemented by every MQTT control packet type this endpoint
// exchanges with a broker. Encode/Decode work against a growing byte buffer
// rather than io.Writer/io.Reader, so the I/O core can run them directly
// over accumulated transport bytes without a blocking read.
type Packet interface {
	Type() PacketType

	// encode appends the packet's variable header and payload (everything
	// after the fixed header) to buf and returns the extended slice.
	encode(buf []byte, version Version) ([]byte, error)

	// decodeBody parses a packet's variable header and payload from buf,
	// which holds exactly RemainingLength bytes (no more, no less).
	decodeBody(buf []byte, version Version) error
}

// PacketWithID is implemented by packet types that carry a packet
// identifier: PUBLISH (QoS>0), PUBACK, PUBREC, PUBREL, PUBCOMP, SUBSCRIBE,
// SUBACK, UNSUBSCRIBE, UNSUBACK.
type PacketWithID interface {
	Packet
	PacketID() uint16
	SetPacketID(id uint16)
}

// Message is the application-visible content of a PUBLISH: a topic/payload
// pair plus whatever MQTT 5.0 properties travel alongside it. MQTT 3.1.1
// PUBLISH packets populate only Topic, Payload, QoS, Retain and Dup.
type Message struct {
	Topic   string
	Payload []byte
	QoS     QoS
	Retain  bool
	Dup     bool

	// MQTT 5.0 only; zero values mean "not present".
	PayloadFormatIndicator byte
	MessageExpiryInterval  uint32
	HasMessageExpiry       bool
	ContentType            string
	ResponseTopic          string
	CorrelationData        []byte
	TopicAlias             uint16
	SubscriptionIdentifiers []uint32
	UserProperties         []StringPair
}

// Clone returns a deep copy of m, safe to mutate (e.g. to substitute a
// topic alias) without affecting the caller's original.
func (m Message) Clone() Message {
	out := m
	if m.Payload != nil {
		out.Payload = append([]byte(nil), m.Payload...)
	}
	if m.CorrelationData != nil {
		out.CorrelationData = append([]byte(nil), m.CorrelationData...)
	}
	if m.SubscriptionIdentifiers != nil {
		out.SubscriptionIdentifiers = append([]uint32(nil), m.SubscriptionIdentifiers...)
	}
	if m.UserProperties != nil {
		out.UserProperties = append([]StringPair(nil), m.UserProperties...)
	}
	return out
}

func (m Message) toProperties() Properties {
	var p Properties
	if m.PayloadFormatIndicator != 0 {
		p.Set(PropPayloadFormatIndicator, m.PayloadFormatIndicator)
	}
	if m.HasMessageExpiry {
		p.Set(PropMessageExpiryInterval, m.MessageExpiryInterval)
	}
	if m.ContentType != "" {
		p.Set(PropContentType, m.ContentType)
	}
	if m.ResponseTopic != "" {
		p.Set(PropResponseTopic, m.ResponseTopic)
	}
	if m.CorrelationData != nil {
		p.Set(PropCorrelationData, m.CorrelationData)
	}
	if m.TopicAlias != 0 {
		p.Set(PropTopicAlias, m.TopicAlias)
	}
	for _, id := range m.SubscriptionIdentifiers {
		p.Add(PropSubscriptionIdentifier, id)
	}
	for _, up := range m.UserProperties {
		p.Add(PropUserProperty, up)
	}
	return p
}

func (m *Message) fromProperties(p Properties) {
	if p.Has(PropPayloadFormatIndicator) {
		m.PayloadFormatIndicator = p.GetByte(PropPayloadFormatIndicator)
	}
	if p.Has(PropMessageExpiryInterval) {
		m.MessageExpiryInterval = p.GetUint32(PropMessageExpiryInterval)
		m.HasMessageExpiry = true
	}
	m.ContentType = p.GetString(PropContentType)
	m.ResponseTopic = p.GetString(PropResponseTopic)
	m.CorrelationData = p.GetBinary(PropCorrelationData)
	m.TopicAlias = p.GetUint16(PropTopicAlias)
	m.SubscriptionIdentifiers = p.GetAllSubscriptionIdentifiers()
	m.UserProperties = p.GetAllUserProperties()
}
