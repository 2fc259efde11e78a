package mqttendpoint

// PublishPacket carries application data in either direction. Dup/QoS/
// Retain are carried on the wire in the fixed header flags rather than in
// the body; ID is encoded only when QoS > 0.
type PublishPacket struct {
	Dup    bool
	QoS    QoS
	Retain bool

	Topic    string
	ID       uint16
	Payload  []byte

	// MQTT 5.0 only.
	PayloadFormatIndicator byte
	HasMessageExpiry       bool
	MessageExpiryInterval  uint32
	TopicAlias             uint16
	ResponseTopic          string
	CorrelationData        []byte
	UserProperties         []StringPair
	SubscriptionIdentifiers []uint32
	ContentType             string
}

func (p *PublishPacket) Type() PacketType { return PacketPUBLISH }

func (p *PublishPacket) PacketID() uint16      { return p.ID }
func (p *PublishPacket) SetPacketID(id uint16) { p.ID = id }

// topicNameExtracted reports whether Topic is non-empty. Once
// resolveInboundTopicAlias (topic_alias_rules.go) has filled in Topic from
// an alias, it also reports true, so it does not tell an explicit topic
// from a substituted one.
func (p *PublishPacket) topicNameExtracted() bool { return p.Topic != "" }

func (p *PublishPacket) flags() byte {
	return publishFlags(p.Dup, p.QoS, p.Retain)
}

func (p *PublishPacket) encode(buf []byte, version Version) ([]byte, error) {
	if !p.QoS.valid() {
		return buf, ErrInvalidQoS
	}
	var err error
	buf, err = encodeString(buf, p.Topic)
	if err != nil {
		return buf, err
	}
	if p.QoS != QoS0 {
		buf = encodeUint16(buf, p.ID)
	}
	if version == V5 {
		var props Properties
		if p.PayloadFormatIndicator != 0 {
			props.Set(PropPayloadFormatIndicator, p.PayloadFormatIndicator)
		}
		if p.HasMessageExpiry {
			props.Set(PropMessageExpiryInterval, p.MessageExpiryInterval)
		}
		if p.TopicAlias != 0 {
			props.Set(PropTopicAlias, p.TopicAlias)
		}
		if p.ResponseTopic != "" {
			props.Set(PropResponseTopic, p.ResponseTopic)
		}
		if p.CorrelationData != nil {
			props.Set(PropCorrelationData, p.CorrelationData)
		}
		if p.ContentType != "" {
			props.Set(PropContentType, p.ContentType)
		}
		for _, id := range p.SubscriptionIdentifiers {
			props.Add(PropSubscriptionIdentifier, id)
		}
		for _, up := range p.UserProperties {
			props.Add(PropUserProperty, up)
		}
		buf, err = props.encode(buf, allowedProperties(PacketPUBLISH))
		if err != nil {
			return buf, err
		}
	}
	return append(buf, p.Payload...), nil
}

// decodeBodyWithFlags is called by the codec with the fixed header flags,
// since QoS/Dup/Retain live there rather than in the body.
func (p *PublishPacket) decodeBodyWithFlags(buf []byte, version Version, flags byte) error {
	p.Dup = publishDUP(flags)
	p.QoS = publishQoS(flags)
	p.Retain = publishRetain(flags)
	return p.decodeBody(buf, version)
}

func (p *PublishPacket) decodeBody(buf []byte, version Version) error {
	topic, n, err := decodeString(buf)
	if err != nil {
		return err
	}
	p.Topic = topic
	buf = buf[n:]

	if p.QoS != QoS0 {
		id, n, err := decodeUint16(buf)
		if err != nil {
			return err
		}
		p.ID = id
		buf = buf[n:]
	}

	if version == V5 {
		props, n, err := decodeProperties(buf, allowedProperties(PacketPUBLISH))
		if err != nil {
			return err
		}
		buf = buf[n:]
		p.PayloadFormatIndicator = props.GetByte(PropPayloadFormatIndicator)
		if props.Has(PropMessageExpiryInterval) {
			p.HasMessageExpiry = true
			p.MessageExpiryInterval = props.GetUint32(PropMessageExpiryInterval)
		}
		p.TopicAlias = props.GetUint16(PropTopicAlias)
		p.ResponseTopic = props.GetString(PropResponseTopic)
		p.CorrelationData = props.GetBinary(PropCorrelationData)
		p.ContentType = props.GetString(PropContentType)
		p.SubscriptionIdentifiers = props.GetAllSubscriptionIdentifiers()
		p.UserProperties = props.GetAllUserProperties()
	}
	p.Payload = append([]byte(nil), buf...)
	return nil
}

func (p *PublishPacket) toMessage() Message {
	m := Message{
		Topic:   p.Topic,
		Payload: p.Payload,
		QoS:     p.QoS,
		Retain:  p.Retain,
		Dup:     p.Dup,
	}
	m.fromProperties(p.toProperties())
	return m
}

func (p *PublishPacket) toProperties() Properties {
	var props Properties
	if p.PayloadFormatIndicator != 0 {
		props.Set(PropPayloadFormatIndicator, p.PayloadFormatIndicator)
	}
	if p.HasMessageExpiry {
		props.Set(PropMessageExpiryInterval, p.MessageExpiryInterval)
	}
	if p.TopicAlias != 0 {
		props.Set(PropTopicAlias, p.TopicAlias)
	}
	if p.ResponseTopic != "" {
		props.Set(PropResponseTopic, p.ResponseTopic)
	}
	if p.CorrelationData != nil {
		props.Set(PropCorrelationData, p.CorrelationData)
	}
	if p.ContentType != "" {
		props.Set(PropContentType, p.ContentType)
	}
	for _, id := range p.SubscriptionIdentifiers {
		props.Add(PropSubscriptionIdentifier, id)
	}
	for _, up := range p.UserProperties {
		props.Add(PropUserProperty, up)
	}
	return props
}

func publishFromMessage(m Message) *PublishPacket {
	p := &PublishPacket{
		Topic:   m.Topic,
		Payload: m.Payload,
		QoS:     m.QoS,
		Retain:  m.Retain,
		Dup:     m.Dup,

		PayloadFormatIndicator:  m.PayloadFormatIndicator,
		HasMessageExpiry:        m.HasMessageExpiry,
		MessageExpiryInterval:   m.MessageExpiryInterval,
		ContentType:             m.ContentType,
		ResponseTopic:           m.ResponseTopic,
		CorrelationData:         m.CorrelationData,
		TopicAlias:              m.TopicAlias,
		SubscriptionIdentifiers: m.SubscriptionIdentifiers,
		UserProperties:          m.UserProperties,
	}
	return p
}
