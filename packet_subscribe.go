package mqttendpoint

// SubscriptionOptions are the MQTT 5.0 per-filter subscribe options. MQTT
// 3.1.1 subscriptions carry only QoS: NoLocal/RetainAsPublished/RetainHandling
// are left at their zero values and never encoded for that version.
type SubscriptionOptions struct {
	QoS               QoS
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    byte // 0, 1, or 2
}

func (o SubscriptionOptions) encodeByte() byte {
	b := byte(o.QoS & 0x03)
	if o.NoLocal {
		b |= 0x04
	}
	if o.RetainAsPublished {
		b |= 0x08
	}
	b |= (o.RetainHandling & 0x03) << 4
	return b
}

func decodeSubscriptionOptions(b byte) SubscriptionOptions {
	return SubscriptionOptions{
		QoS:               QoS(b & 0x03),
		NoLocal:           b&0x04 != 0,
		RetainAsPublished: b&0x08 != 0,
		RetainHandling:    (b >> 4) & 0x03,
	}
}

// Subscription is one topic filter entry within a SUBSCRIBE packet.
type Subscription struct {
	TopicFilter string
	Options     SubscriptionOptions
}

// SubscribePacket requests one or more topic filters. It always carries a
// packet identifier and, in both versions, at least one Subscription.
type SubscribePacket struct {
	ID            uint16
	Subscriptions []Subscription

	SubscriptionIdentifier    uint32
	HasSubscriptionIdentifier bool
	UserProperties            []StringPair
}

func (p *SubscribePacket) Type() PacketType     { return PacketSUBSCRIBE }
func (p *SubscribePacket) PacketID() uint16     { return p.ID }
func (p *SubscribePacket) SetPacketID(id uint16) { p.ID = id }

func (p *SubscribePacket) encode(buf []byte, version Version) ([]byte, error) {
	buf = encodeUint16(buf, p.ID)
	if version == V5 {
		var props Properties
		if p.HasSubscriptionIdentifier {
			props.Set(PropSubscriptionIdentifier, p.SubscriptionIdentifier)
		}
		for _, up := range p.UserProperties {
			props.Add(PropUserProperty, up)
		}
		var err error
		buf, err = props.encode(buf, allowedProperties(PacketSUBSCRIBE))
		if err != nil {
			return buf, err
		}
	}
	var err error
	for _, s := range p.Subscriptions {
		buf, err = encodeString(buf, s.TopicFilter)
		if err != nil {
			return buf, err
		}
		if version == V5 {
			buf = append(buf, s.Options.encodeByte())
		} else {
			buf = append(buf, byte(s.Options.QoS&0x03))
		}
	}
	return buf, nil
}

func (p *SubscribePacket) decodeBody(buf []byte, version Version) error {
	id, n, err := decodeUint16(buf)
	if err != nil {
		return err
	}
	p.ID = id
	buf = buf[n:]

	if version == V5 {
		props, n, err := decodeProperties(buf, allowedProperties(PacketSUBSCRIBE))
		if err != nil {
			return err
		}
		buf = buf[n:]
		if props.Has(PropSubscriptionIdentifier) {
			ids := props.GetAllSubscriptionIdentifiers()
			if len(ids) > 0 {
				p.HasSubscriptionIdentifier = true
				p.SubscriptionIdentifier = ids[0]
			}
		}
		p.UserProperties = props.GetAllUserProperties()
	}

	if len(buf) == 0 {
		return newMalformedPacketError(PacketSUBSCRIBE, "no topic filters", nil)
	}
	for len(buf) > 0 {
		filter, n, err := decodeString(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
		if len(buf) < 1 {
			return errNeedMore
		}
		var opts SubscriptionOptions
		if version == V5 {
			opts = decodeSubscriptionOptions(buf[0])
			if opts.RetainHandling > 2 {
				return newMalformedPacketError(PacketSUBSCRIBE, "invalid retain handling value", nil)
			}
		} else {
			opts = SubscriptionOptions{QoS: QoS(buf[0] & 0x03)}
		}
		if !opts.QoS.valid() {
			return newMalformedPacketError(PacketSUBSCRIBE, "invalid subscribe QoS", ErrInvalidQoS)
		}
		buf = buf[1:]
		p.Subscriptions = append(p.Subscriptions, Subscription{TopicFilter: filter, Options: opts})
	}
	return nil
}

// SubackPacket acknowledges a SUBSCRIBE with one reason/return code per
// requested filter, in the same order.
type SubackPacket struct {
	ID          uint16
	ReasonCodes []ReasonCode

	ReasonString   string
	UserProperties []StringPair
}

func (p *SubackPacket) Type() PacketType      { return PacketSUBACK }
func (p *SubackPacket) PacketID() uint16      { return p.ID }
func (p *SubackPacket) SetPacketID(id uint16) { p.ID = id }

func (p *SubackPacket) encode(buf []byte, version Version) ([]byte, error) {
	buf = encodeUint16(buf, p.ID)
	if version == V5 {
		var props Properties
		if p.ReasonString != "" {
			props.Set(PropReasonString, p.ReasonString)
		}
		for _, up := range p.UserProperties {
			props.Add(PropUserProperty, up)
		}
		var err error
		buf, err = props.encode(buf, allowedProperties(PacketSUBACK))
		if err != nil {
			return buf, err
		}
	}
	for _, rc := range p.ReasonCodes {
		buf = append(buf, byte(rc))
	}
	return buf, nil
}

func (p *SubackPacket) decodeBody(buf []byte, version Version) error {
	id, n, err := decodeUint16(buf)
	if err != nil {
		return err
	}
	p.ID = id
	buf = buf[n:]
	if version == V5 {
		props, n, err := decodeProperties(buf, allowedProperties(PacketSUBACK))
		if err != nil {
			return err
		}
		buf = buf[n:]
		p.ReasonString = props.GetString(PropReasonString)
		p.UserProperties = props.GetAllUserProperties()
	}
	for _, b := range buf {
		p.ReasonCodes = append(p.ReasonCodes, ReasonCode(b))
	}
	return nil
}
