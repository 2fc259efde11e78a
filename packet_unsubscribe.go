package mqttendpoint

// UnsubscribePacket removes one or more topic filter subscriptions.
type UnsubscribePacket struct {
	ID           uint16
	TopicFilters []string

	UserProperties []StringPair
}

func (p *UnsubscribePacket) Type() PacketType      { return PacketUNSUBSCRIBE }
func (p *UnsubscribePacket) PacketID() uint16      { return p.ID }
func (p *UnsubscribePacket) SetPacketID(id uint16) { p.ID = id }

func (p *UnsubscribePacket) encode(buf []byte, version Version) ([]byte, error) {
	buf = encodeUint16(buf, p.ID)
	var err error
	if version == V5 {
		var props Properties
		for _, up := range p.UserProperties {
			props.Add(PropUserProperty, up)
		}
		buf, err = props.encode(buf, allowedProperties(PacketUNSUBSCRIBE))
		if err != nil {
			return buf, err
		}
	}
	for _, f := range p.TopicFilters {
		buf, err = encodeString(buf, f)
		if err != nil {
			return buf, err
		}
	}
	return buf, nil
}

func (p *UnsubscribePacket) decodeBody(buf []byte, version Version) error {
	id, n, err := decodeUint16(buf)
	if err != nil {
		return err
	}
	p.ID = id
	buf = buf[n:]
	if version == V5 {
		props, n, err := decodeProperties(buf, allowedProperties(PacketUNSUBSCRIBE))
		if err != nil {
			return err
		}
		buf = buf[n:]
		p.UserProperties = props.GetAllUserProperties()
	}
	if len(buf) == 0 {
		return newMalformedPacketError(PacketUNSUBSCRIBE, "no topic filters", nil)
	}
	for len(buf) > 0 {
		filter, n, err := decodeString(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
		p.TopicFilters = append(p.TopicFilters, filter)
	}
	return nil
}

// UnsubackPacket acknowledges an UNSUBSCRIBE. MQTT 3.1.1 carries no reason
// codes at all; ReasonCodes is only populated for V5.
type UnsubackPacket struct {
	ID          uint16
	ReasonCodes []ReasonCode

	ReasonString   string
	UserProperties []StringPair
}

func (p *UnsubackPacket) Type() PacketType      { return PacketUNSUBACK }
func (p *UnsubackPacket) PacketID() uint16      { return p.ID }
func (p *UnsubackPacket) SetPacketID(id uint16) { p.ID = id }

func (p *UnsubackPacket) encode(buf []byte, version Version) ([]byte, error) {
	buf = encodeUint16(buf, p.ID)
	if version != V5 {
		return buf, nil
	}
	var props Properties
	if p.ReasonString != "" {
		props.Set(PropReasonString, p.ReasonString)
	}
	for _, up := range p.UserProperties {
		props.Add(PropUserProperty, up)
	}
	var err error
	buf, err = props.encode(buf, allowedProperties(PacketUNSUBACK))
	if err != nil {
		return buf, err
	}
	for _, rc := range p.ReasonCodes {
		buf = append(buf, byte(rc))
	}
	return buf, nil
}

func (p *UnsubackPacket) decodeBody(buf []byte, version Version) error {
	id, n, err := decodeUint16(buf)
	if err != nil {
		return err
	}
	p.ID = id
	buf = buf[n:]
	if version != V5 {
		return nil
	}
	props, n, err := decodeProperties(buf, allowedProperties(PacketUNSUBACK))
	if err != nil {
		return err
	}
	buf = buf[n:]
	p.ReasonString = props.GetString(PropReasonString)
	p.UserProperties = props.GetAllUserProperties()
	for _, b := range buf {
		p.ReasonCodes = append(p.ReasonCodes, ReasonCode(b))
	}
	return nil
}
