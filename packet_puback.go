package mqttendpoint

// pubAckLike is the shared shape of PUBACK, PUBREC, PUBREL and PUBCOMP: a packet id,
// an optional MQTT 5.0 reason code, and optional MQTT 5.0 properties. MQTT
// 3.1.1 packets of these types are just the two-byte packet id with no
// reason code or properties at all.
type pubAckLike struct {
	ID         uint16
	ReasonCode ReasonCode
	HasReasonCode bool // true once decoded from a V5 packet, even when Success
	ReasonString string
	UserProperties []StringPair
}

func (p *pubAckLike) PacketID() uint16      { return p.ID }
func (p *pubAckLike) SetPacketID(id uint16) { p.ID = id }

func (p *pubAckLike) encode(buf []byte, version Version, t PacketType) ([]byte, error) {
	buf = encodeUint16(buf, p.ID)
	if version != V5 {
		return buf, nil
	}
	// Reason code and properties may be omitted entirely when reason code is
	// Success and there are no properties, per the MQTT 5.0 encoding rule
	// that lets these acks collapse back to their 3.1.1 wire shape.
	if p.ReasonCode == ReasonSuccess && p.ReasonString == "" && len(p.UserProperties) == 0 {
		return buf, nil
	}
	buf = append(buf, byte(p.ReasonCode))
	var props Properties
	if p.ReasonString != "" {
		props.Set(PropReasonString, p.ReasonString)
	}
	for _, up := range p.UserProperties {
		props.Add(PropUserProperty, up)
	}
	return props.encode(buf, allowedProperties(t))
}

func (p *pubAckLike) decodeBody(buf []byte, version Version, t PacketType) error {
	id, n, err := decodeUint16(buf)
	if err != nil {
		return err
	}
	p.ID = id
	buf = buf[n:]
	if version != V5 {
		return nil
	}
	if len(buf) == 0 {
		p.ReasonCode = ReasonSuccess
		p.HasReasonCode = true
		return nil
	}
	p.ReasonCode = ReasonCode(buf[0])
	p.HasReasonCode = true
	buf = buf[1:]
	if len(buf) == 0 {
		return nil
	}
	props, _, err := decodeProperties(buf, allowedProperties(t))
	if err != nil {
		return err
	}
	p.ReasonString = props.GetString(PropReasonString)
	p.UserProperties = props.GetAllUserProperties()
	return nil
}

// PubackPacket acknowledges a QoS 1 PUBLISH.
type PubackPacket struct{ pubAckLike }

func (p *PubackPacket) Type() PacketType { return PacketPUBACK }
func (p *PubackPacket) encode(buf []byte, version Version) ([]byte, error) {
	return p.pubAckLike.encode(buf, version, PacketPUBACK)
}
func (p *PubackPacket) decodeBody(buf []byte, version Version) error {
	return p.pubAckLike.decodeBody(buf, version, PacketPUBACK)
}

// PubrecPacket is the first half of the QoS 2 handshake's acknowledgement.
type PubrecPacket struct{ pubAckLike }

func (p *PubrecPacket) Type() PacketType { return PacketPUBREC }
func (p *PubrecPacket) encode(buf []byte, version Version) ([]byte, error) {
	return p.pubAckLike.encode(buf, version, PacketPUBREC)
}
func (p *PubrecPacket) decodeBody(buf []byte, version Version) error {
	return p.pubAckLike.decodeBody(buf, version, PacketPUBREC)
}

// PubcompPacket completes the QoS 2 handshake.
type PubcompPacket struct{ pubAckLike }

func (p *PubcompPacket) Type() PacketType { return PacketPUBCOMP }
func (p *PubcompPacket) encode(buf []byte, version Version) ([]byte, error) {
	return p.pubAckLike.encode(buf, version, PacketPUBCOMP)
}
func (p *PubcompPacket) decodeBody(buf []byte, version Version) error {
	return p.pubAckLike.decodeBody(buf, version, PacketPUBCOMP)
}
