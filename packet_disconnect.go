package mqttendpoint

// DisconnectPacket ends a session gracefully (or reports why the endpoint
// is tearing down the connection). MQTT 3.1.1 has no DISCONNECT payload at
// all: ReasonCode is always ReasonNormalDisconnection and nothing is
// encoded beyond the fixed header.
type DisconnectPacket struct {
	ReasonCode ReasonCode

	HasSessionExpiryInterval bool
	SessionExpiryInterval    uint32
	ReasonString             string
	ServerReference          string
	UserProperties           []StringPair
}

func (p *DisconnectPacket) Type() PacketType { return PacketDISCONNECT }

func (p *DisconnectPacket) encode(buf []byte, version Version) ([]byte, error) {
	if version != V5 {
		return buf, nil
	}
	if p.ReasonCode == ReasonNormalDisconnection && p.SessionExpiryInterval == 0 &&
		!p.HasSessionExpiryInterval && p.ReasonString == "" && p.ServerReference == "" && len(p.UserProperties) == 0 {
		return buf, nil
	}
	buf = append(buf, byte(p.ReasonCode))
	var props Properties
	if p.HasSessionExpiryInterval {
		props.Set(PropSessionExpiryInterval, p.SessionExpiryInterval)
	}
	if p.ReasonString != "" {
		props.Set(PropReasonString, p.ReasonString)
	}
	if p.ServerReference != "" {
		props.Set(PropServerReference, p.ServerReference)
	}
	for _, up := range p.UserProperties {
		props.Add(PropUserProperty, up)
	}
	return props.encode(buf, allowedProperties(PacketDISCONNECT))
}

func (p *DisconnectPacket) decodeBody(buf []byte, version Version) error {
	if version != V5 || len(buf) == 0 {
		p.ReasonCode = ReasonNormalDisconnection
		return nil
	}
	p.ReasonCode = ReasonCode(buf[0])
	buf = buf[1:]
	if len(buf) == 0 {
		return nil
	}
	props, _, err := decodeProperties(buf, allowedProperties(PacketDISCONNECT))
	if err != nil {
		return err
	}
	if props.Has(PropSessionExpiryInterval) {
		p.HasSessionExpiryInterval = true
		p.SessionExpiryInterval = props.GetUint32(PropSessionExpiryInterval)
	}
	p.ReasonString = props.GetString(PropReasonString)
	p.ServerReference = props.GetString(PropServerReference)
	p.UserProperties = props.GetAllUserProperties()
	return nil
}
