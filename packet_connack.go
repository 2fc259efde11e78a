package mqttendpoint

// ConnackPacket is the server-to-client acknowledgement of a CONNECT.
type ConnackPacket struct {
	SessionPresent bool
	ReasonCode     ReasonCode // MQTT 3.1.1 return codes are mapped in/out via connectReturnCodeToReason.

	// MQTT 5.0 CONNACK properties.
	HasSessionExpiryInterval bool
	SessionExpiryInterval    uint32
	HasReceiveMaximum        bool
	ReceiveMaximum           uint16
	MaximumQoS               QoS
	HasMaximumQoS             bool
	RetainAvailable           bool
	HasRetainAvailable        bool
	HasMaximumPacketSize      bool
	MaximumPacketSize         uint32
	AssignedClientIdentifier  string
	TopicAliasMaximum         uint16
	ReasonString              string
	UserProperties            []StringPair
	WildcardSubscriptionAvailable   bool
	HasWildcardSubscriptionAvailable bool
	SubscriptionIdentifiersAvailable bool
	HasSubscriptionIdentifiersAvailable bool
	SharedSubscriptionAvailable     bool
	HasSharedSubscriptionAvailable  bool
	ServerKeepAlive                 uint16
	HasServerKeepAlive               bool
	ResponseInformation              string
	ServerReference                  string
	AuthenticationMethod              string
	AuthenticationData                []byte
}

func (p *ConnackPacket) Type() PacketType { return PacketCONNACK }

func (p *ConnackPacket) encode(buf []byte, version Version) ([]byte, error) {
	var flags byte
	if p.SessionPresent {
		flags = 0x01
	}
	buf = append(buf, flags)
	if version == V5 {
		buf = append(buf, byte(p.ReasonCode))
	} else {
		buf = append(buf, byte(reasonToConnectReturnCode(p.ReasonCode)))
	}
	if version != V5 {
		return buf, nil
	}

	var props Properties
	if p.HasSessionExpiryInterval {
		props.Set(PropSessionExpiryInterval, p.SessionExpiryInterval)
	}
	if p.HasReceiveMaximum {
		props.Set(PropReceiveMaximum, p.ReceiveMaximum)
	}
	if p.HasMaximumQoS {
		props.Set(PropMaximumQoS, byte(p.MaximumQoS))
	}
	if p.HasRetainAvailable {
		props.Set(PropRetainAvailable, boolByte(p.RetainAvailable))
	}
	if p.HasMaximumPacketSize {
		props.Set(PropMaximumPacketSize, p.MaximumPacketSize)
	}
	if p.AssignedClientIdentifier != "" {
		props.Set(PropAssignedClientIdentifier, p.AssignedClientIdentifier)
	}
	if p.TopicAliasMaximum != 0 {
		props.Set(PropTopicAliasMaximum, p.TopicAliasMaximum)
	}
	if p.ReasonString != "" {
		props.Set(PropReasonString, p.ReasonString)
	}
	for _, up := range p.UserProperties {
		props.Add(PropUserProperty, up)
	}
	if p.HasWildcardSubscriptionAvailable {
		props.Set(PropWildcardSubscriptionAvail, boolByte(p.WildcardSubscriptionAvailable))
	}
	if p.HasSubscriptionIdentifiersAvailable {
		props.Set(PropSubscriptionIdentifierAvail, boolByte(p.SubscriptionIdentifiersAvailable))
	}
	if p.HasSharedSubscriptionAvailable {
		props.Set(PropSharedSubscriptionAvail, boolByte(p.SharedSubscriptionAvailable))
	}
	if p.HasServerKeepAlive {
		props.Set(PropServerKeepAlive, p.ServerKeepAlive)
	}
	if p.ResponseInformation != "" {
		props.Set(PropResponseInformation, p.ResponseInformation)
	}
	if p.ServerReference != "" {
		props.Set(PropServerReference, p.ServerReference)
	}
	if p.AuthenticationMethod != "" {
		props.Set(PropAuthenticationMethod, p.AuthenticationMethod)
		props.Set(PropAuthenticationData, p.AuthenticationData)
	}
	return props.encode(buf, allowedProperties(PacketCONNACK))
}

func (p *ConnackPacket) decodeBody(buf []byte, version Version) error {
	if len(buf) < 2 {
		return errNeedMore
	}
	if buf[0]&0xFE != 0 {
		return newMalformedPacketError(PacketCONNACK, "reserved connack flag bits set", nil)
	}
	p.SessionPresent = buf[0]&0x01 != 0
	if version == V5 {
		p.ReasonCode = ReasonCode(buf[1])
	} else {
		p.ReasonCode = connectReturnCodeToReason(ConnectReturnCode(buf[1]))
	}
	buf = buf[2:]
	if version != V5 {
		return nil
	}

	props, _, err := decodeProperties(buf, allowedProperties(PacketCONNACK))
	if err != nil {
		return err
	}
	if props.Has(PropSessionExpiryInterval) {
		p.HasSessionExpiryInterval = true
		p.SessionExpiryInterval = props.GetUint32(PropSessionExpiryInterval)
	}
	if props.Has(PropReceiveMaximum) {
		p.HasReceiveMaximum = true
		p.ReceiveMaximum = props.GetUint16(PropReceiveMaximum)
	}
	if props.Has(PropMaximumQoS) {
		p.HasMaximumQoS = true
		p.MaximumQoS = QoS(props.GetByte(PropMaximumQoS))
	}
	if props.Has(PropRetainAvailable) {
		p.HasRetainAvailable = true
		p.RetainAvailable = props.GetByte(PropRetainAvailable) != 0
	}
	if props.Has(PropMaximumPacketSize) {
		p.HasMaximumPacketSize = true
		p.MaximumPacketSize = props.GetUint32(PropMaximumPacketSize)
	}
	p.AssignedClientIdentifier = props.GetString(PropAssignedClientIdentifier)
	p.TopicAliasMaximum = props.GetUint16(PropTopicAliasMaximum)
	p.ReasonString = props.GetString(PropReasonString)
	p.UserProperties = props.GetAllUserProperties()
	if props.Has(PropWildcardSubscriptionAvail) {
		p.HasWildcardSubscriptionAvailable = true
		p.WildcardSubscriptionAvailable = props.GetByte(PropWildcardSubscriptionAvail) != 0
	}
	if props.Has(PropSubscriptionIdentifierAvail) {
		p.HasSubscriptionIdentifiersAvailable = true
		p.SubscriptionIdentifiersAvailable = props.GetByte(PropSubscriptionIdentifierAvail) != 0
	}
	if props.Has(PropSharedSubscriptionAvail) {
		p.HasSharedSubscriptionAvailable = true
		p.SharedSubscriptionAvailable = props.GetByte(PropSharedSubscriptionAvail) != 0
	}
	if props.Has(PropServerKeepAlive) {
		p.HasServerKeepAlive = true
		p.ServerKeepAlive = props.GetUint16(PropServerKeepAlive)
	}
	p.ResponseInformation = props.GetString(PropResponseInformation)
	p.ServerReference = props.GetString(PropServerReference)
	p.AuthenticationMethod = props.GetString(PropAuthenticationMethod)
	p.AuthenticationData = props.GetBinary(PropAuthenticationData)
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
