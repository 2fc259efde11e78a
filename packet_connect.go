package mqttendpoint

// ConnectPacket is the client-to-server CONNECT packet that opens a
// session. The Version passed to the codec determines which fields the wire
// form carries:
// MQTT 3.1.1 has no properties and no AuthenticationMethod/Data.
type ConnectPacket struct {
	CleanStart bool
	KeepAlive  uint16
	ClientID   string

	HasWill     bool
	WillQoS     QoS
	WillRetain  bool
	WillTopic   string
	WillPayload []byte
	WillDelayInterval uint32

	HasUsername bool
	Username    string
	HasPassword bool
	Password    []byte

	// MQTT 5.0 CONNECT properties.
	HasSessionExpiryInterval bool
	SessionExpiryInterval    uint32
	HasReceiveMaximum        bool
	ReceiveMaximum           uint16
	HasMaximumPacketSize     bool
	MaximumPacketSize        uint32
	TopicAliasMaximum        uint16
	RequestResponseInformation bool
	RequestProblemInformation  bool
	UserProperties             []StringPair
	AuthenticationMethod       string
	AuthenticationData         []byte

	// MQTT 5.0 Will properties, distinct from the CONNECT properties above.
	WillPayloadFormatIndicator byte
	WillHasMessageExpiry       bool
	WillMessageExpiryInterval  uint32
	WillContentType            string
	WillResponseTopic          string
	WillCorrelationData        []byte
	WillUserProperties         []StringPair
}

func (p *ConnectPacket) Type() PacketType { return PacketCONNECT }

func (p *ConnectPacket) connectFlags() byte {
	var f byte
	if p.HasUsername {
		f |= 0x80
	}
	if p.HasPassword {
		f |= 0x40
	}
	if p.HasWill {
		if p.WillRetain {
			f |= 0x20
		}
		f |= byte(p.WillQoS&0x03) << 3
		f |= 0x04
	}
	if p.CleanStart {
		f |= 0x02
	}
	return f
}

func (p *ConnectPacket) encode(buf []byte, version Version) ([]byte, error) {
	var err error
	buf, err = encodeString(buf, "MQTT")
	if err != nil {
		return buf, err
	}
	buf = append(buf, byte(version))
	buf = append(buf, p.connectFlags())
	buf = encodeUint16(buf, p.KeepAlive)

	if version == V5 {
		var props Properties
		if p.HasSessionExpiryInterval {
			props.Set(PropSessionExpiryInterval, p.SessionExpiryInterval)
		}
		if p.HasReceiveMaximum {
			props.Set(PropReceiveMaximum, p.ReceiveMaximum)
		}
		if p.HasMaximumPacketSize {
			props.Set(PropMaximumPacketSize, p.MaximumPacketSize)
		}
		if p.TopicAliasMaximum != 0 {
			props.Set(PropTopicAliasMaximum, p.TopicAliasMaximum)
		}
		if p.RequestResponseInformation {
			props.Set(PropRequestResponseInformation, byte(1))
		}
		if p.RequestProblemInformation {
			props.Set(PropRequestProblemInformation, byte(1))
		} else {
			props.Set(PropRequestProblemInformation, byte(0))
		}
		for _, up := range p.UserProperties {
			props.Add(PropUserProperty, up)
		}
		if p.AuthenticationMethod != "" {
			props.Set(PropAuthenticationMethod, p.AuthenticationMethod)
			props.Set(PropAuthenticationData, p.AuthenticationData)
		}
		buf, err = props.encode(buf, allowedProperties(PacketCONNECT))
		if err != nil {
			return buf, err
		}
	}

	buf, err = encodeString(buf, p.ClientID)
	if err != nil {
		return buf, err
	}

	if p.HasWill {
		if version == V5 {
			var wp Properties
			if p.WillDelayInterval != 0 {
				wp.Set(PropWillDelayInterval, p.WillDelayInterval)
			}
			if p.WillPayloadFormatIndicator != 0 {
				wp.Set(PropPayloadFormatIndicator, p.WillPayloadFormatIndicator)
			}
			if p.WillHasMessageExpiry {
				wp.Set(PropMessageExpiryInterval, p.WillMessageExpiryInterval)
			}
			if p.WillContentType != "" {
				wp.Set(PropContentType, p.WillContentType)
			}
			if p.WillResponseTopic != "" {
				wp.Set(PropResponseTopic, p.WillResponseTopic)
			}
			if p.WillCorrelationData != nil {
				wp.Set(PropCorrelationData, p.WillCorrelationData)
			}
			for _, up := range p.WillUserProperties {
				wp.Add(PropUserProperty, up)
			}
			buf, err = wp.encode(buf, allowedWillProperties())
			if err != nil {
				return buf, err
			}
		}
		buf, err = encodeString(buf, p.WillTopic)
		if err != nil {
			return buf, err
		}
		buf, err = encodeBinary(buf, p.WillPayload)
		if err != nil {
			return buf, err
		}
	}

	if p.HasUsername {
		buf, err = encodeString(buf, p.Username)
		if err != nil {
			return buf, err
		}
	}
	if p.HasPassword {
		buf, err = encodeBinary(buf, p.Password)
		if err != nil {
			return buf, err
		}
	}
	return buf, nil
}

func (p *ConnectPacket) decodeBody(buf []byte, version Version) error {
	name, n, err := decodeString(buf)
	if err != nil {
		return err
	}
	buf = buf[n:]
	if name != "MQTT" {
		return newMalformedPacketError(PacketCONNECT, "unexpected protocol name", nil)
	}
	if len(buf) < 4 {
		return errNeedMore
	}
	wireVersion := Version(buf[0])
	if wireVersion != version {
		return newMalformedPacketError(PacketCONNECT, "protocol version does not match the negotiated endpoint version", nil)
	}
	flags := buf[1]
	p.KeepAlive = uint16(buf[2])<<8 | uint16(buf[3])
	buf = buf[4:]

	if flags&0x01 != 0 {
		return newMalformedPacketError(PacketCONNECT, "reserved connect flag bit set", nil)
	}
	p.CleanStart = flags&0x02 != 0
	p.HasWill = flags&0x04 != 0
	p.WillQoS = QoS((flags >> 3) & 0x03)
	p.WillRetain = flags&0x20 != 0
	p.HasPassword = flags&0x40 != 0
	p.HasUsername = flags&0x80 != 0
	if p.HasWill && !p.WillQoS.valid() {
		return newMalformedPacketError(PacketCONNECT, "invalid will QoS", ErrInvalidQoS)
	}

	if version == V5 {
		props, pn, err := decodeProperties(buf, allowedProperties(PacketCONNECT))
		if err != nil {
			return err
		}
		buf = buf[pn:]
		if props.Has(PropSessionExpiryInterval) {
			p.HasSessionExpiryInterval = true
			p.SessionExpiryInterval = props.GetUint32(PropSessionExpiryInterval)
		}
		if props.Has(PropReceiveMaximum) {
			p.HasReceiveMaximum = true
			p.ReceiveMaximum = props.GetUint16(PropReceiveMaximum)
		}
		if props.Has(PropMaximumPacketSize) {
			p.HasMaximumPacketSize = true
			p.MaximumPacketSize = props.GetUint32(PropMaximumPacketSize)
		}
		p.TopicAliasMaximum = props.GetUint16(PropTopicAliasMaximum)
		p.RequestResponseInformation = props.GetByte(PropRequestResponseInformation) == 1
		p.RequestProblemInformation = props.GetByte(PropRequestProblemInformation) != 0
		p.UserProperties = props.GetAllUserProperties()
		p.AuthenticationMethod = props.GetString(PropAuthenticationMethod)
		p.AuthenticationData = props.GetBinary(PropAuthenticationData)
	}

	clientID, n, err := decodeString(buf)
	if err != nil {
		return err
	}
	p.ClientID = clientID
	buf = buf[n:]

	if p.HasWill {
		if version == V5 {
			wp, wn, err := decodeProperties(buf, allowedWillProperties())
			if err != nil {
				return err
			}
			buf = buf[wn:]
			p.WillDelayInterval = wp.GetUint32(PropWillDelayInterval)
			p.WillPayloadFormatIndicator = wp.GetByte(PropPayloadFormatIndicator)
			if wp.Has(PropMessageExpiryInterval) {
				p.WillHasMessageExpiry = true
				p.WillMessageExpiryInterval = wp.GetUint32(PropMessageExpiryInterval)
			}
			p.WillContentType = wp.GetString(PropContentType)
			p.WillResponseTopic = wp.GetString(PropResponseTopic)
			p.WillCorrelationData = wp.GetBinary(PropCorrelationData)
			p.WillUserProperties = wp.GetAllUserProperties()
		}
		topic, n, err := decodeString(buf)
		if err != nil {
			return err
		}
		p.WillTopic = topic
		buf = buf[n:]
		payload, n, err := decodeBinary(buf)
		if err != nil {
			return err
		}
		p.WillPayload = payload
		buf = buf[n:]
	}

	if p.HasUsername {
		username, n, err := decodeString(buf)
		if err != nil {
			return err
		}
		p.Username = username
		buf = buf[n:]
	}
	if p.HasPassword {
		password, n, err := decodeBinary(buf)
		if err != nil {
			return err
		}
		p.Password = password
		buf = buf[n:]
	}
	return nil
}
