package mqttendpoint

// AuthPacket carries an MQTT 5.0 enhanced authentication exchange step.
// There is no MQTT 3.1.1 equivalent; decoding one under a V311 endpoint is
// always a protocol error, enforced by the codec before reaching here.
type AuthPacket struct {
	ReasonCode ReasonCode

	AuthenticationMethod string
	AuthenticationData   []byte
	ReasonString         string
	UserProperties       []StringPair
}

func (p *AuthPacket) Type() PacketType { return PacketAUTH }

func (p *AuthPacket) encode(buf []byte, _ Version) ([]byte, error) {
	if p.ReasonCode == ReasonSuccess && p.AuthenticationMethod == "" &&
		p.AuthenticationData == nil && p.ReasonString == "" && len(p.UserProperties) == 0 {
		return buf, nil
	}
	buf = append(buf, byte(p.ReasonCode))
	var props Properties
	if p.AuthenticationMethod != "" {
		props.Set(PropAuthenticationMethod, p.AuthenticationMethod)
	}
	if p.AuthenticationData != nil {
		props.Set(PropAuthenticationData, p.AuthenticationData)
	}
	if p.ReasonString != "" {
		props.Set(PropReasonString, p.ReasonString)
	}
	for _, up := range p.UserProperties {
		props.Add(PropUserProperty, up)
	}
	return props.encode(buf, allowedProperties(PacketAUTH))
}

func (p *AuthPacket) decodeBody(buf []byte, _ Version) error {
	if len(buf) == 0 {
		p.ReasonCode = ReasonSuccess
		return nil
	}
	p.ReasonCode = ReasonCode(buf[0])
	buf = buf[1:]
	if len(buf) == 0 {
		return nil
	}
	props, _, err := decodeProperties(buf, allowedProperties(PacketAUTH))
	if err != nil {
		return err
	}
	p.AuthenticationMethod = props.GetString(PropAuthenticationMethod)
	p.AuthenticationData = props.GetBinary(PropAuthenticationData)
	p.ReasonString = props.GetString(PropReasonString)
	p.UserProperties = props.GetAllUserProperties()
	return nil
}
