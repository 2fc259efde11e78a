package mqttendpoint

import "errors"

// NeedMore is returned by DecodeFrame when buf holds an incomplete packet.
// Callers should retain buf, wait for more transport bytes, and retry; no
// bytes are consumed on this path.
var NeedMore = errNeedMore

// EncodePacket serializes p for the given version and returns the complete
// wire frame (fixed header included). It fails with a PacketTooLargeError
// if the result would exceed maxSize, mirroring the check a broker applies
// on the receiving side so callers catch it before writing to a Transport.
func EncodePacket(p Packet, version Version, maxSize uint32) ([]byte, error) {
	if err := checkVersionSupport(p.Type(), version); err != nil {
		return nil, err
	}
	body, err := p.encode(nil, version)
	if err != nil {
		return nil, err
	}
	if uint32(len(body)) > maxVarint {
		return nil, newProtocolError("remaining length exceeds the protocol maximum", nil)
	}

	flags := fixedHeaderFlags(p)
	h := fixedHeader{Type: p.Type(), Flags: flags, RemainingLength: uint32(len(body))}
	frame := make([]byte, 0, fixedHeaderSize(h)+len(body))
	frame = encodeFixedHeader(frame, h)
	frame = append(frame, body...)

	if maxSize > 0 && uint32(len(frame)) > maxSize {
		return nil, &PacketTooLargeError{PacketType: p.Type(), Size: len(frame), Limit: maxSize}
	}
	return frame, nil
}

func fixedHeaderFlags(p Packet) byte {
	switch v := p.(type) {
	case *PublishPacket:
		return v.flags()
	case *PubrelPacket, *SubscribePacket, *UnsubscribePacket:
		return 0x02
	default:
		return 0x00
	}
}

// DecodeFrame attempts to parse exactly one packet from the front of buf.
// It returns the decoded packet and the number of bytes it consumed, or
// (nil, 0, NeedMore) if buf does not yet hold a complete frame. buf is
// never mutated or retained past the call.
func DecodeFrame(buf []byte, version Version, role Role) (Packet, int, error) {
	h, headerN, err := decodeFixedHeader(buf)
	if err != nil {
		return nil, 0, err
	}
	total := headerN + int(h.RemainingLength)
	if len(buf) < total {
		return nil, 0, errNeedMore
	}
	body := buf[headerN:total]

	if err := checkVersionSupport(h.Type, version); err != nil {
		return nil, 0, err
	}
	if err := checkDirection(h.Type, role); err != nil {
		return nil, 0, err
	}

	p, err := newPacketForType(h.Type)
	if err != nil {
		return nil, 0, err
	}
	if pub, ok := p.(*PublishPacket); ok {
		err = pub.decodeBodyWithFlags(body, version, h.Flags)
	} else {
		err = p.decodeBody(body, version)
	}
	if err != nil {
		if errors.Is(err, errNeedMore) {
			// A malformed length field claimed more body than it actually
			// encodes correctly; this is not a framing shortfall, it's
			// malformed content, since total bytes were already present.
			return nil, 0, newMalformedPacketError(h.Type, "body shorter than declared fields require", err)
		}
		return nil, 0, err
	}
	return p, total, nil
}

func newPacketForType(t PacketType) (Packet, error) {
	switch t {
	case PacketCONNECT:
		return &ConnectPacket{}, nil
	case PacketCONNACK:
		return &ConnackPacket{}, nil
	case PacketPUBLISH:
		return &PublishPacket{}, nil
	case PacketPUBACK:
		return &PubackPacket{}, nil
	case PacketPUBREC:
		return &PubrecPacket{}, nil
	case PacketPUBREL:
		return &PubrelPacket{}, nil
	case PacketPUBCOMP:
		return &PubcompPacket{}, nil
	case PacketSUBSCRIBE:
		return &SubscribePacket{}, nil
	case PacketSUBACK:
		return &SubackPacket{}, nil
	case PacketUNSUBSCRIBE:
		return &UnsubscribePacket{}, nil
	case PacketUNSUBACK:
		return &UnsubackPacket{}, nil
	case PacketPINGREQ:
		return &PingreqPacket{}, nil
	case PacketPINGRESP:
		return &PingrespPacket{}, nil
	case PacketDISCONNECT:
		return &DisconnectPacket{}, nil
	case PacketAUTH:
		return &AuthPacket{}, nil
	default:
		return nil, ErrInvalidPacketType
	}
}

func checkVersionSupport(t PacketType, version Version) error {
	if t == PacketAUTH && version != V5 {
		return newProtocolError("AUTH is not defined in MQTT 3.1.1", nil)
	}
	return nil
}

// checkDirection rejects packet types this endpoint's role should never
// see: a client-role endpoint rejects CONNECT/SUBSCRIBE/UNSUBSCRIBE and a
// server-role endpoint rejects CONNACK/SUBACK/UNSUBACK/PINGRESP. A client
// accepts PINGREQ so that a peer's PINGREQ can be answered (see
// Config.AutoPingResponse). PUBLISH/PUBACK/PUBREC/PUBREL/PUBCOMP/
// DISCONNECT/AUTH flow both ways and are not checked here.
func checkDirection(t PacketType, role Role) error {
	switch role {
	case RoleClient:
		switch t {
		case PacketCONNECT, PacketSUBSCRIBE, PacketUNSUBSCRIBE:
			return newProtocolError(t.String()+" received by a client endpoint", nil)
		}
	case RoleServer:
		switch t {
		case PacketCONNACK, PacketSUBACK, PacketUNSUBACK, PacketPINGRESP:
			return newProtocolError(t.String()+" received by a server endpoint", nil)
		}
	}
	return nil
}
