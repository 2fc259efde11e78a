package mqttendpoint

import "errors"

// PropertyID identifies an MQTT 5.0 property. Properties do not exist in
// MQTT 3.1.1; the codec never encodes or decodes them for that version.
type PropertyID byte

const (
	PropPayloadFormatIndicator      PropertyID = 0x01
	PropMessageExpiryInterval       PropertyID = 0x02
	PropContentType                 PropertyID = 0x03
	PropResponseTopic               PropertyID = 0x08
	PropCorrelationData             PropertyID = 0x09
	PropSubscriptionIdentifier      PropertyID = 0x0B
	PropSessionExpiryInterval       PropertyID = 0x11
	PropAssignedClientIdentifier    PropertyID = 0x12
	PropServerKeepAlive             PropertyID = 0x13
	PropAuthenticationMethod        PropertyID = 0x15
	PropAuthenticationData          PropertyID = 0x16
	PropRequestProblemInformation   PropertyID = 0x17
	PropWillDelayInterval           PropertyID = 0x18
	PropRequestResponseInformation  PropertyID = 0x19
	PropResponseInformation         PropertyID = 0x1A
	PropServerReference             PropertyID = 0x1C
	PropReasonString                PropertyID = 0x1F
	PropReceiveMaximum              PropertyID = 0x21
	PropTopicAliasMaximum           PropertyID = 0x22
	PropTopicAlias                  PropertyID = 0x23
	PropMaximumQoS                  PropertyID = 0x24
	PropRetainAvailable              PropertyID = 0x25
	PropUserProperty                 PropertyID = 0x26
	PropMaximumPacketSize            PropertyID = 0x27
	PropWildcardSubscriptionAvail    PropertyID = 0x28
	PropSubscriptionIdentifierAvail  PropertyID = 0x29
	PropSharedSubscriptionAvail      PropertyID = 0x2A
)

type propertyKind byte

const (
	kindByte propertyKind = iota
	kindU16
	kindU32
	kindVarint
	kindString
	kindBinary
	kindStringPair
)

type propertyMeta struct {
	kind       propertyKind
	repeatable bool
}

var propertyMetaTable = map[PropertyID]propertyMeta{
	PropPayloadFormatIndicator:     {kindByte, false},
	PropMessageExpiryInterval:      {kindU32, false},
	PropContentType:                {kindString, false},
	PropResponseTopic:              {kindString, false},
	PropCorrelationData:            {kindBinary, false},
	PropSubscriptionIdentifier:     {kindVarint, true},
	PropSessionExpiryInterval:      {kindU32, false},
	PropAssignedClientIdentifier:   {kindString, false},
	PropServerKeepAlive:            {kindU16, false},
	PropAuthenticationMethod:       {kindString, false},
	PropAuthenticationData:         {kindBinary, false},
	PropRequestProblemInformation:  {kindByte, false},
	PropWillDelayInterval:          {kindU32, false},
	PropRequestResponseInformation: {kindByte, false},
	PropResponseInformation:        {kindString, false},
	PropServerReference:            {kindString, false},
	PropReasonString:               {kindString, false},
	PropReceiveMaximum:             {kindU16, false},
	PropTopicAliasMaximum:          {kindU16, false},
	PropTopicAlias:                 {kindU16, false},
	PropMaximumQoS:                 {kindByte, false},
	PropRetainAvailable:            {kindByte, false},
	PropUserProperty:               {kindStringPair, true},
	PropMaximumPacketSize:          {kindU32, false},
	PropWildcardSubscriptionAvail:   {kindByte, false},
	PropSubscriptionIdentifierAvail: {kindByte, false},
	PropSharedSubscriptionAvail:     {kindByte, false},
}

var (
	ErrUnknownPropertyID   = errors.New("mqttendpoint: unknown property identifier")
	ErrDuplicateProperty   = errors.New("mqttendpoint: property present more than once")
	ErrPropertyNotAllowed  = errors.New("mqttendpoint: property not allowed on this packet type")
	ErrInvalidPropertyType = errors.New("mqttendpoint: property has the wrong wire type for its identifier")
)

// allowedProperties lists which properties MQTT 5.0 permits on each packet
// type. PINGREQ and PINGRESP carry no properties at all (they have no
// variable header beyond the fixed header).
func allowedProperties(t PacketType) map[PropertyID]bool {
	mk := func(ids ...PropertyID) map[PropertyID]bool {
		m := make(map[PropertyID]bool, len(ids))
		for _, id := range ids {
			m[id] = true
		}
		return m
	}
	switch t {
	case PacketCONNECT:
		return mk(PropSessionExpiryInterval, PropAuthenticationMethod, PropAuthenticationData,
			PropRequestProblemInformation, PropRequestResponseInformation, PropReceiveMaximum,
			PropTopicAliasMaximum, PropUserProperty, PropMaximumPacketSize)
	case PacketCONNACK:
		return mk(PropSessionExpiryInterval, PropAssignedClientIdentifier, PropServerKeepAlive,
			PropAuthenticationMethod, PropAuthenticationData, PropResponseInformation,
			PropServerReference, PropReasonString, PropReceiveMaximum, PropTopicAliasMaximum,
			PropMaximumQoS, PropRetainAvailable, PropUserProperty, PropMaximumPacketSize,
			PropWildcardSubscriptionAvail, PropSubscriptionIdentifierAvail, PropSharedSubscriptionAvail)
	case PacketPUBLISH:
		return mk(PropPayloadFormatIndicator, PropMessageExpiryInterval, PropContentType,
			PropResponseTopic, PropCorrelationData, PropSubscriptionIdentifier, PropTopicAlias,
			PropUserProperty)
	case PacketPUBACK, PacketPUBREC, PacketPUBREL, PacketPUBCOMP:
		return mk(PropReasonString, PropUserProperty)
	case PacketSUBSCRIBE:
		return mk(PropSubscriptionIdentifier, PropUserProperty)
	case PacketSUBACK, PacketUNSUBACK:
		return mk(PropReasonString, PropUserProperty)
	case PacketUNSUBSCRIBE:
		return mk(PropUserProperty)
	case PacketDISCONNECT:
		return mk(PropSessionExpiryInterval, PropServerReference, PropReasonString, PropUserProperty)
	case PacketAUTH:
		return mk(PropAuthenticationMethod, PropAuthenticationData, PropReasonString, PropUserProperty)
	default:
		return mk()
	}
}

// allowedWillProperties lists properties permitted in a CONNECT's Will
// Properties sub-structure, which is distinct from the CONNECT packet's own
// property set.
func allowedWillProperties() map[PropertyID]bool {
	return map[PropertyID]bool{
		PropWillDelayInterval:      true,
		PropPayloadFormatIndicator: true,
		PropMessageExpiryInterval:  true,
		PropContentType:            true,
		PropResponseTopic:          true,
		PropCorrelationData:        true,
		PropUserProperty:           true,
	}
}

type propertyValue struct {
	id    PropertyID
	value any
}

// Properties holds an MQTT 5.0 property set for one packet (or one Will
// message). It preserves insertion order for repeatable properties and
// enforces the at-most-once rule for everything else at encode time.
type Properties struct {
	values []propertyValue
}

func (p *Properties) Len() int { return len(p.values) }

func (p *Properties) Has(id PropertyID) bool {
	for _, v := range p.values {
		if v.id == id {
			return true
		}
	}
	return false
}

// Set replaces any existing value(s) for id with a single value. Use Add for
// repeatable properties (UserProperty, SubscriptionIdentifier).
func (p *Properties) Set(id PropertyID, value any) {
	p.Delete(id)
	p.values = append(p.values, propertyValue{id: id, value: value})
}

// Add appends a value for id without removing existing ones. Intended for
// repeatable properties; behaves like Set for non-repeatable ones.
func (p *Properties) Add(id PropertyID, value any) {
	meta, ok := propertyMetaTable[id]
	if ok && !meta.repeatable {
		p.Set(id, value)
		return
	}
	p.values = append(p.values, propertyValue{id: id, value: value})
}

func (p *Properties) Delete(id PropertyID) {
	out := p.values[:0]
	for _, v := range p.values {
		if v.id != id {
			out = append(out, v)
		}
	}
	p.values = out
}

func (p *Properties) get(id PropertyID) (any, bool) {
	for _, v := range p.values {
		if v.id == id {
			return v.value, true
		}
	}
	return nil, false
}

func (p *Properties) GetByte(id PropertyID) byte {
	if v, ok := p.get(id); ok {
		if b, ok := v.(byte); ok {
			return b
		}
	}
	return 0
}

func (p *Properties) GetUint16(id PropertyID) uint16 {
	if v, ok := p.get(id); ok {
		if u, ok := v.(uint16); ok {
			return u
		}
	}
	return 0
}

func (p *Properties) GetUint32(id PropertyID) uint32 {
	if v, ok := p.get(id); ok {
		if u, ok := v.(uint32); ok {
			return u
		}
	}
	return 0
}

func (p *Properties) GetString(id PropertyID) string {
	if v, ok := p.get(id); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (p *Properties) GetBinary(id PropertyID) []byte {
	if v, ok := p.get(id); ok {
		if b, ok := v.([]byte); ok {
			return b
		}
	}
	return nil
}

func (p *Properties) GetAllUserProperties() []StringPair {
	var out []StringPair
	for _, v := range p.values {
		if v.id == PropUserProperty {
			out = append(out, v.value.(StringPair))
		}
	}
	return out
}

func (p *Properties) GetAllSubscriptionIdentifiers() []uint32 {
	var out []uint32
	for _, v := range p.values {
		if v.id == PropSubscriptionIdentifier {
			out = append(out, v.value.(uint32))
		}
	}
	return out
}

// encode validates the property set against allowed's allow-list and the
// at-most-once rule, then serializes it as a variable-byte length prefix
// followed by identifier/value pairs.
func (p *Properties) encode(buf []byte, allowed map[PropertyID]bool) ([]byte, error) {
	var body []byte
	seen := make(map[PropertyID]bool, len(p.values))
	for _, v := range p.values {
		meta, known := propertyMetaTable[v.id]
		if !known {
			return buf, ErrUnknownPropertyID
		}
		if allowed != nil && !allowed[v.id] {
			return buf, ErrPropertyNotAllowed
		}
		if !meta.repeatable {
			if seen[v.id] {
				return buf, ErrDuplicateProperty
			}
			seen[v.id] = true
		}
		var err error
		body = encodeVarint(body, uint32(v.id))
		body, err = encodePropertyValue(body, meta.kind, v.value)
		if err != nil {
			return buf, err
		}
	}
	buf = encodeVarint(buf, uint32(len(body)))
	return append(buf, body...), nil
}

func encodePropertyValue(buf []byte, kind propertyKind, value any) ([]byte, error) {
	switch kind {
	case kindByte:
		b, ok := value.(byte)
		if !ok {
			return buf, ErrInvalidPropertyType
		}
		return append(buf, b), nil
	case kindU16:
		u, ok := value.(uint16)
		if !ok {
			return buf, ErrInvalidPropertyType
		}
		return encodeUint16(buf, u), nil
	case kindU32:
		u, ok := value.(uint32)
		if !ok {
			return buf, ErrInvalidPropertyType
		}
		return encodeUint32(buf, u), nil
	case kindVarint:
		u, ok := value.(uint32)
		if !ok {
			return buf, ErrInvalidPropertyType
		}
		return encodeVarint(buf, u), nil
	case kindString:
		s, ok := value.(string)
		if !ok {
			return buf, ErrInvalidPropertyType
		}
		return encodeString(buf, s)
	case kindBinary:
		b, ok := value.([]byte)
		if !ok {
			return buf, ErrInvalidPropertyType
		}
		return encodeBinary(buf, b)
	case kindStringPair:
		sp, ok := value.(StringPair)
		if !ok {
			return buf, ErrInvalidPropertyType
		}
		return encodeStringPair(buf, sp)
	default:
		return buf, ErrInvalidPropertyType
	}
}

// decodeProperties reads a variable-byte length-prefixed property block and
// validates it against allowed and the at-most-once rule.
func decodeProperties(buf []byte, allowed map[PropertyID]bool) (Properties, int, error) {
	length, n, err := decodeVarint(buf)
	if err != nil {
		return Properties{}, 0, err
	}
	total := n
	if len(buf) < total+int(length) {
		return Properties{}, 0, errNeedMore
	}
	body := buf[total : total+int(length)]
	total += int(length)

	var props Properties
	seen := make(map[PropertyID]bool)
	for len(body) > 0 {
		idVal, idN, err := decodeVarint(body)
		if err != nil {
			return Properties{}, 0, err
		}
		body = body[idN:]
		id := PropertyID(idVal)
		meta, known := propertyMetaTable[id]
		if !known {
			return Properties{}, 0, ErrUnknownPropertyID
		}
		if allowed != nil && !allowed[id] {
			return Properties{}, 0, ErrPropertyNotAllowed
		}
		if !meta.repeatable && seen[id] {
			return Properties{}, 0, ErrDuplicateProperty
		}
		seen[id] = true

		value, valN, err := decodePropertyValue(body, meta.kind)
		if err != nil {
			return Properties{}, 0, err
		}
		body = body[valN:]
		props.values = append(props.values, propertyValue{id: id, value: value})
	}
	return props, total, nil
}

func decodePropertyValue(buf []byte, kind propertyKind) (any, int, error) {
	switch kind {
	case kindByte:
		if len(buf) < 1 {
			return nil, 0, errNeedMore
		}
		return buf[0], 1, nil
	case kindU16:
		return decodeUint16(buf)
	case kindU32:
		return decodeUint32(buf)
	case kindVarint:
		return decodeVarint(buf)
	case kindString:
		return decodeString(buf)
	case kindBinary:
		return decodeBinary(buf)
	case kindStringPair:
		return decodeStringPair(buf)
	default:
		return nil, 0, ErrInvalidPropertyType
	}
}
