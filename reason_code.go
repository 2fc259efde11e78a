package mqttendpoint

// ReasonCode is the MQTT 5.0 reason code carried by CONNACK, PUBACK, PUBREC,
// PUBREL, PUBCOMP, SUBACK, UNSUBACK, DISCONNECT and AUTH. MQTT 3.1.1 has no
// reason codes; its CONNACK return codes are mapped onto this type by
// connectReturnCodeToReason / reasonToConnectReturnCode so callers have one
// type to inspect regardless of version.
type ReasonCode byte

const (
	ReasonSuccess                           ReasonCode = 0x00
	ReasonNormalDisconnection                ReasonCode = 0x00
	ReasonGrantedQoS0                        ReasonCode = 0x00
	ReasonGrantedQoS1                        ReasonCode = 0x01
	ReasonGrantedQoS2                        ReasonCode = 0x02
	ReasonDisconnectWithWillMessage          ReasonCode = 0x04
	ReasonNoMatchingSubscribers              ReasonCode = 0x10
	ReasonNoSubscriptionExisted              ReasonCode = 0x11
	ReasonContinueAuthentication             ReasonCode = 0x18
	ReasonReAuthenticate                     ReasonCode = 0x19
	ReasonUnspecifiedError                   ReasonCode = 0x80
	ReasonMalformedPacket                    ReasonCode = 0x81
	ReasonProtocolError                      ReasonCode = 0x82
	ReasonImplementationSpecificError        ReasonCode = 0x83
	ReasonUnsupportedProtocolVersion         ReasonCode = 0x84
	ReasonClientIdentifierNotValid           ReasonCode = 0x85
	ReasonBadUserNameOrPassword              ReasonCode = 0x86
	ReasonNotAuthorized                      ReasonCode = 0x87
	ReasonServerUnavailable                  ReasonCode = 0x88
	ReasonServerBusy                         ReasonCode = 0x89
	ReasonBanned                             ReasonCode = 0x8A
	ReasonServerShuttingDown                 ReasonCode = 0x8B
	ReasonBadAuthenticationMethod            ReasonCode = 0x8C
	ReasonKeepAliveTimeout                   ReasonCode = 0x8D
	ReasonSessionTakenOver                   ReasonCode = 0x8E
	ReasonTopicFilterInvalid                 ReasonCode = 0x8F
	ReasonTopicNameInvalid                   ReasonCode = 0x90
	ReasonPacketIdentifierInUse              ReasonCode = 0x91
	ReasonPacketIdentifierNotFound           ReasonCode = 0x92
	ReasonReceiveMaximumExceeded             ReasonCode = 0x93
	ReasonTopicAliasInvalid                  ReasonCode = 0x94
	ReasonPacketTooLarge                     ReasonCode = 0x95
	ReasonMessageRateTooHigh                 ReasonCode = 0x96
	ReasonQuotaExceeded                      ReasonCode = 0x97
	ReasonAdministrativeAction               ReasonCode = 0x98
	ReasonPayloadFormatInvalid               ReasonCode = 0x99
	ReasonRetainNotSupported                 ReasonCode = 0x9A
	ReasonQoSNotSupported                    ReasonCode = 0x9B
	ReasonUseAnotherServer                   ReasonCode = 0x9C
	ReasonServerMoved                        ReasonCode = 0x9D
	ReasonSharedSubscriptionsNotSupported    ReasonCode = 0x9E
	ReasonConnectionRateExceeded             ReasonCode = 0x9F
	ReasonMaximumConnectTime                 ReasonCode = 0xA0
	ReasonSubscriptionIdentifiersNotSupported ReasonCode = 0xA1
	ReasonWildcardSubscriptionsNotSupported  ReasonCode = 0xA2
)

func (r ReasonCode) String() string {
	switch r {
	case ReasonSuccess:
		return "success"
	case ReasonGrantedQoS1:
		return "granted QoS 1"
	case ReasonGrantedQoS2:
		return "granted QoS 2"
	case ReasonDisconnectWithWillMessage:
		return "disconnect with will message"
	case ReasonNoMatchingSubscribers:
		return "no matching subscribers"
	case ReasonNoSubscriptionExisted:
		return "no subscription existed"
	case ReasonContinueAuthentication:
		return "continue authentication"
	case ReasonReAuthenticate:
		return "re-authenticate"
	case ReasonUnspecifiedError:
		return "unspecified error"
	case ReasonMalformedPacket:
		return "malformed packet"
	case ReasonProtocolError:
		return "protocol error"
	case ReasonImplementationSpecificError:
		return "implementation specific error"
	case ReasonUnsupportedProtocolVersion:
		return "unsupported protocol version"
	case ReasonClientIdentifierNotValid:
		return "client identifier not valid"
	case ReasonBadUserNameOrPassword:
		return "bad user name or password"
	case ReasonNotAuthorized:
		return "not authorized"
	case ReasonServerUnavailable:
		return "server unavailable"
	case ReasonServerBusy:
		return "server busy"
	case ReasonBanned:
		return "banned"
	case ReasonServerShuttingDown:
		return "server shutting down"
	case ReasonBadAuthenticationMethod:
		return "bad authentication method"
	case ReasonKeepAliveTimeout:
		return "keep alive timeout"
	case ReasonSessionTakenOver:
		return "session taken over"
	case ReasonTopicFilterInvalid:
		return "topic filter invalid"
	case ReasonTopicNameInvalid:
		return "topic name invalid"
	case ReasonPacketIdentifierInUse:
		return "packet identifier in use"
	case ReasonPacketIdentifierNotFound:
		return "packet identifier not found"
	case ReasonReceiveMaximumExceeded:
		return "receive maximum exceeded"
	case ReasonTopicAliasInvalid:
		return "topic alias invalid"
	case ReasonPacketTooLarge:
		return "packet too large"
	case ReasonMessageRateTooHigh:
		return "message rate too high"
	case ReasonQuotaExceeded:
		return "quota exceeded"
	case ReasonAdministrativeAction:
		return "administrative action"
	case ReasonPayloadFormatInvalid:
		return "payload format invalid"
	case ReasonRetainNotSupported:
		return "retain not supported"
	case ReasonQoSNotSupported:
		return "QoS not supported"
	case ReasonUseAnotherServer:
		return "use another server"
	case ReasonServerMoved:
		return "server moved"
	case ReasonSharedSubscriptionsNotSupported:
		return "shared subscriptions not supported"
	case ReasonConnectionRateExceeded:
		return "connection rate exceeded"
	case ReasonMaximumConnectTime:
		return "maximum connect time"
	case ReasonSubscriptionIdentifiersNotSupported:
		return "subscription identifiers not supported"
	case ReasonWildcardSubscriptionsNotSupported:
		return "wildcard subscriptions not supported"
	default:
		return "unknown reason code"
	}
}

func (r ReasonCode) isError() bool { return r >= 0x80 }

// ConnectReturnCode is the MQTT 3.1.1 CONNACK return code, distinct from and
// much smaller than the MQTT 5.0 reason code set.
type ConnectReturnCode byte

const (
	ConnectAccepted                    ConnectReturnCode = 0x00
	ConnectRefusedProtocolVersion      ConnectReturnCode = 0x01
	ConnectRefusedIdentifierRejected   ConnectReturnCode = 0x02
	ConnectRefusedServerUnavailable    ConnectReturnCode = 0x03
	ConnectRefusedBadUserNameOrPassword ConnectReturnCode = 0x04
	ConnectRefusedNotAuthorized        ConnectReturnCode = 0x05
)

// connectReturnCodeToReason maps a 3.1.1 return code onto the closest 5.0
// reason code, so endpoint_state.go can share one CONNACK-handling path
// across both versions.
func connectReturnCodeToReason(rc ConnectReturnCode) ReasonCode {
	switch rc {
	case ConnectAccepted:
		return ReasonSuccess
	case ConnectRefusedProtocolVersion:
		return ReasonUnsupportedProtocolVersion
	case ConnectRefusedIdentifierRejected:
		return ReasonClientIdentifierNotValid
	case ConnectRefusedServerUnavailable:
		return ReasonServerUnavailable
	case ConnectRefusedBadUserNameOrPassword:
		return ReasonBadUserNameOrPassword
	case ConnectRefusedNotAuthorized:
		return ReasonNotAuthorized
	default:
		return ReasonUnspecifiedError
	}
}

func reasonToConnectReturnCode(r ReasonCode) ConnectReturnCode {
	switch r {
	case ReasonSuccess:
		return ConnectAccepted
	case ReasonUnsupportedProtocolVersion:
		return ConnectRefusedProtocolVersion
	case ReasonClientIdentifierNotValid:
		return ConnectRefusedIdentifierRejected
	case ReasonServerUnavailable:
		return ConnectRefusedServerUnavailable
	case ReasonBadUserNameOrPassword:
		return ConnectRefusedBadUserNameOrPassword
	case ReasonNotAuthorized:
		return ConnectRefusedNotAuthorized
	default:
		return ConnectRefusedServerUnavailable
	}
}
