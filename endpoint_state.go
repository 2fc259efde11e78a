package mqttendpoint

import (
	"errors"
	"time"
)

// endpointCore is the single-threaded state machine at the heart of the
// endpoint: every Event is fed to handleEvent and answered with a slice of
// Actions for endpoint.go's orchestrator goroutine to execute. It never
// touches a network socket, a channel, or a mutex; that separation is what
// makes it straightforward to drive from tests with synthetic events.
type endpointCore struct {
	cfg     *Config
	version Version
	phase   ConnectionPhase
	session *session
	timers  *timerService
	log     Logger

	recvBuf []byte

	peerReceiveMaximum uint16
	peerMaxQoS         QoS
	peerTopicAliasMax  uint16
	keepAliveInterval  uint16

	// assignedClientID holds the client id the broker assigned in its
	// CONNACK, if it assigned one.
	assignedClientID string
}

func newEndpointCore(cfg *Config) *endpointCore {
	c := &endpointCore{
		cfg:        cfg,
		version:    cfg.Version,
		phase:      PhaseDisconnected,
		timers:     newTimerService(),
		log:        cfg.Logger,
		peerMaxQoS: QoS2,
	}
	c.session = newSession(0, cfg.TopicAliasMaximum, 0)
	return c
}

func (c *endpointCore) handleEvent(ev Event) []Action {
	switch e := ev.(type) {
	case SendPacketEvent:
		return c.resetPingreqTimerOnWrite(c.handleSend(e.Packet))
	case BytesReceivedEvent:
		return c.resetPingreqTimerOnWrite(c.handleBytesReceived(e.Data))
	case TransportConnectedEvent:
		return c.handleTransportConnected()
	case TransportClosedEvent:
		return c.handleTransportClosed(e.Err)
	case TimerFiredEvent:
		// firePingreqSend already re-arms both keep-alive timers itself;
		// running it back through the write-triggered reset would arm
		// TimerPingreqSend a second time with a fresh generation.
		return c.handleTimerFired(e.Kind, e.Generation)
	default:
		return nil
	}
}

// resetPingreqTimerOnWrite re-arms the keep-alive PINGREQ timer to its full
// period whenever actions wrote a frame to the transport: any outbound
// packet is evidence of activity, just as any inbound one already cancels
// TimerPingrespRecv in handleIncomingPacket.
func (c *endpointCore) resetPingreqTimerOnWrite(actions []Action) []Action {
	if c.phase != PhaseConnected || c.keepAliveInterval == 0 || !c.timers.IsArmed(TimerPingreqSend) {
		return actions
	}
	wrote := false
	for _, a := range actions {
		if _, ok := a.(WriteBytesAction); ok {
			wrote = true
			break
		}
	}
	if !wrote {
		return actions
	}
	interval := c.pingreqInterval()
	gen := c.timers.Arm(TimerPingreqSend, interval)
	return append(actions, ArmTimerAction{Kind: TimerPingreqSend, Duration: interval, Generation: gen})
}

func (c *endpointCore) handleTransportConnected() []Action {
	return nil
}

func (c *endpointCore) handleTransportClosed(err error) []Action {
	c.timers.CancelAll()
	c.phase = PhaseDisconnected
	c.recvBuf = nil
	var actions []Action
	if err != nil {
		actions = append(actions, ErrorAction{Err: newTransportError("connection", err)})
	}
	return actions
}

func (c *endpointCore) handleTimerFired(kind TimerKind, generation uint64) []Action {
	if !c.timers.IsCurrent(kind, generation) {
		return nil
	}
	switch kind {
	case TimerPingreqSend:
		return c.firePingreqSend()
	case TimerPingrespRecv:
		c.timers.Cancel(TimerPingrespRecv)
		return []Action{
			ErrorAction{Err: ErrKeepAliveTimeout},
			CloseTransportAction{},
		}
	case TimerConnectionEstablish:
		c.timers.Cancel(TimerConnectionEstablish)
		c.phase = PhaseDisconnected
		return []Action{
			ErrorAction{Err: ErrConnectTimeout},
			CloseTransportAction{},
		}
	case TimerShutdown:
		c.timers.Cancel(TimerShutdown)
		return []Action{ErrorAction{Err: ErrShutdownTimeout}}
	default:
		return nil
	}
}

// pingreqInterval is the period between keep-alive PINGREQ sends: an
// explicit override if configured, else half the effective keep-alive, so
// a single missed round trip doesn't already blow through the deadline.
func (c *endpointCore) pingreqInterval() time.Duration {
	if c.cfg.PingreqSendInterval > 0 {
		return c.cfg.PingreqSendInterval
	}
	return time.Duration(c.keepAliveInterval) * time.Second / 2
}

// pingrespTimeout is how long we wait for PINGRESP after sending PINGREQ
// before declaring the connection dead.
func (c *endpointCore) pingrespTimeout() time.Duration {
	if c.cfg.PingrespRecvTimeout > 0 {
		return c.cfg.PingrespRecvTimeout
	}
	return time.Duration(c.keepAliveInterval) * time.Second
}

func (c *endpointCore) firePingreqSend() []Action {
	interval := c.pingreqInterval()
	gen := c.timers.Arm(TimerPingreqSend, interval)
	frame, err := EncodePacket(&PingreqPacket{}, c.version, c.cfg.MaximumPacketSize)
	if err != nil {
		return []Action{ErrorAction{Err: err}}
	}
	timeout := c.pingrespTimeout()
	respGen := c.timers.Arm(TimerPingrespRecv, timeout)
	return []Action{
		WriteBytesAction{Data: frame},
		ArmTimerAction{Kind: TimerPingreqSend, Duration: interval, Generation: gen},
		ArmTimerAction{Kind: TimerPingrespRecv, Duration: timeout, Generation: respGen},
	}
}

func (c *endpointCore) handleSend(p Packet) []Action {
	switch pkt := p.(type) {
	case *ConnectPacket:
		return c.sendConnect(pkt)
	case *PublishPacket:
		return c.sendPublish(pkt)
	case *SubscribePacket, *UnsubscribePacket:
		return c.sendIDPacket(p)
	case *DisconnectPacket:
		return c.sendDisconnect(pkt)
	case *PingreqPacket:
		return c.encodeAndWrite(p)
	case *AuthPacket:
		return c.encodeAndWrite(p)
	default:
		return c.encodeAndWrite(p)
	}
}

func (c *endpointCore) encodeAndWrite(p Packet) []Action {
	frame, err := EncodePacket(p, c.version, c.cfg.MaximumPacketSize)
	if err != nil {
		return []Action{ErrorAction{Err: err}}
	}
	return []Action{WriteBytesAction{Data: frame}}
}

func (c *endpointCore) sendConnect(p *ConnectPacket) []Action {
	if c.phase != PhaseDisconnected {
		return []Action{ErrorAction{Err: ErrAlreadyConnected}}
	}
	c.keepAliveInterval = p.KeepAlive
	frame, err := EncodePacket(p, c.version, c.cfg.MaximumPacketSize)
	if err != nil {
		return []Action{ErrorAction{Err: err}}
	}
	if p.CleanStart {
		c.session.Clear()
	}
	c.phase = PhaseConnecting
	gen := c.timers.Arm(TimerConnectionEstablish, c.cfg.ConnectTimeout)
	return []Action{
		WriteBytesAction{Data: frame},
		ArmTimerAction{Kind: TimerConnectionEstablish, Duration: c.cfg.ConnectTimeout, Generation: gen},
	}
}

func (c *endpointCore) sendDisconnect(p *DisconnectPacket) []Action {
	if c.phase != PhaseConnected && c.phase != PhaseConnecting {
		return []Action{ErrorAction{Err: ErrNotConnected}}
	}
	frame, err := EncodePacket(p, c.version, c.cfg.MaximumPacketSize)
	if err != nil {
		return []Action{ErrorAction{Err: err}}
	}
	c.phase = PhaseDisconnecting
	gen := c.timers.Arm(TimerShutdown, c.cfg.ShutdownTimeout)
	return []Action{
		WriteBytesAction{Data: frame},
		ArmTimerAction{Kind: TimerShutdown, Duration: c.cfg.ShutdownTimeout, Generation: gen},
		CloseTransportAction{},
	}
}

func (c *endpointCore) sendIDPacket(p Packet) []Action {
	if c.phase != PhaseConnected {
		return []Action{ErrorAction{Err: ErrNotConnected}}
	}
	pid := p.(PacketWithID)
	if !c.session.ids.InUse(pid.PacketID()) {
		return []Action{ErrorAction{Err: ErrPacketIDNotFound}}
	}
	return c.encodeAndWrite(p)
}

func (c *endpointCore) sendPublish(p *PublishPacket) []Action {
	if c.phase != PhaseConnected {
		return []Action{ErrorAction{Err: ErrNotConnected}}
	}
	if !p.QoS.valid() {
		return []Action{ErrorAction{Err: ErrInvalidQoS}}
	}

	resend := false
	if p.QoS != QoS0 {
		if !c.session.ids.InUse(p.ID) {
			return []Action{ErrorAction{Err: ErrPacketIDNotFound}}
		}
		if _, ok := c.session.outbound.Get(p.ID); ok {
			resend = true
			p.Dup = true
		}
	}

	if p.QoS != QoS0 && !resend {
		if !c.session.quota.CanSend() {
			// endpoint.go queues this call and retries it verbatim once a
			// PUBACK/PUBCOMP frees quota, rather than failing the caller.
			return []Action{ErrorAction{Err: ErrFlowControl}}
		}
		c.session.quota.Acquire()
	}

	// Captured before any topic-alias substitution below: a stored publish
	// must retain the fully expanded topic name, never an alias, since the
	// alias table is connection-scoped and won't survive a reconnect that
	// resends this entry via publishFromMessage.
	var storedMessage Message
	if p.QoS != QoS0 && !resend {
		storedMessage = p.toMessage()
	}

	applyOutboundTopicAlias(c.cfg, c.session, c.version, p)

	frame, err := EncodePacket(p, c.version, c.cfg.MaximumPacketSize)
	if err != nil {
		if p.QoS != QoS0 && !resend {
			c.session.quota.Release()
		}
		return []Action{ErrorAction{Err: err}}
	}

	if p.QoS != QoS0 {
		stage := stageAwaitingPuback
		if p.QoS == QoS2 {
			stage = stageAwaitingPubrec
		}
		if resend {
			c.session.outbound.SetStage(p.ID, stage)
		} else {
			c.session.outbound.Append(p.ID, storedMessage, stage)
		}
	}

	return []Action{WriteBytesAction{Data: frame}}
}

func (c *endpointCore) handleBytesReceived(data []byte) []Action {
	c.recvBuf = append(c.recvBuf, data...)
	var actions []Action
	for {
		pkt, n, err := DecodeFrame(c.recvBuf, c.version, RoleClient)
		if err != nil {
			if errors.Is(err, errNeedMore) {
				break
			}
			c.recvBuf = nil
			actions = append(actions, ErrorAction{Err: err}, CloseTransportAction{})
			return actions
		}
		if limit := c.cfg.MaximumPacketSize; limit > 0 && uint32(n) > limit {
			c.recvBuf = nil
			return append(actions, ErrorAction{Err: &PacketTooLargeError{PacketType: pkt.Type(), Size: n, Limit: limit}}, CloseTransportAction{})
		}
		c.recvBuf = c.recvBuf[n:]
		actions = append(actions, c.handleIncomingPacket(pkt)...)
	}
	return actions
}

func (c *endpointCore) handleIncomingPacket(p Packet) []Action {
	// Any inbound packet other than PINGRESP resets the peer-liveness
	// clock the same way a PINGRESP would, per the keep-alive rule that
	// counts any packet as evidence the connection is alive.
	if c.timers.IsArmed(TimerPingrespRecv) {
		c.timers.Cancel(TimerPingrespRecv)
	}

	switch pkt := p.(type) {
	case *ConnackPacket:
		return c.handleConnack(pkt)
	case *PublishPacket:
		return c.handlePublish(pkt)
	case *PubackPacket:
		return c.handlePuback(pkt)
	case *PubrecPacket:
		return c.handlePubrec(pkt)
	case *PubrelPacket:
		return c.handlePubrel(pkt)
	case *PubcompPacket:
		return c.handlePubcomp(pkt)
	case *SubackPacket:
		return c.handleIDAck(pkt.ID, DeliverToCallerAction{Packet: pkt})
	case *UnsubackPacket:
		return c.handleIDAck(pkt.ID, DeliverToCallerAction{Packet: pkt})
	case *PingrespPacket:
		return nil
	case *PingreqPacket:
		return c.handlePingreq(pkt)
	case *DisconnectPacket:
		return c.handleServerDisconnect(pkt)
	case *AuthPacket:
		return []Action{DeliverToCallerAction{Packet: pkt}}
	default:
		return []Action{DeliverToCallerAction{Packet: p}}
	}
}

func (c *endpointCore) handleConnack(pkt *ConnackPacket) []Action {
	if c.phase != PhaseConnecting {
		return []Action{ErrorAction{Err: newProtocolError("unexpected CONNACK outside the connecting phase", nil)}}
	}
	c.timers.Cancel(TimerConnectionEstablish)

	if pkt.ReasonCode.isError() {
		c.phase = PhaseDisconnected
		return []Action{
			ErrorAction{Err: &ConnectionRefusedError{Version: c.version, ReasonCode: pkt.ReasonCode}},
			DeliverToCallerAction{Packet: pkt},
			CloseTransportAction{},
		}
	}

	c.phase = PhaseConnected
	// Topic aliases are never part of MQTT session state: they are scoped
	// to the underlying transport connection, so the table is cleared on
	// every successful (re)connect regardless of SessionPresent.
	c.session.aliases.Clear()
	if !pkt.SessionPresent {
		c.session.Clear()
	}
	if pkt.HasReceiveMaximum {
		c.session.quota.Reset(pkt.ReceiveMaximum)
	}
	c.peerTopicAliasMax = pkt.TopicAliasMaximum
	c.session.aliases.outboundMax = pkt.TopicAliasMaximum
	if pkt.HasMaximumQoS {
		c.peerMaxQoS = pkt.MaximumQoS
	}
	if pkt.HasServerKeepAlive {
		c.keepAliveInterval = pkt.ServerKeepAlive
	}
	if pkt.AssignedClientIdentifier != "" {
		c.assignedClientID = pkt.AssignedClientIdentifier
	}

	actions := []Action{DeliverToCallerAction{Packet: pkt}}
	if c.keepAliveInterval > 0 {
		interval := c.pingreqInterval()
		gen := c.timers.Arm(TimerPingreqSend, interval)
		actions = append(actions, ArmTimerAction{
			Kind: TimerPingreqSend, Duration: interval, Generation: gen,
		})
	}

	if pkt.SessionPresent {
		for _, sp := range c.session.outbound.InOrder() {
			pub := publishFromMessage(sp.message)
			pub.ID = sp.id
			pub.Dup = true
			frame, err := EncodePacket(pub, c.version, c.cfg.MaximumPacketSize)
			if err == nil {
				actions = append(actions, WriteBytesAction{Data: frame})
			}
		}
		for _, id := range c.session.pubrels.InOrder() {
			rel := &PubrelPacket{}
			rel.ID = id
			rel.ReasonCode = ReasonSuccess
			frame, err := EncodePacket(rel, c.version, c.cfg.MaximumPacketSize)
			if err == nil {
				actions = append(actions, WriteBytesAction{Data: frame})
			}
		}
	}
	return actions
}

func (c *endpointCore) handlePingreq(pkt *PingreqPacket) []Action {
	if !c.cfg.AutoPingResponse {
		return []Action{DeliverToCallerAction{Packet: pkt}}
	}
	frame, err := EncodePacket(&PingrespPacket{}, c.version, c.cfg.MaximumPacketSize)
	if err != nil {
		return []Action{ErrorAction{Err: err}}
	}
	return []Action{WriteBytesAction{Data: frame}}
}

func (c *endpointCore) handlePublish(pkt *PublishPacket) []Action {
	if err := resolveInboundTopicAlias(c.session, c.version, pkt); err != nil {
		disc := &DisconnectPacket{ReasonCode: ReasonTopicAliasInvalid}
		frame, encErr := EncodePacket(disc, c.version, c.cfg.MaximumPacketSize)
		actions := []Action{ErrorAction{Err: err}}
		if encErr == nil {
			actions = append(actions, WriteBytesAction{Data: frame})
		}
		return append(actions, CloseTransportAction{})
	}

	switch pkt.QoS {
	case QoS0:
		return []Action{DeliverToCallerAction{Packet: pkt}}
	case QoS1:
		actions := []Action{DeliverToCallerAction{Packet: pkt}}
		if c.cfg.AutoPubResponse {
			ack := &PubackPacket{}
			ack.ID = pkt.ID
			ack.ReasonCode = ReasonSuccess
			frame, err := EncodePacket(ack, c.version, c.cfg.MaximumPacketSize)
			if err == nil {
				actions = append(actions, WriteBytesAction{Data: frame})
			}
		}
		return actions
	case QoS2:
		var actions []Action
		duplicate := c.session.incoming.Has(pkt.ID)
		if !duplicate {
			c.session.incoming.Add(pkt.ID)
			actions = append(actions, DeliverToCallerAction{Packet: pkt})
		}
		if c.cfg.AutoPubResponse {
			rec := &PubrecPacket{}
			rec.ID = pkt.ID
			rec.ReasonCode = ReasonSuccess
			frame, err := EncodePacket(rec, c.version, c.cfg.MaximumPacketSize)
			if err == nil {
				actions = append(actions, WriteBytesAction{Data: frame})
			}
		}
		return actions
	default:
		return []Action{ErrorAction{Err: ErrInvalidQoS}}
	}
}

func (c *endpointCore) handlePuback(pkt *PubackPacket) []Action {
	sp, ok := c.session.outbound.Get(pkt.ID)
	if !ok || sp.stage != stageAwaitingPuback {
		return []Action{ErrorAction{Err: newProtocolError("PUBACK for unknown or out-of-sequence packet identifier", nil)}}
	}
	c.session.outbound.Remove(pkt.ID)
	c.session.quota.Release()
	c.session.ids.Release(pkt.ID)
	return []Action{DeliverToCallerAction{Packet: pkt}}
}

func (c *endpointCore) handlePubrec(pkt *PubrecPacket) []Action {
	sp, ok := c.session.outbound.Get(pkt.ID)
	if !ok || sp.stage != stageAwaitingPubrec {
		if c.session.pubrels.Has(pkt.ID) {
			// Broker retransmitted PUBREC after already receiving our
			// PUBREL; resend the PUBREL rather than treating this as an
			// error, since the handshake is idempotent at this stage.
			rel := &PubrelPacket{}
			rel.ID = pkt.ID
			rel.ReasonCode = ReasonSuccess
			frame, err := EncodePacket(rel, c.version, c.cfg.MaximumPacketSize)
			if err != nil {
				return []Action{ErrorAction{Err: err}}
			}
			return []Action{WriteBytesAction{Data: frame}}
		}
		return []Action{ErrorAction{Err: newProtocolError("PUBREC for unknown or out-of-sequence packet identifier", nil)}}
	}

	if pkt.ReasonCode.isError() {
		// An error reason code terminates the QoS2 send-side handshake here;
		// the broker will not send PUBCOMP for a PUBREC it already rejected,
		// so there is nothing left to release by waiting for one.
		c.session.outbound.Remove(pkt.ID)
		c.session.quota.Release()
		c.session.ids.Release(pkt.ID)
		return []Action{DeliverToCallerAction{Packet: pkt}}
	}

	// PUBREL's own reason code is tracked independently (see
	// packet_pubrel.go) rather than mirroring PUBREC's.
	c.session.outbound.Remove(pkt.ID)
	c.session.pubrels.Add(pkt.ID)
	rel := &PubrelPacket{}
	rel.ID = pkt.ID
	rel.ReasonCode = ReasonSuccess
	frame, err := EncodePacket(rel, c.version, c.cfg.MaximumPacketSize)
	if err != nil {
		return []Action{ErrorAction{Err: err}}
	}
	return []Action{
		DeliverToCallerAction{Packet: pkt},
		WriteBytesAction{Data: frame},
	}
}

func (c *endpointCore) handlePubrel(pkt *PubrelPacket) []Action {
	c.session.incoming.Remove(pkt.ID)
	if !c.cfg.AutoPubResponse {
		return []Action{DeliverToCallerAction{Packet: pkt}}
	}
	comp := &PubcompPacket{}
	comp.ID = pkt.ID
	comp.ReasonCode = ReasonSuccess
	frame, err := EncodePacket(comp, c.version, c.cfg.MaximumPacketSize)
	if err != nil {
		return []Action{ErrorAction{Err: err}}
	}
	return []Action{WriteBytesAction{Data: frame}}
}

func (c *endpointCore) handlePubcomp(pkt *PubcompPacket) []Action {
	if !c.session.pubrels.Has(pkt.ID) {
		return []Action{ErrorAction{Err: newProtocolError("PUBCOMP for unknown or out-of-sequence packet identifier", nil)}}
	}
	c.session.pubrels.Remove(pkt.ID)
	c.session.quota.Release()
	c.session.ids.Release(pkt.ID)
	return []Action{DeliverToCallerAction{Packet: pkt}}
}

func (c *endpointCore) handleIDAck(id uint16, deliver Action) []Action {
	c.session.ids.Release(id)
	return []Action{deliver}
}

func (c *endpointCore) handleServerDisconnect(pkt *DisconnectPacket) []Action {
	c.timers.CancelAll()
	c.phase = PhaseDisconnected
	return []Action{
		DeliverToCallerAction{Packet: pkt},
		ErrorAction{Err: newProtocolError("server sent DISCONNECT: "+pkt.ReasonCode.String(), nil)},
		CloseTransportAction{},
	}
}
