package mqttendpoint

// outboundStage tracks where a stored QoS>0 send sits in its handshake.
type outboundStage int

const (
	stageAwaitingPuback  outboundStage = iota // QoS 1, sent, waiting for PUBACK
	stageAwaitingPubrec                       // QoS 2, sent, waiting for PUBREC
	stageAwaitingPubcomp                      // QoS 2, PUBREC received, PUBREL sent, waiting for PUBCOMP
)

// storedPublish is a QoS 1 or QoS 2 PUBLISH this endpoint has sent (or is
// about to send/resend) but has not yet had fully acknowledged. It survives
// a reconnect: on re-CONNECT with session present, every storedPublish is
// resent with Dup set.
type storedPublish struct {
	id      uint16
	message Message
	stage   outboundStage
}

// storedPublishLog is the insertion-ordered collection of storedPublish
// entries for one session, per the spec's requirement that resends happen
// in original send order. A parallel index map keeps id lookups O(1)
// without disturbing that order.
type storedPublishLog struct {
	order []uint16
	byID  map[uint16]*storedPublish
}

func newStoredPublishLog() *storedPublishLog {
	return &storedPublishLog{byID: make(map[uint16]*storedPublish)}
}

func (l *storedPublishLog) Append(id uint16, msg Message, stage outboundStage) {
	l.order = append(l.order, id)
	l.byID[id] = &storedPublish{id: id, message: msg, stage: stage}
}

func (l *storedPublishLog) Get(id uint16) (*storedPublish, bool) {
	sp, ok := l.byID[id]
	return sp, ok
}

func (l *storedPublishLog) SetStage(id uint16, stage outboundStage) bool {
	sp, ok := l.byID[id]
	if !ok {
		return false
	}
	sp.stage = stage
	return true
}

func (l *storedPublishLog) Remove(id uint16) bool {
	if _, ok := l.byID[id]; !ok {
		return false
	}
	delete(l.byID, id)
	for i, existing := range l.order {
		if existing == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

// InOrder returns stored publishes in original send order, for resend on
// reconnect.
func (l *storedPublishLog) InOrder() []*storedPublish {
	out := make([]*storedPublish, 0, len(l.order))
	for _, id := range l.order {
		if sp, ok := l.byID[id]; ok {
			out = append(out, sp)
		}
	}
	return out
}

func (l *storedPublishLog) Len() int { return len(l.order) }

func (l *storedPublishLog) Clear() {
	l.order = nil
	l.byID = make(map[uint16]*storedPublish)
}

// storedPubrelLog is the insertion-ordered set of packet ids for QoS 2
// sends that have progressed to "PUBREC received, PUBREL sent, awaiting
// PUBCOMP" and must resend just the PUBREL (not the original PUBLISH) after
// a reconnect.
type storedPubrelLog struct {
	order []uint16
	set   map[uint16]bool
}

func newStoredPubrelLog() *storedPubrelLog {
	return &storedPubrelLog{set: make(map[uint16]bool)}
}

func (l *storedPubrelLog) Add(id uint16) {
	if l.set[id] {
		return
	}
	l.set[id] = true
	l.order = append(l.order, id)
}

func (l *storedPubrelLog) Remove(id uint16) {
	if !l.set[id] {
		return
	}
	delete(l.set, id)
	for i, existing := range l.order {
		if existing == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

func (l *storedPubrelLog) Has(id uint16) bool { return l.set[id] }

func (l *storedPubrelLog) InOrder() []uint16 {
	return append([]uint16(nil), l.order...)
}

func (l *storedPubrelLog) Clear() {
	l.order = nil
	l.set = make(map[uint16]bool)
}

// incomingQoS2Record is the set of packet ids for QoS 2 PUBLISH packets
// this endpoint has received (and delivered or queued for delivery) but
// for which it has not yet received the sender's PUBREL. It exists to
// detect and suppress duplicate delivery when the sender retransmits the
// PUBLISH before its PUBREL arrives.
type incomingQoS2Record struct {
	ids map[uint16]bool
}

func newIncomingQoS2Record() *incomingQoS2Record {
	return &incomingQoS2Record{ids: make(map[uint16]bool)}
}

func (r *incomingQoS2Record) Add(id uint16)      { r.ids[id] = true }
func (r *incomingQoS2Record) Has(id uint16) bool { return r.ids[id] }
func (r *incomingQoS2Record) Remove(id uint16)   { delete(r.ids, id) }
func (r *incomingQoS2Record) Clear()             { r.ids = make(map[uint16]bool) }
func (r *incomingQoS2Record) Len() int           { return len(r.ids) }
