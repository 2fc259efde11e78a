package mqttendpoint

// sendQuota tracks how many more QoS 1/2 PUBLISH packets this endpoint may
// send before it must wait for a PUBACK/PUBCOMP, per the peer's advertised
// Receive Maximum. It is a signed counter rather than an unsigned one
// because a CONNACK that lowers Receive Maximum mid-session (on
// reconnect, against a smaller new value) can legitimately drive it
// negative relative to in-flight sends already outstanding from the prior
// connection; Available() simply reports 0 until acknowledgements bring it
// back above zero.
type sendQuota struct {
	limit     uint16
	available int32
}

func newSendQuota(limit uint16) *sendQuota {
	if limit == 0 {
		limit = 65535
	}
	return &sendQuota{limit: limit, available: int32(limit)}
}

func (q *sendQuota) Available() uint16 {
	if q.available <= 0 {
		return 0
	}
	if q.available > int32(q.limit) {
		return q.limit
	}
	return uint16(q.available)
}

func (q *sendQuota) CanSend() bool { return q.available > 0 }

// Acquire consumes one unit of quota for a QoS>0 send about to go out. It
// is the caller's responsibility to check CanSend first; Acquire does not
// refuse to go negative, matching Reset's ability to lower the limit below
// the current in-flight count.
func (q *sendQuota) Acquire() { q.available-- }

// Release returns one unit of quota, called when a PUBACK (QoS 1) or
// PUBCOMP (QoS 2) completes a send's handshake.
func (q *sendQuota) Release() {
	if q.available < int32(q.limit) {
		q.available++
	}
}

// Reset re-bases the quota to a new limit (e.g. the Receive Maximum carried
// by a fresh CONNACK after reconnecting), preserving how many sends are
// currently outstanding.
func (q *sendQuota) Reset(limit uint16) {
	if limit == 0 {
		limit = 65535
	}
	outstanding := int32(q.limit) - q.available
	q.limit = limit
	q.available = int32(limit) - outstanding
}

