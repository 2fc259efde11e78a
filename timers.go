package mqttendpoint

import "time"

// TimerKind identifies one of the four timers the endpoint drives through
// ArmTimer/CancelTimer actions. The caller (I/O core host) is responsible
// for actually scheduling wall-clock callbacks; this type only names which
// one fired.
type TimerKind int

const (
	// TimerPingreqSend fires periodically while connected, every
	// Config.PingreqSendInterval or else half the effective keep-alive, to
	// trigger sending a PINGREQ if nothing else was sent.
	TimerPingreqSend TimerKind = iota
	// TimerPingrespRecv fires once, Config.PingrespRecvTimeout (or else the
	// full keep-alive) after a PINGREQ was sent, if no PINGRESP (or any
	// other packet) arrived first.
	TimerPingrespRecv
	// TimerConnectionEstablish fires once if no CONNACK arrives within the
	// connect timeout.
	TimerConnectionEstablish
	// TimerShutdown fires once if the transport does not finish closing
	// within the shutdown timeout after CloseTransport was issued.
	TimerShutdown
)

func (k TimerKind) String() string {
	switch k {
	case TimerPingreqSend:
		return "pingreq-send"
	case TimerPingrespRecv:
		return "pingresp-recv"
	case TimerConnectionEstablish:
		return "connection-establish"
	case TimerShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// timerService tracks which timers are currently armed and assigns each
// arm a generation number. A TimerFired event carries the generation it
// was armed with; if the timer has since been cancelled (or re-armed,
// bumping the generation), the fire is stale and must be ignored. This
// mirrors how a client-side one-shot channel can still deliver after the
// corresponding cancel, since cancellation only prevents *future* fires
// from being actionable, not in-flight ones already queued.
type timerService struct {
	generation map[TimerKind]uint64
	duration   map[TimerKind]time.Duration
	armed      map[TimerKind]bool
}

func newTimerService() *timerService {
	return &timerService{
		generation: make(map[TimerKind]uint64),
		duration:   make(map[TimerKind]time.Duration),
		armed:      make(map[TimerKind]bool),
	}
}

// Arm records kind as armed with the given duration and returns the
// generation the caller must pass back on the eventual TimerFired action
// so IsCurrent can validate it. Arming an already-armed timer is
// idempotent in effect (the old generation is invalidated, a fresh one
// issued) rather than stacking multiple pending fires.
func (s *timerService) Arm(kind TimerKind, d time.Duration) uint64 {
	s.generation[kind]++
	s.duration[kind] = d
	s.armed[kind] = true
	return s.generation[kind]
}

// Cancel marks kind as not armed. A fire that was already in flight when
// Cancel runs will still carry the old generation and IsCurrent will
// reject it, so no special synchronization with the host scheduler is
// required.
func (s *timerService) Cancel(kind TimerKind) {
	s.armed[kind] = false
}

func (s *timerService) IsArmed(kind TimerKind) bool { return s.armed[kind] }

// IsCurrent reports whether a fired generation is still the live one for
// kind: the timer must still be armed, and the generation must match the
// most recent Arm call.
func (s *timerService) IsCurrent(kind TimerKind, generation uint64) bool {
	return s.armed[kind] && s.generation[kind] == generation
}

func (s *timerService) CancelAll() {
	for k := range s.armed {
		s.armed[k] = false
	}
}
