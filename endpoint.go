package mqttendpoint

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Endpoint is the public entry point to this package: a single-owner MQTT
// protocol endpoint driven by one internal goroutine. All exported methods
// are safe to call from any goroutine; they each post a request to the
// owning goroutine and block until it responds (or ctx is cancelled).
//
// An Endpoint outlives any single Transport: Close only tears down the
// current transport, and Attach can be called again afterward to reconnect
// on a fresh one without losing session state (unless the broker or a
// clean-start CONNECT discarded it).
type Endpoint struct {
	cfg  *Config
	core *endpointCore

	transportMu sync.Mutex
	transport   Transport

	reqCh   chan request
	eventCh chan Event

	undeliveredMu sync.Mutex
	undelivered   *Packet

	recvWaiterMu sync.Mutex
	recvWaiter   *recvWaiter

	// pendingPublishes holds reqSend requests for QoS>0 PUBLISHes that
	// blocked on flow control, in send order. They complete later, once a
	// PUBACK/PUBCOMP frees quota (drainPendingPublishes) or the transport
	// closes out from under them (failPendingPublishes) — never here.
	pendingPublishes []request

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs an Endpoint and starts its owning goroutine. Call Attach
// before Send to give it a Transport to drive.
func New(cfg *Config) *Endpoint {
	e := &Endpoint{
		cfg:     cfg,
		core:    newEndpointCore(cfg),
		reqCh:   make(chan request, 64),
		eventCh: make(chan Event, 256),
		stopCh:  make(chan struct{}),
	}
	go e.run()
	return e
}

// Attach connects transport and wires its callbacks to post events onto
// this endpoint's queue. Any previously attached transport is left alone;
// call Close first if one is still open.
func (e *Endpoint) Attach(ctx context.Context, transport Transport) error {
	transport.OnConnected(func() {
		e.postEvent(TransportConnectedEvent{})
	})
	transport.OnMessage(func(data []byte) {
		e.postEvent(BytesReceivedEvent{Data: data})
	})
	transport.OnError(func(err error) {
		e.core.log.Warn("transport error", LogFields{LogFieldError: err.Error()})
	})
	transport.OnClosed(func(err error) {
		e.postEvent(TransportClosedEvent{Err: err})
	})

	if err := transport.Connect(ctx); err != nil {
		return err
	}
	e.transportMu.Lock()
	e.transport = transport
	e.transportMu.Unlock()
	return nil
}

func (e *Endpoint) postEvent(ev Event) {
	select {
	case e.eventCh <- ev:
	case <-e.stopCh:
	}
}

// run is the endpoint's single owning goroutine. It never touches a
// Transport method directly except through the actions returned by
// endpointCore.handleEvent, keeping all state mutation on one goroutine.
func (e *Endpoint) run() {
	for {
		select {
		case ev := <-e.eventCh:
			e.execute(e.core.handleEvent(ev))
			if _, closed := ev.(TransportClosedEvent); closed {
				e.failPendingPublishes(ErrNotConnected)
			} else {
				e.drainPendingPublishes()
			}
		case req := <-e.reqCh:
			e.handleRequest(req)
		case <-e.stopCh:
			return
		}
	}
}

// isFlowControlBlocked reports whether actions is exactly the single
// ErrorAction a blocked-on-quota PUBLISH produces, as opposed to any other
// failure (bad QoS, not connected, encode error) which should fail the
// caller immediately rather than queue.
func isFlowControlBlocked(actions []Action) bool {
	if len(actions) != 1 {
		return false
	}
	ea, ok := actions[0].(ErrorAction)
	return ok && errors.Is(ea.Err, ErrFlowControl)
}

// drainPendingPublishes retries queued QoS>0 PUBLISHes in send order,
// stopping at the first one still blocked on quota so ordering is
// preserved; called after every event, since PUBACK/PUBCOMP (which free
// quota) arrive as part of handling a BytesReceivedEvent.
func (e *Endpoint) drainPendingPublishes() {
	for len(e.pendingPublishes) > 0 {
		req := e.pendingPublishes[0]
		actions := e.core.handleEvent(SendPacketEvent{Packet: req.packet})
		if isFlowControlBlocked(actions) {
			return
		}
		e.pendingPublishes = e.pendingPublishes[1:]
		req.result <- requestResult{err: e.execute(actions)}
	}
}

// failPendingPublishes completes every queued send with err, used when the
// transport closes out from under them since they will never get a chance
// to free quota on this connection.
func (e *Endpoint) failPendingPublishes(err error) {
	for _, req := range e.pendingPublishes {
		req.result <- requestResult{err: err}
	}
	e.pendingPublishes = nil
}

func (e *Endpoint) handleRequest(req request) {
	switch req.kind {
	case reqSend:
		actions := e.core.handleEvent(SendPacketEvent{Packet: req.packet})
		if isFlowControlBlocked(actions) {
			e.pendingPublishes = append(e.pendingPublishes, req)
			return
		}
		req.result <- requestResult{err: e.execute(actions)}
	case reqRecv:
		e.undeliveredMu.Lock()
		if e.undelivered != nil {
			pkt := *e.undelivered
			e.undelivered = nil
			e.undeliveredMu.Unlock()
			req.recvWaiter.delivered <- pkt
			return
		}
		e.undeliveredMu.Unlock()
		e.recvWaiterMu.Lock()
		e.recvWaiter = req.recvWaiter
		e.recvWaiterMu.Unlock()
	case reqRecvCancel:
		e.recvWaiterMu.Lock()
		if e.recvWaiter == req.recvWaiter {
			e.recvWaiter = nil
		}
		e.recvWaiterMu.Unlock()
	case reqAcquirePacketID:
		id, err := e.core.session.ids.Acquire()
		req.result <- requestResult{packetID: id, err: err}
	case reqRegisterPacketID:
		err := e.core.session.ids.Register(req.packetID)
		req.result <- requestResult{err: err}
	case reqReleasePacketID:
		if _, stored := e.core.session.outbound.Get(req.packetID); stored || e.core.session.pubrels.Has(req.packetID) {
			req.result <- requestResult{err: ErrPacketIDInUse}
			return
		}
		err := e.core.session.ids.Release(req.packetID)
		req.result <- requestResult{err: err}
	case reqClose:
		e.transportMu.Lock()
		tr := e.transport
		e.transportMu.Unlock()
		var err error
		if tr != nil {
			err = tr.Close()
		}
		e.core.handleTransportClosed(nil)
		e.failPendingPublishes(ErrNotConnected)
		req.result <- requestResult{err: err}
	case reqState:
		req.result <- requestResult{phase: e.core.phase}
	case reqIsConnected:
		req.result <- requestResult{connected: e.core.phase == PhaseConnected}
	}
}

// execute runs each Action in order. It returns the first ErrorAction's
// error, if any, so Send-style callers can report failure synchronously;
// WriteBytesAction/ArmTimerAction/etc. failures are impossible by
// construction (they're plumbing, not fallible I/O beyond what Transport
// itself reports through OnError/OnClosed).
func (e *Endpoint) execute(actions []Action) error {
	var firstErr error
	for _, a := range actions {
		switch act := a.(type) {
		case WriteBytesAction:
			e.transportMu.Lock()
			tr := e.transport
			e.transportMu.Unlock()
			if tr == nil {
				if firstErr == nil {
					firstErr = ErrNotConnected
				}
				continue
			}
			if err := tr.Send(act.Data); err != nil && firstErr == nil {
				firstErr = err
			}
		case DeliverToCallerAction:
			e.deliver(act.Packet)
		case ArmTimerAction:
			e.armTimer(act.Kind, act.Duration, act.Generation)
		case CancelTimerAction:
			e.core.timers.Cancel(act.Kind)
		case CloseTransportAction:
			e.transportMu.Lock()
			tr := e.transport
			e.transportMu.Unlock()
			if tr != nil {
				_ = tr.Close()
			}
		case ErrorAction:
			if firstErr == nil {
				firstErr = act.Err
			}
			e.core.log.Error("endpoint error", LogFields{LogFieldError: act.Err.Error()})
		}
	}
	return firstErr
}

func (e *Endpoint) armTimer(kind TimerKind, d time.Duration, generation uint64) {
	time.AfterFunc(d, func() {
		e.postEvent(TimerFiredEvent{Kind: kind, Generation: generation})
	})
}

// deliver hands pkt to whichever Recv call is currently waiting, or stores
// it in the single undelivered-packet slot if none is (either because no
// Recv is outstanding, or because the last one raced a context
// cancellation against this delivery).
func (e *Endpoint) deliver(pkt Packet) {
	e.recvWaiterMu.Lock()
	w := e.recvWaiter
	e.recvWaiter = nil
	e.recvWaiterMu.Unlock()
	if w != nil {
		w.delivered <- pkt
		return
	}
	e.undeliveredMu.Lock()
	e.undelivered = &pkt
	e.undeliveredMu.Unlock()
}

// Send encodes and writes p, applying whatever session bookkeeping its
// type requires (packet id validation, topic alias substitution, QoS
// handshake tracking). It returns once the frame has been handed to the
// Transport, not once the broker acknowledges it; wait on Recv for that.
//
// A QoS>0 PUBLISH that would exceed the peer's Receive Maximum blocks
// instead of failing: it is queued in send order and actually written once
// a PUBACK or PUBCOMP frees a slot, so ctx governs how long the caller is
// willing to wait for that slot, not just for the write itself.
func (e *Endpoint) Send(ctx context.Context, p Packet) error {
	select {
	case <-e.stopCh:
		return ErrClosed
	default:
	}
	result := make(chan requestResult, 1)
	req := request{kind: reqSend, packet: p, result: result}
	select {
	case e.reqCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopCh:
		return ErrClosed
	}
	select {
	case res := <-result:
		return res.err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopCh:
		return ErrClosed
	}
}

// Recv blocks until the next packet the endpoint has not yet delivered is
// available, or ctx is cancelled. If a packet arrives concurrently with
// cancellation, it is retained (not dropped) for the next Recv call.
func (e *Endpoint) Recv(ctx context.Context) (Packet, error) {
	select {
	case <-e.stopCh:
		return nil, ErrClosed
	default:
	}
	w := newRecvWaiter()
	req := request{kind: reqRecv, recvWaiter: w}
	select {
	case e.reqCh <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.stopCh:
		return nil, ErrClosed
	}
	select {
	case pkt := <-w.delivered:
		return pkt, nil
	case <-ctx.Done():
		cancelReq := request{kind: reqRecvCancel, recvWaiter: w}
		select {
		case e.reqCh <- cancelReq:
		case <-e.stopCh:
		}
		// A delivery that raced the cancel may still land in w.delivered
		// after reqRecvCancel is processed (handleRequest's compare-and-clear
		// only stops *future* deliveries to w). Retain any such packet as
		// the endpoint's undelivered slot rather than losing it.
		select {
		case pkt := <-w.delivered:
			e.undeliveredMu.Lock()
			e.undelivered = &pkt
			e.undeliveredMu.Unlock()
		default:
		}
		return nil, ctx.Err()
	case <-e.stopCh:
		return nil, ErrClosed
	}
}

// AcquirePacketID allocates the next available packet identifier for a
// QoS>0 PUBLISH, SUBSCRIBE, or UNSUBSCRIBE the caller is about to send.
func (e *Endpoint) AcquirePacketID(ctx context.Context) (uint16, error) {
	res, err := e.doRequest(ctx, request{kind: reqAcquirePacketID})
	if err != nil {
		return 0, err
	}
	return res.packetID, res.err
}

// RegisterPacketID marks id as in use for a caller-chosen identifier, used
// when restoring stored publishes after a reconnect.
func (e *Endpoint) RegisterPacketID(ctx context.Context, id uint16) error {
	res, err := e.doRequest(ctx, request{kind: reqRegisterPacketID, packetID: id})
	if err != nil {
		return err
	}
	return res.err
}

// ReleasePacketID frees id. QoS handshakes and SUBACK/UNSUBACK release
// their ids automatically (see endpoint_state.go); this is for an id the
// caller acquired or registered but did not use. An id still held by a
// stored PUBLISH or PUBREL is not released: the call returns
// ErrPacketIDInUse.
func (e *Endpoint) ReleasePacketID(ctx context.Context, id uint16) error {
	res, err := e.doRequest(ctx, request{kind: reqReleasePacketID, packetID: id})
	if err != nil {
		return err
	}
	return res.err
}

// Close closes the current Transport without tearing down the Endpoint
// itself: the owning goroutine keeps running and session state is
// preserved, so a subsequent Attach + CONNECT can resume where this left
// off. Use Shutdown to stop the Endpoint permanently.
func (e *Endpoint) Close(ctx context.Context) error {
	res, err := e.doRequest(ctx, request{kind: reqClose})
	if err != nil {
		return err
	}
	return res.err
}

// Shutdown stops the endpoint's owning goroutine permanently. After
// Shutdown, all other methods return ErrClosed.
func (e *Endpoint) Shutdown() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// State reports the endpoint's current connection phase.
func (e *Endpoint) State(ctx context.Context) (ConnectionPhase, error) {
	res, err := e.doRequest(ctx, request{kind: reqState})
	if err != nil {
		return PhaseDisconnected, err
	}
	return res.phase, nil
}

// IsConnected reports whether the endpoint is in PhaseConnected.
func (e *Endpoint) IsConnected(ctx context.Context) (bool, error) {
	res, err := e.doRequest(ctx, request{kind: reqIsConnected})
	if err != nil {
		return false, err
	}
	return res.connected, nil
}

func (e *Endpoint) doRequest(ctx context.Context, req request) (requestResult, error) {
	select {
	case <-e.stopCh:
		return requestResult{}, ErrClosed
	default:
	}
	result := make(chan requestResult, 1)
	req.result = result
	select {
	case e.reqCh <- req:
	case <-ctx.Done():
		return requestResult{}, ctx.Err()
	case <-e.stopCh:
		return requestResult{}, ErrClosed
	}
	select {
	case res := <-result:
		return res, nil
	case <-ctx.Done():
		return requestResult{}, ctx.Err()
	case <-e.stopCh:
		return requestResult{}, ErrClosed
	}
}
