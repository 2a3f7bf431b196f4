// Package sconn implements a resumable client session over an unreliable
// byte stream, layered with a sproto-based request/response multiplexer.
// A Session is driven by one goroutine calling Update on a tick; Call/Invoke
// may be used from other goroutines since their Promise is settled from that
// same tick loop.
package sconn

import (
	"fmt"
	"sync"
	"time"

	"github.com/sconn-client/sconn/internal/metrics"
	"github.com/sconn-client/sconn/internal/resumestate"
	"github.com/sconn-client/sconn/internal/sproto"
	"github.com/sconn-client/sconn/internal/xcrypto"
	"github.com/sconn-client/sconn/transport"
)

// UpdateResult is Update's structured outcome.
type UpdateResult struct {
	OK     bool
	Status transport.Status
	Err    error
}

// Handler answers one inbound request. A nil return with the protocol
// declaring a response means "no reply", otherwise its value is encoded
// against the protocol's response type.
type Handler func(args *sproto.Value) (*sproto.Value, error)

type pendingCall struct {
	protocol *sproto.Protocol
	promise  *Promise
}

// Session is a resumable SConn connection plus its request/response host.
type Session struct {
	mu sync.Mutex

	schema          *sproto.Schema
	packageTypeName string
	packageType     *sproto.Type

	sock transport.Socket

	state          State
	sessionID      uint32
	reconnectIndex uint32
	sentBytes      uint64
	recvBytes      uint64
	secret         []byte

	priv   *xcrypto.KeyPair
	target string
	flag   string

	replay  *replayCache
	pending *prehandshakeQueue

	nextCallID   uint32
	pendingCalls map[uint32]*pendingCall
	handlers     map[string]Handler

	reconnectCB func(ok bool)
	persistName string
	metrics     *metrics.Metrics

	lastErr error
}

// NewSession parses bundle and returns a session not yet connected to any
// transport — call Connect to start the handshake.
func NewSession(bundle []byte, opts ...Option) (*Session, error) {
	schema, err := sproto.ParseBundle(bundle)
	if err != nil {
		return nil, err
	}
	s := &Session{
		schema:          schema,
		packageTypeName: defaultPackageTypeName,
		state:           StateClose,
		replay:          newReplayCache(),
		pending:         newPrehandshakeQueue(),
		pendingCalls:    map[uint32]*pendingCall{},
		handlers:        map[string]Handler{},
	}
	for _, opt := range opts {
		opt(s)
	}
	pkgType, ok := schema.Type(s.packageTypeName)
	if !ok {
		return nil, fmt.Errorf("%w: no such package type %q", sproto.ErrUnknownTypeName, s.packageTypeName)
	}
	s.packageType = pkgType
	return s, nil
}

// Connect dials target. If persistName was configured and a prior run's
// resumable state is still on disk, it reconnects that session instead of
// starting a fresh newconnect handshake.
func (s *Session) Connect(target string, dialTimeout time.Duration, serverTarget, flag string) error {
	sock, err := transport.Dial(target, dialTimeout)
	if err != nil {
		return err
	}
	s.sock = sock
	s.target = serverTarget
	s.flag = flag

	if s.persistName != "" {
		saved, err := resumestate.Load(s.persistName)
		if err != nil {
			return err
		}
		if saved != nil {
			s.sessionID = saved.SessionID
			s.reconnectIndex = saved.ReconnectIndex
			s.sentBytes = saved.SentBytes
			s.recvBytes = saved.RecvBytes
			s.secret = saved.Secret
			s.reconnectIndex++
			s.setStateLocked(StateReconnect)
			if s.metrics != nil {
				s.metrics.ReconnectAttempts.Inc()
			}
			frame := buildReconnectFrame(s.sessionID, s.reconnectIndex, s.recvBytes, s.secret)
			return s.sock.Send(frame)
		}
	}

	priv, err := xcrypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	s.priv = priv
	s.setStateLocked(StateNewConnect)
	return s.sock.Send(buildNewconnectFrame(priv.Public(), s.target, s.flag))
}

// IsConnected reports whether the session can currently send and receive
// application traffic.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateForward
}

// State reports the session's current state machine node.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reconnect begins a reconnect handshake from forward or reconnect.
func (s *Session) Reconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateForward && s.state != StateReconnect {
		return ErrNotConnecting
	}
	s.reconnectIndex++
	s.setStateLocked(StateReconnect)
	if s.metrics != nil {
		s.metrics.ReconnectAttempts.Inc()
	}
	frame := buildReconnectFrame(s.sessionID, s.reconnectIndex, s.recvBytes, s.secret)
	return s.sock.Send(frame)
}

// Close tears the session down: drops queued sends and pending callers.
func (s *Session) Close() error {
	s.mu.Lock()
	s.setStateLocked(StateClose)
	s.replay.Reset()
	s.pending.Drain()
	calls := s.pendingCalls
	s.pendingCalls = map[uint32]*pendingCall{}
	sock := s.sock
	persistName := s.persistName
	s.mu.Unlock()

	for _, c := range calls {
		c.promise.reject(ErrClosed)
	}
	if persistName != "" {
		_ = resumestate.Clear(persistName)
	}
	if sock != nil {
		return sock.Close()
	}
	return nil
}

// Update pumps the transport once and, if it produced a frame, runs the
// current state's dispatch handler on exactly that one frame.
func (s *Session) Update() UpdateResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.terminal() || s.sock == nil {
		return UpdateResult{OK: false, Status: transport.StatusIdle, Err: s.lastErr}
	}

	status, err := s.sock.Update()
	if err != nil {
		s.lastErr = err
		if status == transport.StatusClosed {
			s.setStateLocked(StateClose)
		}
		return UpdateResult{OK: false, Status: status, Err: err}
	}

	if frame, ok := s.sock.Recv(); ok {
		if derr := s.dispatchInboundLocked(frame); derr != nil {
			s.lastErr = derr
			return UpdateResult{OK: false, Status: status, Err: derr}
		}
	}

	return UpdateResult{OK: true, Status: status}
}

// setStateLocked transitions the state machine and mirrors it into the
// optional metrics gauge.
func (s *Session) setStateLocked(state State) {
	s.state = state
	if s.metrics != nil {
		s.metrics.State.Set(float64(state))
	}
}

func (s *Session) dispatchInboundLocked(frame []byte) error {
	switch s.state {
	case StateNewConnect:
		return s.handleNewconnectReplyLocked(frame)
	case StateReconnect:
		return s.handleReconnectReplyLocked(frame)
	case StateForward:
		s.recvBytes += uint64(len(frame))
		if s.metrics != nil {
			s.metrics.BytesReceived.Add(float64(len(frame)))
		}
		return s.dispatchFrameLocked(frame)
	default:
		return nil // terminal states drop inbound frames
	}
}

func (s *Session) handleNewconnectReplyLocked(frame []byte) error {
	reply, err := parseNewconnectReply(frame)
	if err != nil {
		return err
	}
	s.sessionID = reply.sessionID
	s.secret = s.priv.SharedSecret(reply.serverPub)
	s.priv = nil
	s.setStateLocked(StateForward)
	return s.flushPendingLocked()
}

func (s *Session) handleReconnectReplyLocked(frame []byte) error {
	reply, err := parseReconnectReply(frame)
	if err != nil {
		return err
	}
	if reply.code != "200" {
		s.setStateLocked(StateReconnectError)
		s.lastErr = ErrReconnectRefused
		s.notifyReconnectLocked(false)
		if s.metrics != nil {
			s.metrics.ReconnectFailures.Inc()
		}
		return nil
	}
	if reply.serverRecv > s.sentBytes {
		s.setStateLocked(StateReconnectMatchError)
		s.lastErr = ErrReconnectOutOfSync
		s.notifyReconnectLocked(false)
		if s.metrics != nil {
			s.metrics.ReconnectFailures.Inc()
		}
		return nil
	}
	if reply.serverRecv < s.sentBytes {
		need := s.sentBytes - reply.serverRecv
		tail, ok := s.replay.GetFrames(int(need))
		if !ok {
			s.setStateLocked(StateReconnectCacheError)
			s.lastErr = ErrReconnectCacheMiss
			s.notifyReconnectLocked(false)
			if s.metrics != nil {
				s.metrics.ReconnectFailures.Inc()
			}
			return nil
		}
		// Resent one original Send call at a time, not concatenated into a
		// single new frame: the peer's transport unpacks one sproto package
		// per frame, and several replayed messages glommed into one frame
		// would no longer unpack as any of them.
		for _, frame := range tail {
			if err := s.sock.Send(frame); err != nil {
				return err
			}
			if s.metrics != nil {
				s.metrics.FramesSent.Inc()
			}
		}
	}
	s.setStateLocked(StateForward)
	s.notifyReconnectLocked(true)
	return s.flushPendingLocked()
}

// notifyReconnectLocked runs the caller's reconnect callback synchronously
// on the tick goroutine, matching the single-threaded cooperative model
// the rest of Update follows.
func (s *Session) notifyReconnectLocked(ok bool) {
	if s.reconnectCB != nil {
		s.reconnectCB(ok)
	}
}

// flushPendingLocked transmits every payload queued while the session was
// not yet in forward, through the ordinary forward send path.
func (s *Session) flushPendingLocked() error {
	for _, payload := range s.pending.Drain() {
		if err := s.sendLocked(payload); err != nil {
			return err
		}
	}
	if s.persistName != "" {
		_ = resumestate.Save(s.persistName, &resumestate.State{
			SessionID:      s.sessionID,
			ReconnectIndex: s.reconnectIndex,
			SentBytes:      s.sentBytes,
			RecvBytes:      s.recvBytes,
			Secret:         s.secret,
		})
	}
	return nil
}

// sendLocked is the transport-facing path every outbound application
// frame takes, branching on the current state.
func (s *Session) sendLocked(payload []byte) error {
	switch s.state {
	case StateNewConnect:
		s.pending.Push(payload)
		return nil
	case StateForward:
		if err := s.sock.Send(payload); err != nil {
			return err
		}
		s.sentBytes += uint64(len(payload))
		s.replay.Insert(payload)
		if s.metrics != nil {
			s.metrics.BytesSent.Add(float64(len(payload)))
			s.metrics.FramesSent.Inc()
		}
		return nil
	case StateReconnect:
		s.sentBytes += uint64(len(payload))
		s.replay.Insert(payload)
		return nil
	default:
		return ErrClosed
	}
}
