package sconn

import (
	"fmt"

	"github.com/sconn-client/sconn/internal/sproto"
)

// Register installs handler under name. A name may be registered once.
func (s *Session) Register(name string, handler Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handlers[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateHandler, name)
	}
	s.handlers[name] = handler
	return nil
}

// Call sends a request under a fresh session id and returns a Promise that
// settles when the matching response arrives, or when the session closes.
func (s *Session) Call(name string, args *sproto.Value) (*Promise, error) {
	s.mu.Lock()
	if s.state.terminal() {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	proto, ok := s.schema.Protocol(name)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrNoSuchProtocol, name)
	}

	sid := s.nextCallID
	s.nextCallID++
	promise := newPromise()

	frame, err := s.buildCallFrameLocked(proto, &sid, args)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.pendingCalls[sid] = &pendingCall{protocol: proto, promise: promise}
	err = s.sendLocked(frame)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return promise, nil
}

// Invoke sends a request with no session id and does not await a reply.
func (s *Session) Invoke(name string, args *sproto.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.terminal() {
		return ErrClosed
	}
	proto, ok := s.schema.Protocol(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoSuchProtocol, name)
	}
	frame, err := s.buildCallFrameLocked(proto, nil, args)
	if err != nil {
		return err
	}
	return s.sendLocked(frame)
}

func (s *Session) buildCallFrameLocked(proto *sproto.Protocol, session *uint32, args *sproto.Value) ([]byte, error) {
	tag := proto.Tag
	hdrBytes, err := sproto.Encode(s.packageType, buildHeader(&tag, session))
	if err != nil {
		return nil, err
	}
	var body []byte
	if proto.Request != nil {
		body, err = sproto.Encode(proto.Request, args)
		if err != nil {
			return nil, err
		}
	}
	return sproto.Pack(append(hdrBytes, body...))
}

// dispatchFrameLocked unpacks frame, reads the package header, and routes
// to either a registered handler (inbound request) or a pending call's
// promise (inbound response).
func (s *Session) dispatchFrameLocked(frame []byte) error {
	unpacked, err := sproto.Unpack(frame)
	if err != nil {
		return err
	}
	hdr, bodyOffset, err := parseHeader(s.packageType, unpacked)
	if err != nil {
		return err
	}
	body := unpacked[bodyOffset:]

	if tag, ok := headerTag(hdr); ok {
		s.dispatchRequestLocked(tag, hdr, body)
		return nil
	}
	s.dispatchResponseLocked(hdr, body)
	return nil
}

// dispatchRequestLocked handles an inbound request. Unknown protocol tags
// and unregistered handlers are not fatal to the session: the frame is
// dropped and, for an unknown tag, lastErr records why.
func (s *Session) dispatchRequestLocked(tag int, hdr *sproto.Value, body []byte) {
	proto, ok := s.schema.ProtocolByTag(tag)
	if !ok {
		s.lastErr = ErrUnknownProtocol
		return
	}
	handler, ok := s.handlers[proto.Name]
	if !ok {
		return
	}

	var args *sproto.Value
	if proto.Request != nil {
		v, _, err := sproto.Decode(proto.Request, body)
		if err != nil {
			return
		}
		args = v
	}

	result, err := handler(args)
	if err != nil || result == nil || proto.Response == nil {
		return
	}
	session, ok := headerSession(hdr)
	if !ok {
		return
	}

	respBody, err := sproto.Encode(proto.Response, result)
	if err != nil {
		return
	}
	hdrBytes, err := sproto.Encode(s.packageType, buildHeader(nil, &session))
	if err != nil {
		return
	}
	packed, err := sproto.Pack(append(hdrBytes, respBody...))
	if err != nil {
		return
	}
	_ = s.sendLocked(packed)
}

// dispatchResponseLocked matches an inbound response to its pending call
// by session id. An unmatched session id is dropped, with lastErr set to
// record it.
func (s *Session) dispatchResponseLocked(hdr *sproto.Value, body []byte) {
	session, ok := headerSession(hdr)
	if !ok {
		return
	}
	call, ok := s.pendingCalls[session]
	if !ok {
		s.lastErr = ErrUnmatchedSession
		return
	}
	delete(s.pendingCalls, session)

	if call.protocol.Response == nil {
		call.promise.resolve(nil)
		return
	}
	v, _, err := sproto.Decode(call.protocol.Response, body)
	if err != nil {
		call.promise.reject(err)
		return
	}
	call.promise.resolve(v)
}
