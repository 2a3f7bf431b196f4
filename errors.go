package sconn

import "errors"

var (
	// ErrClosed is returned by Call and Invoke, and by the internal send
	// path, once the session is in close or a terminal reconnect error state.
	ErrClosed = errors.New("sconn: session closed")

	// ErrReconnectRefused mirrors the reconnect_error terminal state: the
	// server rejected the reconnect attempt outright.
	ErrReconnectRefused = errors.New("sconn: server refused reconnect")
	// ErrReconnectOutOfSync mirrors reconnect_match_error: the server
	// claims to have received more bytes than the client ever sent.
	ErrReconnectOutOfSync = errors.New("sconn: server ahead of client byte count")
	// ErrReconnectCacheMiss mirrors reconnect_cache_error: retransmission
	// needs bytes the replay cache already evicted.
	ErrReconnectCacheMiss = errors.New("sconn: replay cache cannot cover retransmit")

	// ErrNotConnecting is returned by Reconnect when the session is not in
	// a state reconnect can be attempted from.
	ErrNotConnecting = errors.New("sconn: reconnect only valid from forward or reconnect")
	// ErrBadHandshakeFrame is returned when a newconnect or reconnect reply
	// does not parse as the expected newline-delimited text.
	ErrBadHandshakeFrame = errors.New("sconn: malformed handshake frame")

	// ErrDuplicateHandler is returned by Register for a name already bound.
	ErrDuplicateHandler = errors.New("sconn: handler already registered")
	// ErrUnknownProtocol marks lastErr when dispatch sees a package header
	// type tag the schema does not declare. The frame is still dropped,
	// not fatal to the session.
	ErrUnknownProtocol = errors.New("sconn: unknown protocol tag")
	// ErrNoSuchProtocol is returned by Call/Invoke for an unregistered name.
	ErrNoSuchProtocol = errors.New("sconn: no such protocol")
	// ErrUnmatchedSession marks lastErr when a response's session id has
	// no pending caller. The frame is still dropped, not fatal.
	ErrUnmatchedSession = errors.New("sconn: response session id has no pending call")
)
