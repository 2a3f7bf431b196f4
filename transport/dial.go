package transport

import (
	"strings"
	"time"
)

// Dial opens a Socket to target, choosing the websocket or raw-TCP
// implementation by URL scheme. "ws://" and "wss://" dial a websocket
// socket; anything else is treated as a host:port TCP address.
func Dial(target string, timeout time.Duration) (Socket, error) {
	if strings.HasPrefix(target, "ws://") || strings.HasPrefix(target, "wss://") {
		return DialWS(target, timeout)
	}
	return DialTCP(target, timeout)
}
