package sconn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sconn-client/sconn/internal/xcrypto"
)

// buildReconnectFrame composes the reconnect handshake payload:
// "<id>\n<reconnect_index>\n<recv_bytes>\n<base64(HMAC-MD5(secret, MD5(content)))>\n"
// where content is the first three fields including their trailing newline.
func buildReconnectFrame(sessionID, reconnectIndex uint32, recvBytes uint64, secret []byte) []byte {
	content := fmt.Sprintf("%d\n%d\n%d\n", sessionID, reconnectIndex, recvBytes)
	digest := xcrypto.ReconnectDigest(secret, []byte(content))
	return []byte(content + xcrypto.B64Encode(digest) + "\n")
}

// reconnectReply is the parsed server reply to a reconnect frame.
type reconnectReply struct {
	serverRecv uint64
	code       string
}

func parseReconnectReply(frame []byte) (*reconnectReply, error) {
	lines := strings.SplitN(string(frame), "\n", 3)
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: reconnect reply needs bytes_received and code lines", ErrBadHandshakeFrame)
	}
	n, err := strconv.ParseUint(lines[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: server_recv: %v", ErrBadHandshakeFrame, err)
	}
	return &reconnectReply{serverRecv: n, code: lines[1]}, nil
}
