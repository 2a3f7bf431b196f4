package sconn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sconn-client/sconn/internal/xcrypto"
)

// buildNewconnectFrame composes the newconnect handshake payload:
// "0\n<base64(client_pub256)>\n<target>\n<flag>".
func buildNewconnectFrame(pub []byte, target, flag string) []byte {
	return []byte(fmt.Sprintf("0\n%s\n%s\n%s", xcrypto.B64Encode(pub), target, flag))
}

// newconnectReply is the parsed server reply to a newconnect frame.
type newconnectReply struct {
	sessionID uint32
	serverPub []byte
}

func parseNewconnectReply(frame []byte) (*newconnectReply, error) {
	lines := strings.SplitN(string(frame), "\n", 3)
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: newconnect reply needs id and server pub lines", ErrBadHandshakeFrame)
	}
	id, err := strconv.ParseUint(lines[0], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: session id: %v", ErrBadHandshakeFrame, err)
	}
	serverPub, err := xcrypto.B64Decode(lines[1])
	if err != nil {
		return nil, fmt.Errorf("%w: server pub: %v", ErrBadHandshakeFrame, err)
	}
	return &newconnectReply{sessionID: uint32(id), serverPub: serverPub}, nil
}
