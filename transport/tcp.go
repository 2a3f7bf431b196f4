package transport

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sconn-client/sconn/internal/framebuf"
)

const (
	tcpReadDeadline  = 50 * time.Millisecond
	tcpWriteDeadline = 5 * time.Second
	tcpMaxFrame      = 1 << 24
)

// tcpSocket is a Socket over a raw net.Conn, framed with a 2-byte
// big-endian length prefix per frame. The reader uses the instant-poll
// idiom — a short SetReadDeadline treated as "nothing to do" rather than
// an error — so it can run its own goroutine while still reacting quickly
// to a caller-side Close.
type tcpSocket struct {
	conn net.Conn

	mu      sync.Mutex
	in      *framebuf.Buffer
	inbox   [][]byte
	status  Status
	lastErr error

	outCh chan []byte
	done  chan struct{}
	wg    sync.WaitGroup
}

// DialTCP opens a length-prefixed TCP socket to addr.
func DialTCP(addr string, timeout time.Duration) (Socket, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			return nil, ErrDialTimeout
		}
		return nil, err
	}
	return newTCPSocket(conn), nil
}

func newTCPSocket(conn net.Conn) *tcpSocket {
	t := &tcpSocket{
		conn:   conn,
		in:     framebuf.New(),
		status: StatusOpen,
		outCh:  make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	t.wg.Add(2)
	go t.readLoop()
	go t.writeLoop()
	return t
}

func (t *tcpSocket) Update() (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.lastErr
}

func (t *tcpSocket) Send(payload []byte) error {
	t.mu.Lock()
	closed := t.status == StatusClosed
	t.mu.Unlock()
	if closed {
		return ErrConnectionClosed
	}

	frame := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(frame, uint16(len(payload)))
	copy(frame[2:], payload)

	select {
	case t.outCh <- frame:
		return nil
	case <-t.done:
		return ErrConnectionClosed
	}
}

func (t *tcpSocket) Recv() ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.inbox) == 0 {
		return nil, false
	}
	msg := t.inbox[0]
	t.inbox = t.inbox[1:]
	return msg, true
}

func (t *tcpSocket) Close() error {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
	err := t.conn.Close()
	t.wg.Wait()
	t.setClosed(nil)
	return err
}

func (t *tcpSocket) setClosed(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusClosed {
		return
	}
	t.status = StatusClosed
	if err != nil {
		t.lastErr = err
	}
}

func (t *tcpSocket) readLoop() {
	defer t.wg.Done()

	tmp := make([]byte, 4096)
	for {
		select {
		case <-t.done:
			return
		default:
		}

		_ = t.conn.SetReadDeadline(time.Now().Add(tcpReadDeadline))
		n, err := t.conn.Read(tmp)
		if n > 0 {
			t.in.Push(tmp[:n])
			msgs := t.in.PopAllMsg(nil, 2, binary.BigEndian)
			if len(msgs) > 0 {
				t.mu.Lock()
				t.inbox = append(t.inbox, msgs...)
				t.mu.Unlock()
			}
		}
		if err != nil {
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				continue
			}
			if err == io.EOF {
				t.setClosed(ErrConnectionClosed)
			} else {
				t.setClosed(ErrConnectBreak)
			}
			return
		}
	}
}

func (t *tcpSocket) writeLoop() {
	defer t.wg.Done()

	for {
		select {
		case frame := <-t.outCh:
			if len(frame)-2 > tcpMaxFrame {
				t.setClosed(ErrConnectBreak)
				return
			}
			_ = t.conn.SetWriteDeadline(time.Now().Add(tcpWriteDeadline))
			if _, err := t.conn.Write(frame); err != nil {
				t.setClosed(ErrConnectBreak)
				return
			}
		case <-t.done:
			return
		}
	}
}
