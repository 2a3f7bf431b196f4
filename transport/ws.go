package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 30 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// wsSocket is a Socket over a gorilla/websocket connection. ReadMessage
// blocks with no deadline-polling equivalent, so the reader is confined to
// its own goroutine; writes (including periodic pings) go through a
// second goroutine so Send never touches the connection directly.
type wsSocket struct {
	conn *websocket.Conn

	mu      sync.Mutex
	inbox   [][]byte
	status  Status
	lastErr error

	outCh chan []byte
	done  chan struct{}
	wg    sync.WaitGroup
}

// DialWS opens a websocket socket to url.
func DialWS(url string, timeout time.Duration) (Socket, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, ErrWebSocketError
	}
	return newWSSocket(conn), nil
}

func newWSSocket(conn *websocket.Conn) *wsSocket {
	w := &wsSocket{
		conn:   conn,
		status: StatusOpen,
		outCh:  make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	conn.SetReadLimit(tcpMaxFrame)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	w.wg.Add(2)
	go w.readLoop()
	go w.writeLoop()
	return w
}

func (w *wsSocket) Update() (Status, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status, w.lastErr
}

func (w *wsSocket) Send(payload []byte) error {
	w.mu.Lock()
	closed := w.status == StatusClosed
	w.mu.Unlock()
	if closed {
		return ErrConnectionClosed
	}

	select {
	case w.outCh <- payload:
		return nil
	case <-w.done:
		return ErrConnectionClosed
	}
}

func (w *wsSocket) Recv() ([]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.inbox) == 0 {
		return nil, false
	}
	msg := w.inbox[0]
	w.inbox = w.inbox[1:]
	return msg, true
}

func (w *wsSocket) Close() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	err := w.conn.Close()
	w.wg.Wait()
	w.setClosed(nil)
	return err
}

func (w *wsSocket) setClosed(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status == StatusClosed {
		return
	}
	w.status = StatusClosed
	if err != nil {
		w.lastErr = err
	}
}

func (w *wsSocket) readLoop() {
	defer w.wg.Done()
	_ = w.conn.SetReadDeadline(time.Now().Add(wsPongWait))

	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			switch {
			case websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure):
				w.setClosed(ErrConnectionClosed)
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure):
				w.setClosed(ErrWebSocketError)
			default:
				w.setClosed(ErrConnectBreak)
			}
			return
		}
		w.mu.Lock()
		w.inbox = append(w.inbox, data)
		w.mu.Unlock()
	}
}

func (w *wsSocket) writeLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-w.outCh:
			_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := w.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				w.setClosed(ErrWebSocketError)
				return
			}
		case <-ticker.C:
			_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				w.setClosed(ErrWebSocketError)
				return
			}
		case <-w.done:
			return
		}
	}
}
