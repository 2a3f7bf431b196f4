package sconn

// replayCacheCap is the maximum number of transmitted frames retained for
// retransmission on reconnect.
const replayCacheCap = 100

// replayCache is a bounded ring of the most recently transmitted frames,
// in transmission order. It exists to answer "give me the last N bytes
// sent" during reconnect; callers confine it to the session's tick loop,
// so it needs no locking of its own.
type replayCache struct {
	frames   [][]byte
	totalLen int
}

func newReplayCache() *replayCache {
	return &replayCache{}
}

// Insert records one transmitted frame, evicting the oldest frame once the
// cache holds more than replayCacheCap.
func (r *replayCache) Insert(frame []byte) {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	r.frames = append(r.frames, cp)
	r.totalLen += len(cp)
	if len(r.frames) > replayCacheCap {
		evicted := r.frames[0]
		r.frames = r.frames[1:]
		r.totalLen -= len(evicted)
	}
}

// GetFrames returns the trailing n bytes of everything inserted so far, in
// original order, split by their original Insert boundaries rather than
// concatenated into one blob: retransmission resends each as its own
// transport send, since wrapping several back up in a single new frame
// would hand the peer one oversized package where it expects to unpack
// several. ok is false if fewer than n bytes are retained.
func (r *replayCache) GetFrames(n int) (frames [][]byte, ok bool) {
	if n <= 0 {
		return nil, true
	}
	if r.totalLen < n {
		return nil, false
	}

	covered := 0
	oldestIdx := -1
	for i := len(r.frames) - 1; i >= 0; i-- {
		covered += len(r.frames[i])
		if covered >= n {
			oldestIdx = i
			break
		}
	}

	drop := covered - n
	out := make([][]byte, 0, len(r.frames)-oldestIdx)
	out = append(out, r.frames[oldestIdx][drop:])
	out = append(out, r.frames[oldestIdx+1:]...)
	return out, true
}

// Reset discards every retained frame.
func (r *replayCache) Reset() {
	r.frames = nil
	r.totalLen = 0
}
