// Package resumestate persists the handful of fields an SConn needs to
// attempt a reconnect across a process restart: session id, byte counters,
// and the DH-derived shared secret. Without it, a killed and relaunched
// client has no choice but newconnect.
package resumestate

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

const envPath = "SCONN_RESUME_STATE_PATH"

// State is the persisted snapshot of one SConn's resumable fields.
type State struct {
	SessionID      uint32 `json:"session_id"`
	ReconnectIndex uint32 `json:"reconnect_index"`
	SentBytes      uint64 `json:"sent_bytes"`
	RecvBytes      uint64 `json:"recv_bytes"`
	Secret         []byte `json:"secret"`
}

// Load reads the resume state for name, or (nil, nil) if none is on disk
// yet — a fresh client has nothing to resume and must newconnect.
func Load(name string) (*State, error) {
	path, err := statePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save atomically overwrites the resume state for name.
func Save(name string, s *State) error {
	path, err := statePath(name)
	if err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data, 0o600)
}

// Clear removes any persisted resume state for name, e.g. after close().
func Clear(name string) error {
	path, err := statePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func statePath(name string) (string, error) {
	if v := os.Getenv(envPath); v != "" {
		return filepath.Join(v, name+".json"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sconn-client", "resume", name+".json"), nil
}

func writeFileAtomic(path string, contents []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, contents, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
