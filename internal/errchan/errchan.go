// Package errchan holds the last-call-wins error slot read after a failing
// boundary call.
package errchan

import (
	"math"
	"sync"
)

// Sentinel is returned by count- and status-returning calls on failure.
const Sentinel int64 = -1

// StatusOK and StatusFailed are the status codes of registry calls.
const (
	StatusOK     int32 = 0
	StatusFailed int32 = -1
)

const unknownError = "unknown error"

// NaN is the failure value of scalar-returning calls.
func NaN() float64 { return math.NaN() }

// IsFailure reports whether a scalar result carries the failure sentinel.
func IsFailure(v float64) bool { return math.IsNaN(v) }

// Slot stores the most recent error message. There is no history: each Set
// replaces the previous message. A successful call is not required to clear
// the slot, so callers must check the return code of the call they diagnose
// before reading it.
type Slot struct {
	mu  sync.Mutex
	msg string
	set bool
}

// Set records msg as the last error. An empty message is stored as
// "unknown error" so a failing call never leaves an empty diagnostic.
func (s *Slot) Set(msg string) {
	if msg == "" {
		msg = unknownError
	}
	s.mu.Lock()
	s.msg = msg
	s.set = true
	s.mu.Unlock()
}

// SetErr records err's message. A nil error records "unknown error".
func (s *Slot) SetErr(err error) {
	if err == nil {
		s.Set("")
		return
	}
	s.Set(err.Error())
}

// Clear empties the slot.
func (s *Slot) Clear() {
	s.mu.Lock()
	s.msg = ""
	s.set = false
	s.mu.Unlock()
}

// Last returns the last recorded message and whether one is present.
func (s *Slot) Last() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msg, s.set
}

// Message returns the last message, or "unknown error" when none is present.
// It is meant for composing user-facing errors after a failed call.
func (s *Slot) Message() string {
	if msg, ok := s.Last(); ok {
		return msg
	}
	return unknownError
}
