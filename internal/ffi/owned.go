package ffi

import "sync"

// OwnedString is a string produced by the boundary. Its bytes belong to the
// boundary's allocator and go back only through Release.
type OwnedString struct {
	mu       sync.Mutex
	buf      *[]byte
	pool     *sync.Pool
	released bool
}

func (b *Boundary) own(data []byte) *OwnedString {
	bp := b.pool.Get().(*[]byte)
	*bp = append((*bp)[:0], data...)
	return &OwnedString{buf: bp, pool: b.pool}
}

// String copies the contents out. A released string reads as "".
func (s *OwnedString) String() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ""
	}
	return string(*s.buf)
}

func (s *OwnedString) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Release returns the bytes to the allocator. Releasing twice, or releasing
// nil, does nothing.
func (s *OwnedString) Release() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	clear(*s.buf)
	*s.buf = (*s.buf)[:0]
	s.pool.Put(s.buf)
	s.buf = nil
}
