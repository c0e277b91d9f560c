// Package sequencer tags asynchronous requests so that only the response to
// the most recent request of a slot is applied.
package sequencer

import (
	"sync"
	"sync/atomic"
)

// Token identifies one issued request within its slot.
type Token uint64

type slot struct {
	latest atomic.Uint64
	apply  sync.Mutex
}

// Sequencer keeps one monotonically increasing counter per slot.
// Slots are independent. The zero value is ready to use.
type Sequencer struct {
	mu    sync.Mutex
	slots map[string]*slot
}

func New() *Sequencer {
	return &Sequencer{slots: make(map[string]*slot)}
}

func (s *Sequencer) slot(name string) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slots == nil {
		s.slots = make(map[string]*slot)
	}
	sl, ok := s.slots[name]
	if !ok {
		sl = &slot{}
		s.slots[name] = sl
	}
	return sl
}

// Begin starts a new request in the slot and returns its token. Every token
// issued earlier in the same slot becomes stale.
func (s *Sequencer) Begin(name string) Token {
	return Token(s.slot(name).latest.Add(1))
}

// IsCurrent reports whether tok is the latest token issued in the slot.
func (s *Sequencer) IsCurrent(name string, tok Token) bool {
	return Token(s.slot(name).latest.Load()) == tok
}

// Apply runs fn only if tok is current when fn starts, and reports whether
// fn ran. Applies in one slot are serialized. fn may call Begin or IsCurrent
// on the same slot, but must not call Apply on it.
func (s *Sequencer) Apply(name string, tok Token, fn func()) bool {
	sl := s.slot(name)
	sl.apply.Lock()
	defer sl.apply.Unlock()

	if Token(sl.latest.Load()) != tok {
		return false
	}
	fn()
	return true
}
