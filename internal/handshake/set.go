package handshake

import "github.com/MrEthical07/goBiometric/modality"

// Set tracks the readiness handshake for one attempt: cookies issued but not
// yet acknowledged live in waiting, acknowledged ones move to matched. The
// key union never grows after the prepare fan-out, and the two maps stay
// disjoint.
type Set struct {
	waiting map[modality.Modality]Cookie
	matched map[modality.Modality]Cookie
}

// NewSet returns an empty handshake set. The modality set is small and
// closed, so the maps are sized for it up front.
func NewSet() *Set {
	return &Set{
		waiting: make(map[modality.Modality]Cookie, len(modality.Order)),
		matched: make(map[modality.Modality]Cookie, len(modality.Order)),
	}
}

// Add registers a cookie issued for a single modality. Calling Add after the
// prepare fan-out has completed violates the never-grows invariant; callers
// only invoke it while building the pending attempt.
func (s *Set) Add(m modality.Modality, c Cookie) {
	s.waiting[m] = c
}

// Match moves the modality owning the cookie from waiting to matched and
// reports which modality it was. A cookie that is unknown or already matched
// returns false; duplicate acknowledgements are therefore no-ops.
func (s *Set) Match(c Cookie) (modality.Modality, bool) {
	for m, have := range s.waiting {
		if have == c {
			delete(s.waiting, m)
			s.matched[m] = c
			return m, true
		}
	}
	return modality.None, false
}

// Contains reports whether the cookie belongs to this set, waiting or
// matched. Used to route provider errors to the attempt that owns them.
func (s *Set) Contains(c Cookie) bool {
	for _, have := range s.waiting {
		if have == c {
			return true
		}
	}
	for _, have := range s.matched {
		if have == c {
			return true
		}
	}
	return false
}

// Done reports whether every issued cookie has been acknowledged.
func (s *Set) Done() bool {
	return len(s.waiting) == 0
}

// Remaining returns the number of outstanding acknowledgements.
func (s *Set) Remaining() int {
	return len(s.waiting)
}

// Matched iterates acknowledged pairs in priority order.
func (s *Set) Matched(fn func(m modality.Modality, c Cookie)) {
	for _, m := range modality.Order {
		if c, ok := s.matched[m]; ok {
			fn(m, c)
		}
	}
}

// Mask returns the OR-combined mask of every modality in the set.
func (s *Set) Mask() modality.Modality {
	var mask modality.Modality
	for m := range s.waiting {
		mask |= m
	}
	for m := range s.matched {
		mask |= m
	}
	return mask
}
