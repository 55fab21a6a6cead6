package gesture

import "image"

// Listener receives pointer events captured at document scope.
type Listener interface {
	PointerMove(p image.Point)
	PointerUp(p image.Point)
	// PointerLost is called when another gesture takes the scope over.
	PointerLost()
}

// Scope is document-wide pointer capture. Pointer-move and pointer-up are
// delivered here rather than to the canvas, so a gesture keeps tracking the
// pointer after it leaves the canvas and always sees the release.
//
// Only one listener holds the scope. Acquiring it again replaces the
// previous holder.
type Scope struct {
	holder Listener
	token  uint64
}

// Acquire makes l the current holder. The returned release function is safe
// to call more than once and is a no-op after another Acquire.
func (s *Scope) Acquire(l Listener) (release func()) {
	if s.holder != nil {
		prev := s.holder
		s.holder = nil
		prev.PointerLost()
	}
	s.token++
	token := s.token
	s.holder = l
	return func() {
		if s.token == token {
			s.holder = nil
		}
	}
}

// Held reports whether a gesture currently owns the pointer.
func (s *Scope) Held() bool {
	return s.holder != nil
}

// Move forwards a pointer-move to the holder, if any.
func (s *Scope) Move(p image.Point) {
	if s.holder != nil {
		s.holder.PointerMove(p)
	}
}

// Up forwards a pointer-up to the holder. The holder must release the
// scope; if it does not, the scope is cleared anyway.
func (s *Scope) Up(p image.Point) {
	h := s.holder
	if h == nil {
		return
	}
	h.PointerUp(p)
	s.holder = nil
}

// Cancel takes the scope away from the holder, which is told via PointerLost.
func (s *Scope) Cancel() {
	h := s.holder
	if h == nil {
		return
	}
	s.holder = nil
	h.PointerLost()
}
