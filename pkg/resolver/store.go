package resolver

import (
	"github.com/perdasilva/depres/pkg/universe"
)

// Mark is a checkpoint in a Store's undo log.
type Mark int

type undoKind int

const (
	undoCreated undoKind = iota
	undoConstraintAdded
	undoDecisionChanged
)

type undo struct {
	kind undoKind
	key  Key

	candidate *universe.Candidate
	status    Status
	reason    string
}

// Store holds every Resolution of one resolve attempt. All mutations are
// logged so that RollbackTo can restore any earlier Mark.
type Store struct {
	resolutions map[Key]*Resolution
	order       []Key
	log         []undo
}

func NewStore() *Store {
	return &Store{
		resolutions: make(map[Key]*Resolution),
	}
}

// Get returns the resolution for key, or nil.
func (s *Store) Get(key Key) *Resolution {
	return s.resolutions[key]
}

// GetOrCreate returns the resolution for key, creating an Unresolved one
// on first use.
func (s *Store) GetOrCreate(key Key) *Resolution {
	if r, ok := s.resolutions[key]; ok {
		return r
	}
	r := &Resolution{Key: key, Status: StatusUnresolved}
	s.resolutions[key] = r
	s.order = append(s.order, key)
	s.log = append(s.log, undo{kind: undoCreated, key: key})
	return r
}

// AddConstraint appends c to the resolution for key, creating it if
// needed. A Decided resolution whose candidate does not satisfy c becomes
// Conflicted. It returns false exactly when that happens.
func (s *Store) AddConstraint(key Key, c *Constraint) bool {
	r := s.GetOrCreate(key)
	r.Constraints = append(r.Constraints, c)
	s.log = append(s.log, undo{kind: undoConstraintAdded, key: key})

	if r.Status != StatusDecided || universe.Matches(c.Atom, r.Candidate) {
		return true
	}
	s.setState(r, r.Candidate, StatusConflicted, "")
	return false
}

// Decide chooses c for key.
func (s *Store) Decide(key Key, c *universe.Candidate) {
	s.setState(s.GetOrCreate(key), c, StatusDecided, "")
}

// Fail marks key as impossible to satisfy. Any chosen candidate is kept
// so that its dependents can be reported.
func (s *Store) Fail(key Key, reason string) {
	r := s.GetOrCreate(key)
	s.setState(r, r.Candidate, StatusFailed, reason)
}

func (s *Store) setState(r *Resolution, c *universe.Candidate, status Status, reason string) {
	s.log = append(s.log, undo{
		kind:      undoDecisionChanged,
		key:       r.Key,
		candidate: r.Candidate,
		status:    r.Status,
		reason:    r.Reason,
	})
	r.Candidate = c
	r.Status = status
	r.Reason = reason
}

// Mark returns a checkpoint for RollbackTo.
func (s *Store) Mark() Mark {
	return Mark(len(s.log))
}

// RollbackTo undoes every change made since m: constraints added after m
// are removed, earlier decisions and statuses are restored, and
// resolutions created after m disappear.
func (s *Store) RollbackTo(m Mark) {
	for len(s.log) > int(m) {
		u := s.log[len(s.log)-1]
		s.log = s.log[:len(s.log)-1]

		r := s.resolutions[u.key]
		switch u.kind {
		case undoCreated:
			delete(s.resolutions, u.key)
			s.order = s.order[:len(s.order)-1]
		case undoConstraintAdded:
			r.Constraints = r.Constraints[:len(r.Constraints)-1]
		case undoDecisionChanged:
			r.Candidate = u.candidate
			r.Status = u.status
			r.Reason = u.reason
		}
	}
}

// Resolutions returns every resolution in creation order.
func (s *Store) Resolutions() []*Resolution {
	out := make([]*Resolution, len(s.order))
	for i, key := range s.order {
		out[i] = s.resolutions[key]
	}
	return out
}

// ByName returns the resolutions for name in creation order.
func (s *Store) ByName(name string) []*Resolution {
	var out []*Resolution
	for _, key := range s.order {
		if key.Name == name {
			out = append(out, s.resolutions[key])
		}
	}
	return out
}

func (s *Store) Len() int {
	return len(s.order)
}
