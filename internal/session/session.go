// Package session owns the single mutable "current elements + current
// history" pair for one editing session. Every mutation goes through
// the session so it is mirrored 1:1 into the action history; undo and
// redo replay history entries back onto the element collection.
package session

import (
	"log"
	"sync"

	"CreatorCanvas/internal/canvas"
)

// Session serializes concurrent edits on one composition. The canvas
// package itself is pure values; this is the owned mutable cell at the
// call boundary.
type Session struct {
	mu       sync.RWMutex
	elements []canvas.Element
	history  canvas.History

	// OnAction, when set, is called after each accepted mutation with
	// the recorded action. Set it before the session is shared; the
	// live host uses it to broadcast. Called outside the lock.
	OnAction func(canvas.Action)
}

// New creates an empty session. maxActions <= 0 uses the default
// history capacity.
func New(maxActions int) *Session {
	return &Session{history: canvas.NewHistory(maxActions)}
}

// Elements returns a deep copy of the current snapshot.
func (s *Session) Elements() []canvas.Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return canvas.CloneElements(s.elements)
}

// History returns the current history value.
func (s *Session) History() canvas.History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history
}

func (s *Session) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanRedo()
}

// record threads an action through the history and applies it forward.
// Returns the stored action (with its assigned id and timestamp).
func (s *Session) record(a canvas.Action) canvas.Action {
	s.mu.Lock()
	stored := s.recordLocked(a)
	s.mu.Unlock()

	s.notify(stored)
	return stored
}

// recordLocked is record with the write lock already held, for callers
// that must keep a lookup and its recording in one critical section.
func (s *Session) recordLocked(a canvas.Action) canvas.Action {
	s.history = s.history.Add(a)
	stored := s.history.Actions[s.history.Current]
	s.elements = canvas.ApplyAction(s.elements, stored, false)
	return stored
}

func (s *Session) notify(a canvas.Action) {
	if s.OnAction != nil {
		s.OnAction(a)
	}
}

// CreateElement adds the element and records a create action. An empty
// id gets a fresh one assigned. Returns the element as stored.
func (s *Session) CreateElement(el canvas.Element) canvas.Element {
	el = el.Clone()
	if el.Common().ID == "" {
		el.Common().ID = canvas.NewID()
	}
	s.record(canvas.Action{
		Type:      canvas.ActionCreate,
		ElementID: el.Common().ID,
		Element:   el,
	})
	log.Printf("[SESSION] Created %s element %s", el.Kind(), el.Common().ID)
	return el
}

// UpdateElement applies a partial patch. Returns false when the id is
// unknown, in which case nothing is recorded.
func (s *Session) UpdateElement(id string, p canvas.Patch) bool {
	return s.mutate(canvas.ActionUpdate, id, p)
}

// MoveElement repositions an element's top-left corner.
func (s *Session) MoveElement(id string, x, y float64) bool {
	return s.mutate(canvas.ActionMove, id, canvas.Patch{X: canvas.Ptr(x), Y: canvas.Ptr(y)})
}

// ResizeElement changes an element's envelope size.
func (s *Session) ResizeElement(id string, width, height float64) bool {
	return s.mutate(canvas.ActionResize, id, canvas.Patch{Width: canvas.Ptr(width), Height: canvas.Ptr(height)})
}

// RotateElement sets an element's rotation in degrees clockwise.
func (s *Session) RotateElement(id string, degrees float64) bool {
	return s.mutate(canvas.ActionRotate, id, canvas.Patch{Rotation: canvas.Ptr(degrees)})
}

// mutate keeps the lookup and the recording in one critical section so
// a concurrent delete cannot invalidate the captured previous state.
func (s *Session) mutate(t canvas.ActionType, id string, p canvas.Patch) bool {
	s.mu.Lock()
	el, _ := canvas.FindElement(s.elements, id)
	if el == nil {
		s.mu.Unlock()
		return false
	}
	prev := canvas.PreviousPatch(el, p)
	stored := s.recordLocked(canvas.Action{
		Type:      t,
		ElementID: id,
		Previous:  &prev,
		Next:      &p,
	})
	s.mu.Unlock()

	s.notify(stored)
	return true
}

// DeleteElement removes an element, keeping its full snapshot in the
// action so undo can re-create it.
func (s *Session) DeleteElement(id string) bool {
	s.mu.Lock()
	el, _ := canvas.FindElement(s.elements, id)
	if el == nil {
		s.mu.Unlock()
		return false
	}
	stored := s.recordLocked(canvas.Action{
		Type:      canvas.ActionDelete,
		ElementID: id,
		Element:   el.Clone(),
	})
	s.mu.Unlock()

	s.notify(stored)
	log.Printf("[SESSION] Deleted element %s", id)
	return true
}

// Copy offset for duplicated elements, in canvas units.
const copyOffset = 16

// CopyElement duplicates an element with a fresh id at a small offset.
func (s *Session) CopyElement(id string) (canvas.Element, bool) {
	s.mu.Lock()
	el, _ := canvas.FindElement(s.elements, id)
	if el == nil {
		s.mu.Unlock()
		return nil, false
	}
	dup := el.Clone()
	c := dup.Common()
	c.ID = canvas.NewID()
	c.X += copyOffset
	c.Y += copyOffset
	stored := s.recordLocked(canvas.Action{
		Type:      canvas.ActionCopy,
		ElementID: c.ID,
		Element:   dup,
	})
	s.mu.Unlock()

	s.notify(stored)
	return dup.Clone(), true
}

// Undo reverses the most recent action. Returns false when there is
// nothing to undo.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, a := s.history.Undo()
	if a == nil {
		return false
	}
	s.history = h
	s.elements = canvas.ApplyAction(s.elements, *a, true)
	return true
}

// Redo replays the most recently undone action. Returns false when
// there is nothing to redo.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, a := s.history.Redo()
	if a == nil {
		return false
	}
	s.history = h
	s.elements = canvas.ApplyAction(s.elements, *a, false)
	return true
}

// Reset replaces the session contents with a loaded snapshot and a
// fresh history. Used when loading a project slot.
func (s *Session) Reset(elements []canvas.Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements = canvas.CloneElements(elements)
	s.history = canvas.NewHistory(s.history.Max)
	log.Printf("[SESSION] Reset with %d element(s)", len(elements))
}
