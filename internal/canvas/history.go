package canvas

import (
	"encoding/json"
	"time"
)

// ActionType names the atomic mutations the history records.
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
	ActionMove   ActionType = "move"
	ActionRotate ActionType = "rotate"
	ActionResize ActionType = "resize"
	ActionCopy   ActionType = "copy"
)

// Action is an immutable record of one mutation. Create, Delete and
// Copy carry the full element snapshot in Element so the element can be
// re-created from the action alone; the field-level mutations carry a
// previous/next patch pair instead.
type Action struct {
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Type      ActionType `json:"type"`
	ElementID string     `json:"elementId"`
	Previous  *Patch     `json:"previousState,omitempty"`
	Next      *Patch     `json:"newState,omitempty"`
	Element   Element    `json:"elementData,omitempty"`
}

// UnmarshalJSON restores the Element interface field through the kind
// discriminator, so snapshotted histories round-trip.
func (a *Action) UnmarshalJSON(data []byte) error {
	type wire struct {
		ID        string          `json:"id"`
		Timestamp time.Time       `json:"timestamp"`
		Type      ActionType      `json:"type"`
		ElementID string          `json:"elementId"`
		Previous  *Patch          `json:"previousState,omitempty"`
		Next      *Patch          `json:"newState,omitempty"`
		Element   json.RawMessage `json:"elementData,omitempty"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	a.ID = w.ID
	a.Timestamp = w.Timestamp
	a.Type = w.Type
	a.ElementID = w.ElementID
	a.Previous = w.Previous
	a.Next = w.Next
	a.Element = nil
	if len(w.Element) > 0 && string(w.Element) != "null" {
		el, err := UnmarshalElement(w.Element)
		if err != nil {
			return err
		}
		a.Element = el
	}
	return nil
}

// DefaultMaxActions is the history capacity used when none is given.
const DefaultMaxActions = 50

// History is a bounded linear undo/redo log. Current is the index of
// the most recently applied action, -1 meaning "before the first one".
// History is a value: every operation returns a new History and leaves
// its receiver untouched.
type History struct {
	Actions []Action `json:"actions"`
	Current int      `json:"currentIndex"`
	Max     int      `json:"maxActions"`
}

// NewHistory returns an empty history with the given capacity.
// A capacity <= 0 falls back to DefaultMaxActions.
func NewHistory(max int) History {
	if max <= 0 {
		max = DefaultMaxActions
	}
	return History{Current: -1, Max: max}
}

// Add assigns the action a fresh id and timestamp, discards any redo
// branch beyond Current, appends, and evicts the oldest entry when the
// capacity would be exceeded. The returned history's Current always
// points at the newly added action.
func (h History) Add(a Action) History {
	a.ID = NewID()
	a.Timestamp = time.Now()

	next := make([]Action, 0, h.Current+2)
	if h.Current >= 0 {
		next = append(next, h.Actions[:h.Current+1]...)
	}
	next = append(next, a)
	if len(next) > h.Max {
		next = next[len(next)-h.Max:]
	}
	return History{Actions: next, Current: len(next) - 1, Max: h.Max}
}

// CanUndo reports whether there is an applied action to undo.
func (h History) CanUndo() bool { return h.Current >= 0 }

// CanRedo reports whether there is an undone action to replay.
func (h History) CanRedo() bool { return h.Current < len(h.Actions)-1 }

// Undo steps the pointer back and returns the action the caller must
// apply in reverse. When nothing can be undone the history is returned
// unchanged with a nil action.
func (h History) Undo() (History, *Action) {
	if !h.CanUndo() {
		return h, nil
	}
	a := h.Actions[h.Current]
	h.Current--
	return h, &a
}

// Redo steps the pointer forward and returns the action the caller must
// apply forward. When nothing can be redone the history is returned
// unchanged with a nil action.
func (h History) Redo() (History, *Action) {
	if !h.CanRedo() {
		return h, nil
	}
	h.Current++
	a := h.Actions[h.Current]
	return h, &a
}

// ApplyAction replays one action onto an element snapshot and returns
// the resulting snapshot. isUndo replays the action in reverse. A
// missing element id is a silent no-op: history and element collection
// can legitimately diverge, so this never fails.
func ApplyAction(elements []Element, a Action, isUndo bool) []Element {
	switch a.Type {
	case ActionCreate, ActionCopy:
		if isUndo {
			return removeByID(elements, a.ElementID)
		}
		if a.Element == nil {
			return elements
		}
		return appendElement(elements, a.Element.Clone())
	case ActionDelete:
		if isUndo {
			if a.Element == nil {
				return elements
			}
			return appendElement(elements, a.Element.Clone())
		}
		return removeByID(elements, a.ElementID)
	case ActionUpdate, ActionMove, ActionRotate, ActionResize:
		p := a.Next
		if isUndo {
			p = a.Previous
		}
		if p == nil {
			return elements
		}
		return patchByID(elements, a.ElementID, *p)
	default:
		return elements
	}
}

func appendElement(elements []Element, el Element) []Element {
	out := make([]Element, 0, len(elements)+1)
	out = append(out, elements...)
	out = append(out, el)
	return out
}

func removeByID(elements []Element, id string) []Element {
	_, i := FindElement(elements, id)
	if i < 0 {
		return elements
	}
	out := make([]Element, 0, len(elements)-1)
	out = append(out, elements[:i]...)
	out = append(out, elements[i+1:]...)
	return out
}

func patchByID(elements []Element, id string, p Patch) []Element {
	_, i := FindElement(elements, id)
	if i < 0 {
		return elements
	}
	out := make([]Element, len(elements))
	copy(out, elements)
	patched := elements[i].Clone()
	patched.apply(p)
	out[i] = patched
	return out
}
