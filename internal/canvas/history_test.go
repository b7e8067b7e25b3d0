package canvas

import "testing"

func textEl(id string, x, y, w, h float64, z int) *TextElement {
	return &TextElement{
		Base: Base{ID: id, X: x, Y: y, Width: w, Height: h, ZIndex: z},
		Text: "hello",
	}
}

func assetEl(id, assetID string, x, y, w, h float64, z int) *AssetElement {
	return &AssetElement{
		Base:    Base{ID: id, X: x, Y: y, Width: w, Height: h, ZIndex: z},
		AssetID: assetID,
	}
}

func moveAction(id string, fromX, fromY, toX, toY float64) Action {
	return Action{
		Type:      ActionMove,
		ElementID: id,
		Previous:  &Patch{X: Ptr(fromX), Y: Ptr(fromY)},
		Next:      &Patch{X: Ptr(toX), Y: Ptr(toY)},
	}
}

func TestHistory_CapacityEvictsOldest(t *testing.T) {
	h := NewHistory(2)
	h = h.Add(moveAction("a", 0, 0, 1, 1))
	h = h.Add(moveAction("b", 0, 0, 1, 1))
	h = h.Add(moveAction("c", 0, 0, 1, 1))

	if len(h.Actions) != 2 {
		t.Fatalf("Expected 2 actions, got %d", len(h.Actions))
	}
	if h.Actions[0].ElementID != "b" || h.Actions[1].ElementID != "c" {
		t.Errorf("Expected [b c], got [%s %s]", h.Actions[0].ElementID, h.Actions[1].ElementID)
	}
	if h.Current != 1 {
		t.Errorf("Expected currentIndex 1, got %d", h.Current)
	}
}

func TestHistory_BoundHoldsUnderManyPushes(t *testing.T) {
	h := NewHistory(0)
	if h.Max != DefaultMaxActions {
		t.Fatalf("Expected default capacity %d, got %d", DefaultMaxActions, h.Max)
	}
	for i := 0; i < 120; i++ {
		h = h.Add(moveAction(string(rune('a'+i%26)), 0, 0, float64(i), 0))
		if len(h.Actions) > h.Max {
			t.Fatalf("Capacity exceeded at push %d: %d actions", i, len(h.Actions))
		}
	}
	if len(h.Actions) != DefaultMaxActions {
		t.Errorf("Expected %d actions, got %d", DefaultMaxActions, len(h.Actions))
	}
	// Oldest surviving action is push 70 (FIFO eviction).
	if got := *h.Actions[0].Next.X; got != 70 {
		t.Errorf("Expected oldest surviving push to be 70, got %g", got)
	}
	if h.Current != DefaultMaxActions-1 {
		t.Errorf("Expected currentIndex %d, got %d", DefaultMaxActions-1, h.Current)
	}
}

func TestHistory_AddDoesNotMutateInput(t *testing.T) {
	h := NewHistory(5)
	h = h.Add(moveAction("a", 0, 0, 1, 1))
	h = h.Add(moveAction("b", 0, 0, 1, 1))
	snapshot, _ := h.Undo()

	// Pushing onto the undone value must not leak into the original.
	_ = snapshot.Add(moveAction("c", 0, 0, 1, 1))
	if len(h.Actions) != 2 || h.Actions[1].ElementID != "b" {
		t.Errorf("Original history mutated: %+v", h.Actions)
	}
}

func TestHistory_UndoRedoPointerWalk(t *testing.T) {
	h := NewHistory(10)
	if _, a := h.Undo(); a != nil {
		t.Error("Undo on empty history should be a no-op")
	}
	if _, a := h.Redo(); a != nil {
		t.Error("Redo on empty history should be a no-op")
	}

	h = h.Add(moveAction("a", 0, 0, 5, 5))
	if !h.CanUndo() || h.CanRedo() {
		t.Fatalf("Expected canUndo && !canRedo, got %v %v", h.CanUndo(), h.CanRedo())
	}

	h2, a := h.Undo()
	if a == nil || a.ElementID != "a" {
		t.Fatalf("Expected undo to return action for a, got %+v", a)
	}
	if h2.Current != -1 || !h2.CanRedo() {
		t.Errorf("Expected currentIndex -1 and canRedo, got %d %v", h2.Current, h2.CanRedo())
	}

	h3, a := h2.Redo()
	if a == nil || h3.Current != 0 {
		t.Errorf("Expected redo back to index 0, got %+v at %d", a, h3.Current)
	}
}

func TestHistory_PushAfterUndoPrunesRedoBranch(t *testing.T) {
	h := NewHistory(10)
	h = h.Add(moveAction("a", 0, 0, 1, 1))
	h = h.Add(moveAction("b", 0, 0, 1, 1))
	h, _ = h.Undo()
	h = h.Add(moveAction("c", 0, 0, 1, 1))

	if h.CanRedo() {
		t.Error("Expected canRedo false after push-over-undo")
	}
	if len(h.Actions) != 2 {
		t.Fatalf("Expected 2 actions after pruning, got %d", len(h.Actions))
	}
	if h.Actions[0].ElementID != "a" || h.Actions[1].ElementID != "c" {
		t.Errorf("Expected [a c], got [%s %s]", h.Actions[0].ElementID, h.Actions[1].ElementID)
	}
}

func TestApplyAction_MoveRoundTrip(t *testing.T) {
	elements := []Element{textEl("t1", 10, 20, 100, 40, 0)}
	a := moveAction("t1", 10, 20, 50, 60)

	forward := ApplyAction(elements, a, false)
	c := forward[0].Common()
	if c.X != 50 || c.Y != 60 {
		t.Fatalf("Expected (50,60), got (%g,%g)", c.X, c.Y)
	}

	back := ApplyAction(forward, a, true)
	c = back[0].Common()
	if c.X != 10 || c.Y != 20 {
		t.Errorf("Round trip broken: got (%g,%g)", c.X, c.Y)
	}

	// The input snapshot must be untouched.
	if orig := elements[0].Common(); orig.X != 10 || orig.Y != 20 {
		t.Errorf("Input snapshot mutated: (%g,%g)", orig.X, orig.Y)
	}
}

func TestApplyAction_CreateAndDelete(t *testing.T) {
	el := assetEl("a1", "logo", 0, 0, 50, 50, 0)
	create := Action{Type: ActionCreate, ElementID: "a1", Element: el}

	forward := ApplyAction(nil, create, false)
	if len(forward) != 1 || forward[0].Common().ID != "a1" {
		t.Fatalf("Create forward failed: %+v", forward)
	}
	if undone := ApplyAction(forward, create, true); len(undone) != 0 {
		t.Errorf("Create undo should remove the element, got %d left", len(undone))
	}

	del := Action{Type: ActionDelete, ElementID: "a1", Element: el.Clone()}
	afterDelete := ApplyAction(forward, del, false)
	if len(afterDelete) != 0 {
		t.Fatalf("Delete forward failed, %d left", len(afterDelete))
	}
	restored := ApplyAction(afterDelete, del, true)
	if len(restored) != 1 {
		t.Fatalf("Delete undo should restore the element")
	}
	if got := restored[0].(*AssetElement).AssetID; got != "logo" {
		t.Errorf("Expected restored assetId logo, got %s", got)
	}
}

func TestApplyAction_MissingIDIsSilentNoOp(t *testing.T) {
	elements := []Element{textEl("t1", 0, 0, 100, 40, 0)}

	out := ApplyAction(elements, moveAction("ghost", 0, 0, 9, 9), false)
	if len(out) != 1 || out[0].Common().X != 0 {
		t.Errorf("Missing id should change nothing, got %+v", out[0].Common())
	}
	out = ApplyAction(elements, Action{Type: ActionDelete, ElementID: "ghost"}, false)
	if len(out) != 1 {
		t.Errorf("Deleting a missing id should change nothing")
	}
}

func TestApplyAction_RotateAndResize(t *testing.T) {
	elements := []Element{assetEl("a1", "logo", 0, 0, 50, 50, 0)}

	rot := Action{
		Type:      ActionRotate,
		ElementID: "a1",
		Previous:  &Patch{Rotation: Ptr(0.0)},
		Next:      &Patch{Rotation: Ptr(45.0)},
	}
	out := ApplyAction(elements, rot, false)
	if out[0].Common().Rotation != 45 {
		t.Errorf("Expected rotation 45, got %g", out[0].Common().Rotation)
	}

	res := Action{
		Type:      ActionResize,
		ElementID: "a1",
		Previous:  &Patch{Width: Ptr(50.0), Height: Ptr(50.0)},
		Next:      &Patch{Width: Ptr(200.0), Height: Ptr(120.0)},
	}
	out = ApplyAction(out, res, false)
	c := out[0].Common()
	if c.Width != 200 || c.Height != 120 {
		t.Errorf("Expected 200x120, got %gx%g", c.Width, c.Height)
	}
	back := ApplyAction(out, res, true)
	c = back[0].Common()
	if c.Width != 50 || c.Height != 50 {
		t.Errorf("Resize round trip broken: %gx%g", c.Width, c.Height)
	}
}

func TestHistory_AddAssignsIDAndTimestamp(t *testing.T) {
	h := NewHistory(5)
	h = h.Add(moveAction("a", 0, 0, 1, 1))
	a := h.Actions[0]
	if a.ID == "" {
		t.Error("Expected a fresh action id")
	}
	if a.Timestamp.IsZero() {
		t.Error("Expected a timestamp")
	}
	h = h.Add(moveAction("b", 0, 0, 1, 1))
	if h.Actions[1].ID == a.ID {
		t.Error("Action ids must be unique")
	}
}
