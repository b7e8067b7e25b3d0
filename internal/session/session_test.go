package session

import (
	"sync"
	"testing"

	"CreatorCanvas/internal/canvas"
)

func newAsset(assetID string) *canvas.AssetElement {
	return &canvas.AssetElement{
		Base:    canvas.Base{X: 10, Y: 10, Width: 100, Height: 80},
		AssetID: assetID,
	}
}

func TestSession_CreateMoveUndoRedo(t *testing.T) {
	s := New(10)
	el := s.CreateElement(newAsset("logo"))
	id := el.Common().ID
	if id == "" {
		t.Fatal("Create must assign an id")
	}

	if !s.MoveElement(id, 50, 60) {
		t.Fatal("Move of existing element failed")
	}
	got, _ := canvas.FindElement(s.Elements(), id)
	if got.Common().X != 50 || got.Common().Y != 60 {
		t.Fatalf("Expected (50,60), got (%g,%g)", got.Common().X, got.Common().Y)
	}

	if !s.Undo() {
		t.Fatal("Undo failed")
	}
	got, _ = canvas.FindElement(s.Elements(), id)
	if got.Common().X != 10 || got.Common().Y != 10 {
		t.Fatalf("Undo should restore (10,10), got (%g,%g)", got.Common().X, got.Common().Y)
	}

	if !s.Redo() {
		t.Fatal("Redo failed")
	}
	got, _ = canvas.FindElement(s.Elements(), id)
	if got.Common().X != 50 {
		t.Errorf("Redo should re-apply the move, got x=%g", got.Common().X)
	}

	// Undo both the move and the create.
	s.Undo()
	if !s.Undo() {
		t.Fatal("Undo of create failed")
	}
	if len(s.Elements()) != 0 {
		t.Errorf("Undoing create should leave an empty canvas, got %d", len(s.Elements()))
	}
	if s.Undo() {
		t.Error("Undo past the start must be a no-op")
	}
}

func TestSession_MutatingMissingIDRecordsNothing(t *testing.T) {
	s := New(10)
	if s.MoveElement("ghost", 1, 2) {
		t.Error("Moving a missing id should report false")
	}
	if s.DeleteElement("ghost") {
		t.Error("Deleting a missing id should report false")
	}
	if s.History().CanUndo() {
		t.Error("Failed mutations must not enter the history")
	}
}

func TestSession_DeleteUndoRestoresSnapshot(t *testing.T) {
	s := New(10)
	el := s.CreateElement(newAsset("logo"))
	id := el.Common().ID
	s.RotateElement(id, 30)

	if !s.DeleteElement(id) {
		t.Fatal("Delete failed")
	}
	if len(s.Elements()) != 0 {
		t.Fatal("Delete left the element behind")
	}
	s.Undo()
	got, _ := canvas.FindElement(s.Elements(), id)
	if got == nil {
		t.Fatal("Undo of delete should restore the element")
	}
	if got.Common().Rotation != 30 {
		t.Errorf("Restored element lost its rotation: %g", got.Common().Rotation)
	}
}

func TestSession_CopyOffsetsAndKeepsSource(t *testing.T) {
	s := New(10)
	el := s.CreateElement(newAsset("logo"))

	dup, ok := s.CopyElement(el.Common().ID)
	if !ok {
		t.Fatal("Copy failed")
	}
	if dup.Common().ID == el.Common().ID {
		t.Error("Copy must get a fresh id")
	}
	if dup.Common().X != el.Common().X+copyOffset {
		t.Errorf("Expected offset copy, got x=%g", dup.Common().X)
	}
	if len(s.Elements()) != 2 {
		t.Fatalf("Expected 2 elements, got %d", len(s.Elements()))
	}

	s.Undo()
	if len(s.Elements()) != 1 {
		t.Errorf("Undo of copy should remove only the duplicate, got %d", len(s.Elements()))
	}
}

func TestSession_OnActionFires(t *testing.T) {
	s := New(10)
	var seen []canvas.ActionType
	s.OnAction = func(a canvas.Action) { seen = append(seen, a.Type) }

	el := s.CreateElement(newAsset("logo"))
	s.ResizeElement(el.Common().ID, 30, 40)

	if len(seen) != 2 || seen[0] != canvas.ActionCreate || seen[1] != canvas.ActionResize {
		t.Errorf("Expected [create resize], got %v", seen)
	}
}

func TestSession_UpdatePatchRoundTrip(t *testing.T) {
	s := New(10)
	text := &canvas.TextElement{
		Base:  canvas.Base{Width: 100, Height: 40},
		Text:  "draft",
		Color: "#000000",
	}
	el := s.CreateElement(text)
	id := el.Common().ID

	ok := s.UpdateElement(id, canvas.Patch{
		Text:  canvas.Ptr("final"),
		Color: canvas.Ptr("#ff0000"),
	})
	if !ok {
		t.Fatal("Update failed")
	}
	got, _ := canvas.FindElement(s.Elements(), id)
	if tx := got.(*canvas.TextElement); tx.Text != "final" || tx.Color != "#ff0000" {
		t.Fatalf("Update not applied: %+v", tx)
	}

	s.Undo()
	got, _ = canvas.FindElement(s.Elements(), id)
	if tx := got.(*canvas.TextElement); tx.Text != "draft" || tx.Color != "#000000" {
		t.Errorf("Undo lost the previous field values: %+v", tx)
	}
}

func TestSession_SnapshotIsIsolated(t *testing.T) {
	s := New(10)
	el := s.CreateElement(newAsset("logo"))

	snap := s.Elements()
	snap[0].Common().X = 999

	got, _ := canvas.FindElement(s.Elements(), el.Common().ID)
	if got.Common().X == 999 {
		t.Error("Snapshot must not alias session state")
	}
}

// Mutations raced against deletes of the same element must either be
// rejected or record a coherent action: the previous-state patch is
// captured under the same lock as the recording, so a delete can never
// slip in between.
func TestSession_ConcurrentMutateAndDelete(t *testing.T) {
	s := New(0)
	el := s.CreateElement(newAsset("logo"))
	id := el.Common().ID

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.MoveElement(id, float64(n*100+j), float64(j))
				s.RotateElement(id, float64(j))
				s.ResizeElement(id, 40, 30)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 25; j++ {
			s.DeleteElement(id)
			s.Undo()
		}
	}()
	wg.Wait()

	h := s.History()
	if len(h.Actions) > h.Max {
		t.Fatalf("History exceeded its bound: %d > %d", len(h.Actions), h.Max)
	}
	for _, a := range h.Actions {
		switch a.Type {
		case canvas.ActionMove, canvas.ActionRotate, canvas.ActionResize:
			if a.Previous == nil || a.Next == nil {
				t.Fatalf("Recorded %s action missing its state pair", a.Type)
			}
		case canvas.ActionDelete:
			if a.Element == nil {
				t.Fatal("Recorded delete action missing its element snapshot")
			}
		}
	}
}

// OnAction callbacks run outside the session lock, so a callback that
// reads the session back must not deadlock.
func TestSession_OnActionMayReadSession(t *testing.T) {
	s := New(0)
	var seen int
	s.OnAction = func(canvas.Action) {
		seen++
		_ = s.Elements()
		_ = s.CanUndo()
	}
	el := s.CreateElement(newAsset("logo"))
	s.MoveElement(el.Common().ID, 5, 5)
	s.DeleteElement(el.Common().ID)
	if seen != 3 {
		t.Errorf("Expected 3 callbacks, got %d", seen)
	}
}
