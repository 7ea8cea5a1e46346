package chain

import (
	"testing"
	"time"
)

func TestUpdateSlotAdvances(t *testing.T) {
	s := &State{}
	start := time.Now()

	if !s.UpdateSlot(3, start) {
		t.Fatalf("first update must apply")
	}
	if s.GetSlot() != 3 {
		t.Fatalf("slot = %d, want 3", s.GetSlot())
	}
	if !s.GetSlotStarted().Equal(start) {
		t.Fatalf("slot start not recorded")
	}
}

func TestUpdateSlotIgnoresStale(t *testing.T) {
	s := &State{}
	s.UpdateSlot(5, time.Now())

	if s.UpdateSlot(5, time.Now()) {
		t.Fatalf("same slot must not reapply")
	}
	if s.UpdateSlot(4, time.Now()) {
		t.Fatalf("older slot must not apply")
	}
	if s.GetSlot() != 5 {
		t.Fatalf("slot regressed to %d", s.GetSlot())
	}
}
