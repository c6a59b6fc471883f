package game

import "testing"

func TestArrivalOrderingAdmitsEverything(t *testing.T) {
	g := NewSnapshotGate(OrderingArrival)
	times := []int64{100, 50, 100, 0, 200, 1}
	for _, ts := range times {
		if !g.Admit(1, ts) {
			t.Fatalf("arrival ordering rejected serverTime %d", ts)
		}
	}
}

func TestRejectStaleDropsOldSnapshots(t *testing.T) {
	g := NewSnapshotGate(OrderingRejectStale)
	if !g.Admit(1, 100) {
		t.Fatal("first snapshot rejected")
	}
	if g.Admit(1, 100) {
		t.Fatal("duplicate server time admitted")
	}
	if g.Admit(1, 50) {
		t.Fatal("stale snapshot admitted")
	}
	if !g.Admit(1, 150) {
		t.Fatal("newer snapshot rejected")
	}
}

func TestRejectStaleAdmitsUntimestampedSnapshots(t *testing.T) {
	g := NewSnapshotGate(OrderingRejectStale)
	g.Admit(1, 100)
	// No server time on the wire means no ordering signal: admit.
	if !g.Admit(1, 0) {
		t.Fatal("untimestamped snapshot rejected")
	}
}

func TestRejectStaleTracksEntitiesIndependently(t *testing.T) {
	g := NewSnapshotGate(OrderingRejectStale)
	g.Admit(1, 100)
	if !g.Admit(2, 50) {
		t.Fatal("entity 2 rejected against entity 1's watermark")
	}
}

func TestForgetResetsWatermark(t *testing.T) {
	g := NewSnapshotGate(OrderingRejectStale)
	g.Admit(1, 100)
	g.Forget(1)
	if !g.Admit(1, 10) {
		t.Fatal("snapshot rejected after Forget")
	}
}
