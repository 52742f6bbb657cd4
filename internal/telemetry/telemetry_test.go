package telemetry

import (
	"testing"

	"github.com/google/uuid"
)

func TestComputeHealthThresholdTable(t *testing.T) {
	cases := []struct {
		ratio, cpu float64
		want       Health
	}{
		{0.10, 10, HealthGood},
		{0.50, 49.9, HealthGood},
		{0.51, 10, HealthOkay},
		{0.60, 69.9, HealthOkay},
		{0.61, 10, HealthStressed},
		{0.70, 84.9, HealthStressed},
		{0.71, 10, HealthOverload},
		{0.85, 94.9, HealthOverload},
		{0.86, 10, HealthCritical},
		{0.10, 96, HealthCritical},
	}
	for _, c := range cases {
		got := computeHealth(c.ratio, c.cpu)
		if got != c.want {
			t.Errorf("computeHealth(%v, %v) = %s, want %s", c.ratio, c.cpu, got, c.want)
		}
	}
}

func TestHealthString(t *testing.T) {
	if HealthGood.String() != "GOOD" || HealthCritical.String() != "CRITICAL" {
		t.Fatal("unexpected Health.String() values")
	}
}

func TestResponderGhostModeSuppressesSnapshot(t *testing.T) {
	r := NewResponder(uuid.New(), "1.0.0", nil, true)
	if !r.GhostMode() {
		t.Fatal("expected ghost mode to be reported")
	}
	_, ok := r.Snapshot()
	if ok {
		t.Fatal("expected ghost-mode Responder to suppress Snapshot")
	}
}

func TestResponderSnapshotPopulatesFields(t *testing.T) {
	id := uuid.New()
	stats := func() (int, int) { return 3, 100 }
	r := NewResponder(id, "9.9.9", stats, false)

	snap, ok := r.Snapshot()
	if !ok {
		t.Fatal("expected non-ghost Responder to produce a snapshot")
	}
	if snap.UUID != id {
		t.Fatalf("expected UUID %v, got %v", id, snap.UUID)
	}
	if snap.ClientVersion != "9.9.9" {
		t.Fatalf("expected client version 9.9.9, got %s", snap.ClientVersion)
	}
	if snap.BufferSize != 3 || snap.BufferCapacity != 100 {
		t.Fatalf("expected buffer stats 3/100, got %d/%d", snap.BufferSize, snap.BufferCapacity)
	}
	if snap.RuntimeName != "go" {
		t.Fatalf("expected runtime name go, got %s", snap.RuntimeName)
	}
	if snap.ProcessorCount <= 0 {
		t.Fatal("expected a positive processor count")
	}
}
