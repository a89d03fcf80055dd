package domain

import (
	"math"
	"testing"
	"time"
)

func TestImpermanentLossPct(t *testing.T) {
	if got := ImpermanentLossPct(1); math.Abs(got) > 1e-9 {
		t.Errorf("ratio 1: IL = %v, want 0", got)
	}
	// A 4x move loses 20% versus holding.
	if got := ImpermanentLossPct(4); math.Abs(got-20) > 1e-9 {
		t.Errorf("ratio 4: IL = %v, want 20", got)
	}
}

func TestPositionToggled(t *testing.T) {
	now := time.Now()
	p := Position{Status: PositionActive}
	p = p.Toggled(now)
	if p.Status != PositionPaused {
		t.Fatalf("status = %s, want paused", p.Status)
	}
	if p = p.Toggled(now); p.Status != PositionActive {
		t.Fatalf("status = %s, want active", p.Status)
	}
}

func TestEstimateAPY(t *testing.T) {
	got := EstimateAPY(10, 1000, 365*24*time.Hour)
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("APY = %v, want 1", got)
	}
	if EstimateAPY(10, 0, time.Hour) != 0 {
		t.Error("zero liquidity should give 0 APY")
	}
}
