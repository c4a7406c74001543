package transport

import "testing"

func TestSetMasterDerivesBPM(t *testing.T) {
	var s State
	s.SetMaster(2.0, 0)
	snap := s.Get()
	if !snap.IsSet {
		t.Fatal("expected IsSet after SetMaster")
	}
	if snap.BPM != 120 {
		t.Errorf("BPM = %d, want 120", snap.BPM)
	}
}

func TestClearResetsState(t *testing.T) {
	var s State
	s.SetMaster(1.5, 3.0)
	s.Clear()
	snap := s.Get()
	if snap.IsSet || snap.Duration != 0 || snap.BPM != 0 {
		t.Errorf("Clear left state %+v, want zero value", snap)
	}
}

func TestClearIsReusable(t *testing.T) {
	var s State
	s.SetMaster(1.0, 0)
	s.Clear()
	s.SetMaster(2.0, 1.0)
	snap := s.Get()
	if !snap.IsSet || snap.Duration != 2.0 {
		t.Errorf("state after re-set = %+v", snap)
	}
}
