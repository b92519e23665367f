package notify

import "testing"

func TestDrain_SuppressesRepeatOnSameChannel(t *testing.T) {
	n := New()
	n.PushError("invalid credentials")
	if got := n.Drain(); len(got) != 1 {
		t.Fatalf("first drain = %v, want one notice", got)
	}
	n.PushError("invalid credentials")
	if got := n.Drain(); len(got) != 0 {
		t.Fatalf("repeat drain = %v, want none", got)
	}
	n.PushSuccess("invalid credentials")
	if got := n.Drain(); len(got) != 1 || got[0].Channel != Success {
		t.Fatalf("other channel = %v, want one success notice", got)
	}
}

func TestDrain_EmptyMessageIgnored(t *testing.T) {
	n := New()
	if n.PushSuccess("") {
		t.Fatal("empty message accepted")
	}
	if got := n.Drain(); len(got) != 0 {
		t.Fatalf("drain = %v", got)
	}
}

func TestReset_DropsStaleNotices(t *testing.T) {
	n := New()
	started := n.Epoch()

	// the session is torn down while a request is still running
	n.Reset()

	if n.Push(started, Success, "Booking created") {
		t.Fatal("stale notice accepted after reset")
	}
	if got := n.Drain(); len(got) != 0 {
		t.Fatalf("drain = %v, want none", got)
	}
}

func TestReset_ClearsDuplicateGuard(t *testing.T) {
	n := New()
	n.PushSuccess("Login successful")
	n.Drain()
	n.Reset()
	n.PushSuccess("Login successful")
	if got := n.Drain(); len(got) != 1 {
		t.Fatalf("drain after reset = %v, want one notice", got)
	}
}

func TestStateRoundTrip(t *testing.T) {
	n := New()
	n.PushSuccess("shown")
	n.Drain()
	n.Reset()
	n.PushError("pending")

	m := FromState(n.State())
	if m.Epoch() != 1 {
		t.Errorf("epoch = %d, want 1", m.Epoch())
	}
	got := m.Drain()
	if len(got) != 1 || got[0].Message != "pending" {
		t.Fatalf("drain = %v", got)
	}
}

func TestResetTo_AdoptsSharedEpoch(t *testing.T) {
	n := New()
	stale := n.Epoch()
	n.PushError("x")
	n.ResetTo(5)
	if n.Epoch() != 5 || len(n.State().Pending) != 0 {
		t.Fatalf("after ResetTo: %+v", n.State())
	}
	if n.Push(stale, Success, "late") {
		t.Error("push from before the reset was accepted")
	}
	if !n.PushError("x") || len(n.Drain()) != 1 {
		t.Error("duplicate guard survived ResetTo")
	}
}
