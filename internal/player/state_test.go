package player

import "testing"

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateStopped, "stopped"},
		{StateLoading, "loading"},
		{StatePlaying, "playing"},
		{StatePaused, "paused"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateStopped, StateLoading, true},
		{StateLoading, StatePlaying, true},
		{StatePlaying, StatePaused, true},
		{StateLoading, StatePaused, true},
		{StatePaused, StateLoading, true},
		{StatePlaying, StateStopped, true},
		{StatePaused, StateStopped, true},

		// Playing only follows Loading
		{StateStopped, StatePlaying, false},
		{StatePaused, StatePlaying, false},

		// Paused requires Playing or Loading
		{StateStopped, StatePaused, false},
	}
	for _, tt := range tests {
		m := &Machine{state: tt.from}
		got := m.Transition(tt.to)
		if got != tt.want {
			t.Errorf("Transition %s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
		wantState := tt.from
		if tt.want {
			wantState = tt.to
		}
		if m.State() != wantState {
			t.Errorf("After %s -> %s: state = %s, want %s", tt.from, tt.to, m.State(), wantState)
		}
	}
}

func TestSameStateTransitionIsNoOp(t *testing.T) {
	m := NewMachine()
	notified := 0
	m.Subscribe(func(State) { notified++ })

	if !m.Transition(StateStopped) {
		t.Error("Same-state transition should return true")
	}
	if notified != 0 {
		t.Errorf("Same-state transition notified %d observers, want 0", notified)
	}
}

func TestObserversSeeEverySuccessfulTransition(t *testing.T) {
	m := NewMachine()
	var seen []State
	m.Subscribe(func(s State) { seen = append(seen, s) })

	m.Transition(StateLoading)
	m.Transition(StatePlaying)
	m.Transition(StatePlaying) // no-op
	m.Transition(StatePaused)
	m.Transition(StateStopped)

	want := []State{StateLoading, StatePlaying, StatePaused, StateStopped}
	if len(seen) != len(want) {
		t.Fatalf("Observer saw %d transitions, want %d", len(seen), len(want))
	}
	for i, s := range want {
		if seen[i] != s {
			t.Errorf("Observed transition[%d] = %s, want %s", i, seen[i], s)
		}
	}
}

func TestRejectedTransitionDoesNotNotify(t *testing.T) {
	m := NewMachine()
	notified := 0
	m.Subscribe(func(State) { notified++ })

	if m.Transition(StatePlaying) {
		t.Error("stopped -> playing should be rejected")
	}
	if notified != 0 {
		t.Errorf("Rejected transition notified %d observers, want 0", notified)
	}
	if m.State() != StateStopped {
		t.Errorf("State after rejected transition = %s, want stopped", m.State())
	}
}
