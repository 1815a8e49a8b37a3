package session

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{Spawning, Initializing, true},
		{Spawning, Idle, true},
		{Spawning, Prompting, false},
		{Initializing, Idle, true},
		{Initializing, Prompting, true},
		{Idle, Prompting, true},
		{Idle, Spawning, false},
		{Prompting, Idle, true},
		{Prompting, AwaitingPermission, true},
		{Prompting, AwaitingUserInput, true},
		{AwaitingPermission, Prompting, true},
		{AwaitingPermission, Idle, true},
		{AwaitingPermission, AwaitingUserInput, false},
		{AwaitingUserInput, Prompting, true},
		{AwaitingUserInput, Idle, true},
		// self-transitions are always legal
		{Idle, Idle, true},
		{Prompting, Prompting, true},
	}
	for _, tt := range tests {
		if got := canTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("canTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestState_AwaitingUser(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{AwaitingPermission, true},
		{AwaitingUserInput, true},
		{Idle, false},
		{Prompting, false},
		{Spawning, false},
		{Initializing, false},
	}
	for _, tt := range tests {
		if got := tt.state.AwaitingUser(); got != tt.want {
			t.Errorf("%s.AwaitingUser() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestState_CanPrompt(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{Idle, true},
		{Prompting, false},
		{AwaitingPermission, false},
		{AwaitingUserInput, false},
		{Spawning, false},
		{Initializing, false},
	}
	for _, tt := range tests {
		if got := tt.state.CanPrompt(); got != tt.want {
			t.Errorf("%s.CanPrompt() = %v, want %v", tt.state, got, tt.want)
		}
	}
}
