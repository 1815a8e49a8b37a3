// Package session implements the per-session data model (§3), the
// session state machine (C6), and the update reducer (C7): everything
// that mutates a single Session's observable state in response to
// events arriving from its connection actor.
package session

// State is one of the six states a session traverses from spawn to
// teardown (§4.6).
type State string

const (
	Spawning            State = "spawning"
	Initializing        State = "initializing"
	Idle                State = "idle"
	Prompting           State = "prompting"
	AwaitingPermission  State = "awaiting_permission"
	AwaitingUserInput   State = "awaiting_user_input"
)

// transitions is the legal-edge table from §4.6. Self-transitions are
// always legal and are not listed explicitly; canTransition checks for
// them separately.
var transitions = map[State]map[State]bool{
	Spawning:           {Initializing: true, Idle: true},
	Initializing:       {Idle: true, Prompting: true},
	Idle:               {Prompting: true},
	Prompting:          {Idle: true, AwaitingPermission: true, AwaitingUserInput: true},
	AwaitingPermission: {Prompting: true, Idle: true},
	AwaitingUserInput:  {Prompting: true, Idle: true},
}

// canTransition reports whether moving from s to next is a legal edge.
func canTransition(s, next State) bool {
	if s == next {
		return true
	}
	if edges, ok := transitions[s]; ok {
		return edges[next]
	}
	return false
}

// AwaitingUser reports whether the session is blocked on a modal
// permission or question prompt.
func (s State) AwaitingUser() bool {
	return s == AwaitingPermission || s == AwaitingUserInput
}

// CanPrompt reports whether a new prompt may be dispatched.
func (s State) CanPrompt() bool {
	return s == Idle
}
