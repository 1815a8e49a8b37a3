// Package dispatch is the command dispatcher (C9) and permission/
// question arbiter integration (C8): it routes local_id-addressed
// commands to the right connection actor and registry entry, enforces
// the single-flight-prompt precondition, and applies every inbound
// session.AgentEvent to its Session on a single per-connection
// goroutine so Session never needs its own lock.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/amuxd/amuxd/internal/agent/acp"
	"github.com/amuxd/amuxd/internal/common/config"
	appErrors "github.com/amuxd/amuxd/internal/common/errors"
	"github.com/amuxd/amuxd/internal/common/logger"
	"github.com/amuxd/amuxd/internal/session"
	"github.com/amuxd/amuxd/internal/session/registry"
	"go.uber.org/zap"
)

// InputState is the caller-supplied snapshot of what the user was doing
// at the moment an event arrived, threaded into session.EventContext
// (§4.8 — UI state lives outside this core).
type InputState struct {
	SelectedLocalID string
	InsertMode      bool
	Buffer          string
	Cursor          int
}

// Dispatcher owns the registry and the live connection set, and is the
// only writer of Session state: every mutation happens on the
// connection's own event-consuming goroutine or inside a dispatcher
// method, never concurrently for the same session.
type Dispatcher struct {
	reg   *registry.Registry
	agent *config.AgentsConfig

	mu          sync.RWMutex
	connections map[string]*acp.Connection

	inputState func() InputState

	logger *logger.Logger
}

// New builds a Dispatcher. inputState is polled once per inbound event
// needing modal-interrupt bookkeeping (permission/question arrival);
// pass a function returning the zero InputState if the embedding binary
// has no interactive UI (e.g. the debug HTTP surface only).
func New(reg *registry.Registry, agentCfg *config.AgentsConfig, inputState func() InputState, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	if inputState == nil {
		inputState = func() InputState { return InputState{} }
	}
	return &Dispatcher{
		reg:         reg,
		agent:       agentCfg,
		connections: make(map[string]*acp.Connection),
		inputState:  inputState,
		logger:      log.WithFields(zap.String("component", "dispatcher")),
	}
}

// localIDCounter backs the monotonic local ids NewSession hands out.
var localIDCounter atomic.Uint64

// NewSession spawns kind under workdir, registers it, and starts its
// event-consuming goroutine. The returned Session is already in the
// registry and visible to ListSessions before initialize/new_session
// round-trips complete — callers observe the Spawning->Initializing->Idle
// progression through the Session's State field.
func (d *Dispatcher) NewSession(ctx context.Context, name string, kind session.AgentKind, workdir string) (*session.Session, error) {
	localID := fmt.Sprintf("session-%d", localIDCounter.Add(1))
	sessLogger := d.logger
	s := session.New(localID, kind, workdir, sessLogger)
	s.Name = name

	conn, err := acp.Spawn(ctx, localID, kind, workdir, d.agent, d.logger)
	if err != nil {
		return nil, appErrors.SpawnFailed(string(kind), err)
	}

	d.mu.Lock()
	d.connections[localID] = conn
	d.mu.Unlock()
	d.reg.Add(s)

	go d.consume(ctx, s, conn)

	go func() {
		if err := conn.Initialize(ctx); err != nil {
			d.logger.Error("initialize failed", zap.String("local_id", localID), zap.Error(err))
			return
		}
		if err := conn.NewSession(ctx, workdir); err != nil {
			d.logger.Error("session/new failed", zap.String("local_id", localID), zap.Error(err))
		}
	}()

	return s, nil
}

// consume is the per-connection actor: it ranges over conn's events,
// applies each to s, and performs whatever side effect the applied
// event demanded (currently only AcceptAll's auto-approved permission
// reply).
func (d *Dispatcher) consume(ctx context.Context, s *session.Session, conn *acp.Connection) {
	for ev := range conn.Events() {
		ctxSnapshot := d.inputState()
		result := s.ApplyAgentEvent(ev, session.EventContext{
			IsSelectedSession: ctxSnapshot.SelectedLocalID == s.LocalID,
			IsInsertMode:      ctxSnapshot.InsertMode,
			InputBuffer:       ctxSnapshot.Buffer,
			InputCursor:       ctxSnapshot.Cursor,
		})
		if result.AutoAcceptPermission {
			if err := conn.RespondPermission(result.RequestID, result.OptionID); err != nil {
				d.logger.Warn("auto-accept permission reply failed", zap.String("local_id", s.LocalID), zap.Error(err))
			}
		}
	}

	d.mu.Lock()
	delete(d.connections, s.LocalID)
	d.mu.Unlock()
}

func (d *Dispatcher) connectionFor(localID string) (*acp.Connection, error) {
	d.mu.RLock()
	conn, ok := d.connections[localID]
	d.mu.RUnlock()
	if !ok {
		return nil, appErrors.Disconnected(localID)
	}
	return conn, nil
}

// Prompt dispatches a new prompt for localID. It enforces the
// single-flight invariant: a session that cannot currently accept a
// prompt (not Idle) returns an error rather than silently queuing.
func (d *Dispatcher) Prompt(ctx context.Context, localID, text string) error {
	s, ok := d.reg.GetByID(localID)
	if !ok {
		return appErrors.NotFound("session", localID)
	}
	if !s.State.CanPrompt() {
		return fmt.Errorf("session %q is not idle (state=%s)", localID, s.State)
	}
	conn, err := d.connectionFor(localID)
	if err != nil {
		return err
	}

	s.AddUserInput(text)
	s.TransitionTo(session.Prompting)

	go conn.Prompt(ctx, s.ProtocolID, text)
	return nil
}

// CancelPrompt requests cancellation of localID's in-flight prompt.
func (d *Dispatcher) CancelPrompt(localID string) error {
	conn, err := d.connectionFor(localID)
	if err != nil {
		return err
	}
	return conn.CancelPrompt()
}

// RespondPermission answers a pending permission request with optionID
// (empty means cancelled). It clears PendingPermission, restores any
// input saved when the modal interrupted typing, and transitions back
// to Prompting on accept or Idle on cancel.
func (d *Dispatcher) RespondPermission(localID, optionID string) error {
	s, ok := d.reg.GetByID(localID)
	if !ok {
		return appErrors.NotFound("session", localID)
	}
	if s.PendingPermission == nil {
		return fmt.Errorf("session %q has no pending permission request", localID)
	}
	conn, err := d.connectionFor(localID)
	if err != nil {
		return err
	}

	requestID := s.PendingPermission.RequestID
	s.PendingPermission = nil
	restoreSavedInput(s)
	if optionID == "" {
		s.TransitionTo(session.Idle)
	} else {
		s.TransitionTo(session.Prompting)
	}

	return conn.RespondPermission(requestID, optionID)
}

// RespondQuestion answers a pending session/ask_user call (empty answer
// means cancelled). It restores any input saved when the modal
// interrupted typing, and transitions back to Prompting on submit or
// Idle on cancel.
func (d *Dispatcher) RespondQuestion(localID, answer string) error {
	s, ok := d.reg.GetByID(localID)
	if !ok {
		return appErrors.NotFound("session", localID)
	}
	if s.PendingQuestion == nil {
		return fmt.Errorf("session %q has no pending question", localID)
	}
	conn, err := d.connectionFor(localID)
	if err != nil {
		return err
	}

	requestID := s.PendingQuestion.RequestID
	s.PendingQuestion = nil
	restoreSavedInput(s)
	if answer == "" {
		s.TransitionTo(session.Idle)
	} else {
		s.TransitionTo(session.Prompting)
	}

	return conn.RespondQuestion(requestID, answer)
}

// restoreSavedInput reapplies a draft preserved by Session.SaveInput
// when a permission or question modal interrupted typing.
func restoreSavedInput(s *session.Session) {
	saved := s.TakeSavedInput()
	if saved == nil {
		return
	}
	s.InputBuffer = saved.Text
	s.InputCursor = saved.Cursor
}

// SetModel forwards a session/set_model call for localID.
func (d *Dispatcher) SetModel(ctx context.Context, localID, modelID string) error {
	s, ok := d.reg.GetByID(localID)
	if !ok {
		return appErrors.NotFound("session", localID)
	}
	conn, err := d.connectionFor(localID)
	if err != nil {
		return err
	}
	return conn.SetModel(ctx, s.ProtocolID, modelID)
}

// Kill terminates localID's connection and removes it from the registry.
func (d *Dispatcher) Kill(localID string) error {
	conn, err := d.connectionFor(localID)
	if err != nil {
		return err
	}
	if err := conn.Kill(); err != nil {
		d.logger.Warn("kill failed", zap.String("local_id", localID), zap.Error(err))
	}
	d.reg.RemoveByID(localID)
	return nil
}
