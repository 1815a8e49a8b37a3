package session

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amuxd/amuxd/pkg/acp/jsonrpc"
)

// AgentEvent is the typed event vocabulary the connection actor (C5)
// emits after the response correlator (C4) or reverse-RPC servicer (C3)
// decodes an inbound frame. Exactly one field group is meaningful per
// Kind, mirroring original_source/src/acp/client.rs's AgentEvent enum.
type AgentEventKind string

const (
	EventInitialized      AgentEventKind = "initialized"
	EventSessionCreated   AgentEventKind = "session_created"
	EventUpdate           AgentEventKind = "update"
	EventPermissionRequest AgentEventKind = "permission_request"
	EventAskUserRequest   AgentEventKind = "ask_user_request"
	EventPromptComplete   AgentEventKind = "prompt_complete"
	EventErr              AgentEventKind = "error"
	EventDisconnected     AgentEventKind = "disconnected"
)

type AgentEvent struct {
	Kind AgentEventKind

	// Initialized
	AgentInfo         *jsonrpc.AgentInfo
	AgentCapabilities json.RawMessage

	// SessionCreated
	ProtocolSessionID string
	Models            *jsonrpc.SessionModels

	// Update
	Update jsonrpc.RawSessionUpdate

	// PermissionRequest
	PermissionRequestID int64
	PermissionToolCall   jsonrpc.ToolCallRef
	PermissionOptions    []jsonrpc.PermissionOption

	// AskUserRequest
	QuestionRequestID int64
	Question          string
	QuestionOptions   []jsonrpc.PermissionOption
	MultiSelect       bool

	// PromptComplete
	StopReason string

	// Error
	Message string
}

// EventResult is the outcome of applying an AgentEvent: most events are
// pure state mutation, but an auto-accepted permission needs the caller
// to actually send the reply, so that I/O is threaded back out rather
// than performed inside the reducer (kept symmetric with
// original_source/src/handlers/agent.rs's EventResult).
type EventResult struct {
	AutoAcceptPermission bool
	RequestID            int64
	OptionID             string
}

// EventContext carries the caller-supplied predicates the reducer needs
// but cannot observe itself, since UI/input state is out of scope for
// this core (§1 Non-goals): whether the user was actively typing into
// this particular session when a modal interrupted them.
type EventContext struct {
	IsSelectedSession bool
	IsInsertMode      bool
	InputBuffer       string
	InputCursor       int
}

func toPermissionOptions(opts []jsonrpc.PermissionOption) []PermissionOption {
	out := make([]PermissionOption, len(opts))
	for i, o := range opts {
		out[i] = PermissionOption{OptionID: o.OptionID, Kind: string(o.Kind), Name: o.Name}
	}
	return out
}

// ApplyAgentEvent is the C6 (state machine) + C8 (arbiter) integration:
// it looks at the event kind and mutates state/transcript exactly as
// original_source/src/handlers/agent.rs's handle_agent_event does, with
// two intentional divergences recorded in DESIGN.md: local_id is never
// overwritten by the protocol id, and Disconnected does not force Idle.
func (s *Session) ApplyAgentEvent(ev AgentEvent, ctx EventContext) EventResult {
	switch ev.Kind {
	case EventInitialized:
		s.TransitionTo(Initializing)
		if ev.AgentInfo != nil && ev.AgentInfo.Name != "" {
			s.PushText(fmt.Sprintf("Connected to %s", ev.AgentInfo.Name))
		}
		if len(ev.AgentCapabilities) > 0 {
			s.PushText(formatAgentCapabilities(ev.AgentCapabilities))
		}

	case EventSessionCreated:
		s.ProtocolID = ev.ProtocolSessionID
		s.TransitionTo(Idle)
		if ev.Models != nil {
			s.AvailableModels = make([]ModelInfo, len(ev.Models.AvailableModels))
			for i, m := range ev.Models.AvailableModels {
				s.AvailableModels[i] = ModelInfo{ModelID: m.ModelID, Name: m.Name}
			}
			s.CurrentModelID = ev.Models.CurrentModelID
		}
		s.PushText("Session ready.")

	case EventUpdate:
		s.ApplyUpdate(ev.Update)

	case EventPermissionRequest:
		options := toPermissionOptions(ev.PermissionOptions)
		if s.PermissionMode == PermissionAcceptAll {
			for _, o := range options {
				if o.Kind == "allow_once" {
					s.TransitionTo(Prompting)
					return EventResult{AutoAcceptPermission: true, RequestID: ev.PermissionRequestID, OptionID: o.OptionID}
				}
			}
		}
		s.TransitionTo(AwaitingPermission)
		s.PendingPermission = &PendingPermission{
			RequestID:  ev.PermissionRequestID,
			ToolCallID: ev.PermissionToolCall.ToolCallID,
			Title:      ev.PermissionToolCall.Title,
			Options:    options,
		}
		if ctx.IsSelectedSession && ctx.IsInsertMode && ctx.InputBuffer != "" {
			s.SaveInput(ctx.InputBuffer, ctx.InputCursor)
		}

	case EventAskUserRequest:
		s.TransitionTo(AwaitingUserInput)
		s.PendingQuestion = newPendingQuestion(ev.QuestionRequestID, ev.Question, toPermissionOptions(ev.QuestionOptions), ev.MultiSelect)
		if ctx.IsSelectedSession && ctx.IsInsertMode && ctx.InputBuffer != "" {
			s.SaveInput(ctx.InputBuffer, ctx.InputCursor)
		}

	case EventPromptComplete:
		s.TransitionTo(Idle)
		s.PendingPermission = nil
		s.CompleteActiveTool()
		if ev.StopReason != "" && ev.StopReason != "end_turn" {
			s.PushText(fmt.Sprintf("[%s]", ev.StopReason))
		}
		s.PushText("")

	case EventErr:
		s.TransitionTo(Idle)
		s.AddError(fmt.Sprintf("Error: %s", ev.Message))

	case EventDisconnected:
		// Diverges from the original (which forces Idle): §7 says a
		// disconnect ceases dispatching but the session, and its last
		// observed state, remains in the registry until killed.
		s.PushText("Disconnected")
	}

	return EventResult{}
}

func formatAgentCapabilities(raw json.RawMessage) string {
	var caps struct {
		MCPCapabilities struct {
			HTTP bool `json:"http"`
			SSE  bool `json:"sse"`
		} `json:"mcpCapabilities"`
		PromptCapabilities struct {
			EmbeddedContext bool `json:"embeddedContext"`
			Image           bool `json:"image"`
		} `json:"promptCapabilities"`
		SessionCapabilities json.RawMessage `json:"sessionCapabilities"`
	}
	if err := json.Unmarshal(raw, &caps); err != nil {
		return "Agent capabilities: (none reported)"
	}

	var parts []string

	var mcp []string
	if caps.MCPCapabilities.HTTP {
		mcp = append(mcp, "HTTP")
	}
	if caps.MCPCapabilities.SSE {
		mcp = append(mcp, "SSE")
	}
	if len(mcp) > 0 {
		parts = append(parts, "MCP: "+strings.Join(mcp, ", "))
	}

	var prompt []string
	if caps.PromptCapabilities.EmbeddedContext {
		prompt = append(prompt, "embedded context")
	}
	if caps.PromptCapabilities.Image {
		prompt = append(prompt, "images")
	}
	if len(prompt) > 0 {
		parts = append(parts, "Supports: "+strings.Join(prompt, ", "))
	}

	if len(caps.SessionCapabilities) > 0 && string(caps.SessionCapabilities) != "null" {
		parts = append(parts, "Session: resume")
	}

	if len(parts) == 0 {
		return "Agent capabilities: (none reported)"
	}
	return "Agent capabilities: " + strings.Join(parts, " | ")
}
