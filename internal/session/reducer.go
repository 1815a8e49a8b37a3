package session

import (
	"encoding/json"
	"fmt"

	"github.com/amuxd/amuxd/pkg/acp/jsonrpc"
)

// Update discriminator values (§6 "discriminated by a sessionUpdate
// field").
const (
	updateAgentMessageChunk       = "agent_message_chunk"
	updateAgentThoughtChunk       = "agent_thought_chunk"
	updateToolCall                = "tool_call"
	updateToolCallUpdate          = "tool_call_update"
	updatePlan                    = "plan"
	updateCurrentModeUpdate       = "current_mode_update"
	updateAvailableCommandsUpdate = "available_commands_update"
)

// ApplyUpdate is the update reducer (C7): it consumes one
// jsonrpc.RawSessionUpdate and mutates transcript/plan/mode/tool-call
// state per the rules in §4.7. Unrecognized discriminators push a
// single "[Unknown update: ...]" Text entry.
func (s *Session) ApplyUpdate(u jsonrpc.RawSessionUpdate) {
	switch u.SessionUpdate {
	case updateAgentMessageChunk:
		if u.Content != nil && u.Content.Type == "text" {
			s.AppendText(u.Content.Text)
		}
	case updateAgentThoughtChunk:
		// thinking is ephemeral, intentionally ignored
	case updateToolCall:
		name, description := parseToolCallTitle(u.Title, u.RawDescription)
		isNew := !s.HasToolCall(u.ToolCallID)
		if isNew {
			s.PushText("")
		}
		rawJSON := ""
		if u.Entries != nil {
			rawJSON = string(u.Entries)
		}
		s.AddToolCall(u.ToolCallID, name, description, rawJSON)
	case updateToolCallUpdate:
		switch u.Status {
		case "completed":
			if s.ActiveToolCallID == u.ToolCallID {
				s.CompleteActiveTool()
			}
		case "error", "failed":
			s.MarkToolFailed(u.ToolCallID)
		case "in_progress", "pending", "":
			// no transcript change
		default:
			s.AddToolOutput(u.Status)
		}
	case updatePlan:
		var entries []PlanEntry
		if len(u.Entries) > 0 {
			_ = json.Unmarshal(u.Entries, &entries)
		}
		s.Plan = entries
	case updateCurrentModeUpdate:
		s.Mode = u.CurrentModeID
	case updateAvailableCommandsUpdate:
		// ignored
	default:
		raw := u.SessionUpdate
		if raw == "" {
			raw = "?"
		}
		s.PushText(fmt.Sprintf("[Unknown update: %s]", raw))
	}
}
