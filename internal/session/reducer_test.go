package session

import (
	"encoding/json"
	"testing"

	"github.com/amuxd/amuxd/pkg/acp/jsonrpc"
)

func TestApplyUpdate_AgentMessageChunk(t *testing.T) {
	s := newTestSession()
	text := jsonrpc.TextBlock("hello")
	s.ApplyUpdate(jsonrpc.RawSessionUpdate{SessionUpdate: updateAgentMessageChunk, Content: &text})

	if len(s.Transcript) != 1 || s.Transcript[0].Content != "hello" {
		t.Fatalf("Transcript = %+v, want single entry with content %q", s.Transcript, "hello")
	}
}

func TestApplyUpdate_AgentThoughtChunkIgnored(t *testing.T) {
	s := newTestSession()
	text := jsonrpc.TextBlock("thinking...")
	s.ApplyUpdate(jsonrpc.RawSessionUpdate{SessionUpdate: updateAgentThoughtChunk, Content: &text})

	if len(s.Transcript) != 0 {
		t.Errorf("Transcript = %+v, want empty", s.Transcript)
	}
}

func TestApplyUpdate_ToolCall_PushesSpacerForNewCall(t *testing.T) {
	s := newTestSession()
	s.ApplyUpdate(jsonrpc.RawSessionUpdate{SessionUpdate: updateToolCall, ToolCallID: "tc-1", Title: "`ls -la`"})

	if len(s.Transcript) != 2 {
		t.Fatalf("Transcript len = %d, want 2 (spacer + tool call)", len(s.Transcript))
	}
	if s.Transcript[0].Kind != EntryText || s.Transcript[0].Content != "" {
		t.Errorf("first entry = %+v, want empty spacer", s.Transcript[0])
	}
	if s.Transcript[1].Kind != EntryToolCall || s.Transcript[1].Name != "Bash" {
		t.Errorf("second entry = %+v, want Bash tool call", s.Transcript[1])
	}
}

func TestApplyUpdate_ToolCall_NoSpacerOnUpdate(t *testing.T) {
	s := newTestSession()
	s.ApplyUpdate(jsonrpc.RawSessionUpdate{SessionUpdate: updateToolCall, ToolCallID: "tc-1", Title: "`ls -la`"})
	s.ApplyUpdate(jsonrpc.RawSessionUpdate{SessionUpdate: updateToolCall, ToolCallID: "tc-1", Title: "`ls -la`", RawDescription: "listing"})

	if len(s.Transcript) != 2 {
		t.Fatalf("Transcript len = %d, want 2 (update in place, no new spacer)", len(s.Transcript))
	}
}

func TestApplyUpdate_ToolCallUpdate_Completed(t *testing.T) {
	s := newTestSession()
	s.ApplyUpdate(jsonrpc.RawSessionUpdate{SessionUpdate: updateToolCall, ToolCallID: "tc-1", Title: "`ls -la`"})
	s.ApplyUpdate(jsonrpc.RawSessionUpdate{SessionUpdate: updateToolCallUpdate, ToolCallID: "tc-1", Status: "completed"})

	if s.ActiveToolCallID != "" {
		t.Errorf("ActiveToolCallID = %q, want empty", s.ActiveToolCallID)
	}
}

func TestApplyUpdate_ToolCallUpdate_Failed(t *testing.T) {
	s := newTestSession()
	s.ApplyUpdate(jsonrpc.RawSessionUpdate{SessionUpdate: updateToolCall, ToolCallID: "tc-1", Title: "`ls -la`"})
	s.ApplyUpdate(jsonrpc.RawSessionUpdate{SessionUpdate: updateToolCallUpdate, ToolCallID: "tc-1", Status: "failed"})

	for _, e := range s.Transcript {
		if e.Kind == EntryToolCall && e.ToolCallID == "tc-1" && !e.Failed {
			t.Errorf("expected tool call to be marked failed")
		}
	}
}

func TestApplyUpdate_ToolCallUpdate_UnrecognizedStatusBecomesOutput(t *testing.T) {
	s := newTestSession()
	s.ApplyUpdate(jsonrpc.RawSessionUpdate{SessionUpdate: updateToolCallUpdate, ToolCallID: "tc-1", Status: "weird-status"})

	if len(s.Transcript) != 1 || s.Transcript[0].Kind != EntryToolOutput {
		t.Fatalf("Transcript = %+v, want single tool-output entry", s.Transcript)
	}
}

func TestApplyUpdate_Plan(t *testing.T) {
	s := newTestSession()
	entries, err := json.Marshal([]PlanEntry{{Content: "step one", Status: PlanPending}})
	if err != nil {
		t.Fatal(err)
	}
	s.ApplyUpdate(jsonrpc.RawSessionUpdate{SessionUpdate: updatePlan, Entries: entries})

	if len(s.Plan) != 1 || s.Plan[0].Content != "step one" {
		t.Fatalf("Plan = %+v, want single entry %q", s.Plan, "step one")
	}
}

func TestApplyUpdate_CurrentModeUpdate(t *testing.T) {
	s := newTestSession()
	s.ApplyUpdate(jsonrpc.RawSessionUpdate{SessionUpdate: updateCurrentModeUpdate, CurrentModeID: "plan"})

	if s.Mode != "plan" {
		t.Errorf("Mode = %q, want %q", s.Mode, "plan")
	}
}

func TestApplyUpdate_AvailableCommandsUpdateIgnored(t *testing.T) {
	s := newTestSession()
	s.ApplyUpdate(jsonrpc.RawSessionUpdate{SessionUpdate: updateAvailableCommandsUpdate})

	if len(s.Transcript) != 0 {
		t.Errorf("Transcript = %+v, want empty", s.Transcript)
	}
}

func TestApplyUpdate_UnknownDiscriminatorFallback(t *testing.T) {
	s := newTestSession()
	s.ApplyUpdate(jsonrpc.RawSessionUpdate{SessionUpdate: "something_new"})

	if len(s.Transcript) != 1 {
		t.Fatalf("Transcript = %+v, want single fallback entry", s.Transcript)
	}
	if s.Transcript[0].Content != "[Unknown update: something_new]" {
		t.Errorf("Content = %q, want %q", s.Transcript[0].Content, "[Unknown update: something_new]")
	}
}

func TestApplyUpdate_UnknownDiscriminatorEmptyFallback(t *testing.T) {
	s := newTestSession()
	s.ApplyUpdate(jsonrpc.RawSessionUpdate{})

	if s.Transcript[0].Content != "[Unknown update: ?]" {
		t.Errorf("Content = %q, want %q", s.Transcript[0].Content, "[Unknown update: ?]")
	}
}
