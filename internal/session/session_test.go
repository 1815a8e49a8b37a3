package session

import "testing"

func newTestSession() *Session {
	return New("local-1", ClaudeCode, "/tmp/work", nil)
}

func TestNew_StartsInSpawning(t *testing.T) {
	s := newTestSession()
	if s.State != Spawning {
		t.Errorf("State = %v, want %v", s.State, Spawning)
	}
}

func TestAppendText_MergesConsecutiveChunks(t *testing.T) {
	s := newTestSession()
	s.AppendText("hello ")
	s.AppendText("world")

	if len(s.Transcript) != 1 {
		t.Fatalf("len(Transcript) = %d, want 1", len(s.Transcript))
	}
	if s.Transcript[0].Content != "hello world" {
		t.Errorf("Content = %q, want %q", s.Transcript[0].Content, "hello world")
	}
}

func TestAppendText_DoesNotMergeIntoEmptyTextEntry(t *testing.T) {
	s := newTestSession()
	s.PushText("")
	s.AppendText("hello")

	if len(s.Transcript) != 2 {
		t.Fatalf("len(Transcript) = %d, want 2", len(s.Transcript))
	}
	if s.Transcript[1].Content != "hello" {
		t.Errorf("Content = %q, want %q", s.Transcript[1].Content, "hello")
	}
}

func TestAppendText_DoesNotMergeIntoNonTextEntry(t *testing.T) {
	s := newTestSession()
	s.AddUserInput("do the thing")
	s.AppendText("working on it")

	if len(s.Transcript) != 2 {
		t.Fatalf("len(Transcript) = %d, want 2", len(s.Transcript))
	}
	if s.Transcript[1].Kind != EntryText {
		t.Errorf("Kind = %v, want %v", s.Transcript[1].Kind, EntryText)
	}
}

func TestPushText_NeverMerges(t *testing.T) {
	s := newTestSession()
	s.PushText("a")
	s.PushText("a")

	if len(s.Transcript) != 2 {
		t.Fatalf("len(Transcript) = %d, want 2", len(s.Transcript))
	}
}

func TestAddToolCall_CreatesNewEntry(t *testing.T) {
	s := newTestSession()
	s.AddToolCall("tc-1", "Bash", "ls -la", "")

	if len(s.Transcript) != 1 {
		t.Fatalf("len(Transcript) = %d, want 1", len(s.Transcript))
	}
	if s.ActiveToolCallID != "tc-1" {
		t.Errorf("ActiveToolCallID = %q, want %q", s.ActiveToolCallID, "tc-1")
	}
}

func TestAddToolCall_UpdatesInPlace(t *testing.T) {
	s := newTestSession()
	s.AddToolCall("tc-1", "Tool", "", "")
	s.AddToolCall("tc-1", "Bash", "ls -la", `{"cmd":"ls -la"}`)

	if len(s.Transcript) != 1 {
		t.Fatalf("len(Transcript) = %d, want 1 (update in place, not a new entry)", len(s.Transcript))
	}
	e := s.Transcript[0]
	if e.Name != "Bash" {
		t.Errorf("Name = %q, want %q", e.Name, "Bash")
	}
	if e.Description != "ls -la" {
		t.Errorf("Description = %q, want %q", e.Description, "ls -la")
	}
	if e.RawJSON != `{"cmd":"ls -la"}` {
		t.Errorf("RawJSON = %q, want %q", e.RawJSON, `{"cmd":"ls -la"}`)
	}
}

func TestAddToolCall_DoesNotOverwriteSpecificNameWithGeneric(t *testing.T) {
	s := newTestSession()
	s.AddToolCall("tc-1", "Grep", "pattern", "")
	s.AddToolCall("tc-1", "Tool", "extra", "")

	if s.Transcript[0].Name != "Grep" {
		t.Errorf("Name = %q, want %q (must not regress to generic placeholder)", s.Transcript[0].Name, "Grep")
	}
}

func TestAddToolCall_DoesNotOverwriteExistingDescription(t *testing.T) {
	s := newTestSession()
	s.AddToolCall("tc-1", "Bash", "first description", "")
	s.AddToolCall("tc-1", "Bash", "second description", "")

	if s.Transcript[0].Description != "first description" {
		t.Errorf("Description = %q, want %q", s.Transcript[0].Description, "first description")
	}
}

func TestMarkToolFailed_ClearsActiveIfMatching(t *testing.T) {
	s := newTestSession()
	s.AddToolCall("tc-1", "Bash", "ls", "")
	s.MarkToolFailed("tc-1")

	if !s.Transcript[0].Failed {
		t.Error("Failed = false, want true")
	}
	if s.ActiveToolCallID != "" {
		t.Errorf("ActiveToolCallID = %q, want empty", s.ActiveToolCallID)
	}
}

func TestAddToolOutput_DropsStatusOnlyLines(t *testing.T) {
	s := newTestSession()
	s.AddToolOutput("completed")

	if len(s.Transcript) != 0 {
		t.Fatalf("len(Transcript) = %d, want 0", len(s.Transcript))
	}
}

func TestAddToolOutput_DropsHunkHeaderLines(t *testing.T) {
	s := newTestSession()
	s.AddToolOutput("+added\n@@ -1,2 +1,2 @@\n-removed")

	if len(s.Transcript) != 2 {
		t.Fatalf("len(Transcript) = %d, want 2 (hunk header dropped)", len(s.Transcript))
	}
	if s.Transcript[0].Kind != EntryDiffAdd || s.Transcript[1].Kind != EntryDiffRemove {
		t.Errorf("unexpected entry kinds: %v, %v", s.Transcript[0].Kind, s.Transcript[1].Kind)
	}
}

func TestCycleModel(t *testing.T) {
	s := newTestSession()
	s.AvailableModels = []ModelInfo{{ModelID: "a"}, {ModelID: "b"}, {ModelID: "c"}}
	s.CurrentModelID = "a"

	if got := s.CycleModel(); got != "b" {
		t.Errorf("CycleModel() = %q, want %q", got, "b")
	}
	if got := s.CycleModel(); got != "c" {
		t.Errorf("CycleModel() = %q, want %q", got, "c")
	}
	if got := s.CycleModel(); got != "a" {
		t.Errorf("CycleModel() = %q, want %q (should wrap)", got, "a")
	}
}

func TestCycleModel_NoModelsReturnsEmpty(t *testing.T) {
	s := newTestSession()
	if got := s.CycleModel(); got != "" {
		t.Errorf("CycleModel() = %q, want empty", got)
	}
}

func TestSaveInput_IgnoresEmptyBuffer(t *testing.T) {
	s := newTestSession()
	s.SaveInput("", 0)
	if s.SavedInput != nil {
		t.Error("SavedInput should remain nil for an empty buffer")
	}
}

func TestSaveInputAndTake(t *testing.T) {
	s := newTestSession()
	s.SaveInput("draft text", 4)

	saved := s.TakeSavedInput()
	if saved == nil {
		t.Fatal("TakeSavedInput() = nil, want non-nil")
	}
	if saved.Text != "draft text" || saved.Cursor != 4 {
		t.Errorf("saved = %+v, want Text=%q Cursor=4", saved, "draft text")
	}
	if s.SavedInput != nil {
		t.Error("SavedInput should be cleared after Take")
	}
}

func TestCurrentActivity_PrefersInProgressPlanEntry(t *testing.T) {
	s := newTestSession()
	s.AddUserInput("do the thing")
	s.Plan = []PlanEntry{
		{Content: "step one", Status: PlanCompleted},
		{Content: "step two", Status: PlanInProgress},
	}

	if got := s.CurrentActivity(); got != "step two" {
		t.Errorf("CurrentActivity() = %q, want %q", got, "step two")
	}
}

func TestCurrentActivity_FallsBackToLastUserInput(t *testing.T) {
	s := newTestSession()
	s.AddUserInput("first")
	s.AddUserInput("second")

	if got := s.CurrentActivity(); got != "second" {
		t.Errorf("CurrentActivity() = %q, want %q", got, "second")
	}
}

func TestCurrentActivity_EmptyWhenNothingToShow(t *testing.T) {
	s := newTestSession()
	if got := s.CurrentActivity(); got != "" {
		t.Errorf("CurrentActivity() = %q, want empty", got)
	}
}

func TestPermissionMode_NextCyclesAndWraps(t *testing.T) {
	m := PermissionNormal
	m = m.Next()
	if m != PermissionPlan {
		t.Errorf("m = %v, want %v", m, PermissionPlan)
	}
	m = m.Next()
	if m != PermissionAcceptAll {
		t.Errorf("m = %v, want %v", m, PermissionAcceptAll)
	}
	m = m.Next()
	if m != PermissionNormal {
		t.Errorf("m = %v, want %v (should wrap)", m, PermissionNormal)
	}
}

func TestPendingPermission_SelectNextPrevWrap(t *testing.T) {
	p := &PendingPermission{Options: []PermissionOption{{OptionID: "a"}, {OptionID: "b"}, {OptionID: "c"}}}

	p.SelectPrev()
	if p.Selected != 2 {
		t.Errorf("Selected = %d, want 2 (should wrap backward)", p.Selected)
	}
	p.SelectNext()
	p.SelectNext()
	if p.Selected != 1 {
		t.Errorf("Selected = %d, want 1", p.Selected)
	}
}

func TestPendingPermission_AllowOnceOption(t *testing.T) {
	p := &PendingPermission{Options: []PermissionOption{
		{OptionID: "reject", Kind: "reject_once"},
		{OptionID: "allow", Kind: "allow_once"},
	}}
	opt := p.AllowOnceOption()
	if opt == nil || opt.OptionID != "allow" {
		t.Errorf("AllowOnceOption() = %+v, want OptionID=allow", opt)
	}
}

func TestPendingQuestion_AnswerFreeText(t *testing.T) {
	q := newPendingQuestion(1, "what next?", nil, false)
	q.Input = "do this"
	if got := q.Answer(); got != "do this" {
		t.Errorf("Answer() = %q, want %q", got, "do this")
	}
	if !q.IsFreeText() {
		t.Error("IsFreeText() = false, want true")
	}
}

func TestPendingQuestion_AnswerSelectedOption(t *testing.T) {
	q := newPendingQuestion(1, "pick one", []PermissionOption{{Name: "one"}, {Name: "two"}}, false)
	q.SelectNext()
	if got := q.Answer(); got != "two" {
		t.Errorf("Answer() = %q, want %q", got, "two")
	}
}
