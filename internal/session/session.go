package session

import (
	"strings"
	"time"

	"github.com/amuxd/amuxd/internal/common/logger"
	"go.uber.org/zap"
)

// AgentKind is the closed set of child agents the core knows how to
// spawn (§3, §6). It determines the command and argument vector used
// to start the subprocess; the concrete mapping lives in
// internal/agent/spawn, kept separate so this package never imports
// os/exec.
type AgentKind string

const (
	ClaudeCode AgentKind = "claude_code"
	GeminiCLI  AgentKind = "gemini_cli"
)

// PlanStatus is the status of one plan entry.
type PlanStatus string

const (
	PlanPending    PlanStatus = "pending"
	PlanInProgress PlanStatus = "in_progress"
	PlanCompleted  PlanStatus = "completed"
	PlanUnknown    PlanStatus = "unknown"
)

// PlanEntry is one step of the agent's reported plan.
type PlanEntry struct {
	Content string     `json:"content"`
	Status  PlanStatus `json:"status"`
}

// ModelInfo names one model the agent offers.
type ModelInfo struct {
	ModelID string
	Name    string
}

// PermissionMode is local policy never sent to the agent (§3).
type PermissionMode int

const (
	PermissionNormal PermissionMode = iota
	PermissionPlan
	PermissionAcceptAll
)

// Next cycles Normal -> Plan -> AcceptAll -> Normal.
func (m PermissionMode) Next() PermissionMode {
	return (m + 1) % 3
}

// PermissionOption is one choice offered alongside a permission request.
type PermissionOption struct {
	OptionID string
	Kind     string // "allow_once", "allow_always", "reject_once", "reject_always"
	Name     string
}

// PendingPermission tracks an in-flight session/request_permission call.
type PendingPermission struct {
	RequestID  int64
	ToolCallID string
	Title      string
	Options    []PermissionOption
	Selected   int
}

// SelectNext/SelectPrev cycle the highlighted option, wrapping.
func (p *PendingPermission) SelectNext() {
	if len(p.Options) == 0 {
		return
	}
	p.Selected = (p.Selected + 1) % len(p.Options)
}

func (p *PendingPermission) SelectPrev() {
	if len(p.Options) == 0 {
		return
	}
	p.Selected = (p.Selected - 1 + len(p.Options)) % len(p.Options)
}

func (p *PendingPermission) SelectedOption() *PermissionOption {
	if p == nil || p.Selected < 0 || p.Selected >= len(p.Options) {
		return nil
	}
	return &p.Options[p.Selected]
}

// AllowOnceOption returns the first option whose kind is allow_once, for
// AcceptAll auto-approval.
func (p *PendingPermission) AllowOnceOption() *PermissionOption {
	for i := range p.Options {
		if p.Options[i].Kind == "allow_once" {
			return &p.Options[i]
		}
	}
	return nil
}

// PendingQuestion tracks an in-flight session/ask_user call.
type PendingQuestion struct {
	RequestID   int64
	Question    string
	Options     []PermissionOption
	MultiSelect bool
	Selected    int
	Input       string
	Cursor      int
}

func newPendingQuestion(requestID int64, question string, options []PermissionOption, multiSelect bool) *PendingQuestion {
	return &PendingQuestion{RequestID: requestID, Question: question, Options: options, MultiSelect: multiSelect}
}

func (q *PendingQuestion) IsFreeText() bool { return len(q.Options) == 0 }

func (q *PendingQuestion) SelectNext() {
	if len(q.Options) == 0 {
		return
	}
	q.Selected = (q.Selected + 1) % len(q.Options)
}

func (q *PendingQuestion) SelectPrev() {
	if len(q.Options) == 0 {
		return
	}
	q.Selected = (q.Selected - 1 + len(q.Options)) % len(q.Options)
}

// Answer composes the reply: free text input, or the selected option's
// name.
func (q *PendingQuestion) Answer() string {
	if q.IsFreeText() {
		return q.Input
	}
	if q.Selected >= 0 && q.Selected < len(q.Options) {
		return q.Options[q.Selected].Name
	}
	return ""
}

// SavedInput preserves a draft prompt interrupted by a modal.
type SavedInput struct {
	Text   string
	Cursor int
}

// Session is the unit of observable conversation with one agent child
// (§3). It is owned by the registry (C10); all mutation happens via its
// methods, called from the single-writer dispatcher loop.
type Session struct {
	LocalID    string
	ProtocolID string
	Name       string
	AgentKind  AgentKind
	Workdir    string

	State State

	Transcript        []TranscriptEntry
	ActiveToolCallID  string
	Plan              []PlanEntry
	Mode              string
	AvailableModels   []ModelInfo
	CurrentModelID    string

	PermissionMode   PermissionMode
	PendingPermission *PendingPermission
	PendingQuestion   *PendingQuestion
	SavedInput        *SavedInput

	InputBuffer string
	InputCursor int

	CreatedAt    time.Time
	LastActivity time.Time

	logger *logger.Logger
}

// New creates a Session in the Spawning state (§3 Lifecycles).
func New(localID string, kind AgentKind, workdir string, log *logger.Logger) *Session {
	if log == nil {
		log = logger.NewNop()
	}
	return &Session{
		LocalID:   localID,
		AgentKind: kind,
		Workdir:   workdir,
		State:     Spawning,
		CreatedAt: time.Now(),
		logger:    log.WithFields(zap.String("component", "session"), zap.String("local_id", localID)),
	}
}

// TransitionTo moves the session to next. An illegal edge is applied
// anyway but logged — a diagnostic, not a fault (§4.6, §7 InvalidTransition).
func (s *Session) TransitionTo(next State) {
	if !canTransition(s.State, next) {
		s.logger.Warn("illegal state transition applied anyway",
			zap.String("from", string(s.State)), zap.String("to", string(next)))
	}
	s.State = next
}

func (s *Session) touch() {
	s.LastActivity = time.Now()
}

// addEntry appends a raw entry and marks activity.
func (s *Session) addEntry(e TranscriptEntry) {
	s.Transcript = append(s.Transcript, e)
	s.touch()
}

// AppendText implements the AgentMessageChunk rule (§4.7): consecutive
// chunks append to the last entry only if it is a non-empty Text entry;
// otherwise a new Text entry is pushed. Empty spacing Text entries are
// never appended to.
func (s *Session) AppendText(text string) {
	if n := len(s.Transcript); n > 0 {
		last := &s.Transcript[n-1]
		if last.Kind == EntryText && last.Content != "" {
			last.Content += text
			s.touch()
			return
		}
	}
	s.addEntry(newText(text))
}

// PushText unconditionally pushes a new Text entry, never merging with
// the previous one — used for spacing blanks and one-off annotations
// where AppendText's merge behavior would be wrong.
func (s *Session) PushText(text string) {
	s.addEntry(newText(text))
}

// AddUserInput records the prompt text the user submitted.
func (s *Session) AddUserInput(text string) {
	s.addEntry(newUserInput(text))
}

// HasToolCall reports whether a ToolCall entry with this id already exists.
func (s *Session) HasToolCall(toolCallID string) bool {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Kind == EntryToolCall && s.Transcript[i].ToolCallID == toolCallID {
			return true
		}
	}
	return false
}

// genericToolNames are placeholder names a more specific parse should
// override (§4.7 ToolCall update-in-place rule).
var genericToolNames = map[string]bool{
	"Tool": true, "Read File": true, "Edit": true, "Terminal": true,
}

// AddToolCall either updates an existing ToolCall entry in place or
// pushes a new one and marks it active (§4.7).
func (s *Session) AddToolCall(toolCallID, name, description, rawJSON string) {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		e := &s.Transcript[i]
		if e.Kind != EntryToolCall || e.ToolCallID != toolCallID {
			continue
		}
		if e.Description == "" && description != "" {
			e.Description = description
		}
		if name != "Tool" && genericToolNames[e.Name] {
			e.Name = name
		}
		if e.RawJSON == "" && rawJSON != "" {
			e.RawJSON = rawJSON
		}
		s.touch()
		return
	}
	s.ActiveToolCallID = toolCallID
	s.addEntry(newToolCall(toolCallID, name, description, rawJSON))
}

// CompleteActiveTool clears ActiveToolCallID.
func (s *Session) CompleteActiveTool() {
	s.ActiveToolCallID = ""
}

// MarkToolFailed flags the matching ToolCall entry as failed and clears
// the active id if it was the one that failed.
func (s *Session) MarkToolFailed(toolCallID string) {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Kind == EntryToolCall && s.Transcript[i].ToolCallID == toolCallID {
			s.Transcript[i].Failed = true
			break
		}
	}
	if s.ActiveToolCallID == toolCallID {
		s.ActiveToolCallID = ""
	}
}

// droppedStatusBodies are status-only lines that carry no information
// (§4.7 "Status-only lines ... are dropped entirely").
var droppedStatusBodies = map[string]bool{
	"completed": true, "running": true, "pending": true,
}

// AddToolOutput pipes content through the diff-line parser (§4.7),
// pushing one TranscriptEntry per processed line.
func (s *Session) AddToolOutput(content string) {
	if droppedStatusBodies[strings.ToLower(strings.TrimSpace(content))] {
		return
	}
	any := false
	for _, line := range strings.Split(content, "\n") {
		entry, ok := parseDiffLine(line)
		if !ok {
			continue
		}
		s.Transcript = append(s.Transcript, entry)
		any = true
	}
	if any {
		s.touch()
	}
}

// AddError pushes an Error transcript entry.
func (s *Session) AddError(message string) {
	s.addEntry(TranscriptEntry{Kind: EntryError, Content: message})
}

// CyclePermissionMode rotates local policy, never sent to the agent.
func (s *Session) CyclePermissionMode() {
	s.PermissionMode = s.PermissionMode.Next()
}

// CycleModel advances CurrentModelID to the next entry in
// AvailableModels, wrapping, and returns the new id.
func (s *Session) CycleModel() string {
	if len(s.AvailableModels) == 0 {
		return ""
	}
	idx := 0
	for i, m := range s.AvailableModels {
		if m.ModelID == s.CurrentModelID {
			idx = i
			break
		}
	}
	idx = (idx + 1) % len(s.AvailableModels)
	s.CurrentModelID = s.AvailableModels[idx].ModelID
	return s.CurrentModelID
}

// SaveInput preserves a draft only if it is non-empty.
func (s *Session) SaveInput(buffer string, cursor int) {
	if buffer == "" {
		return
	}
	s.SavedInput = &SavedInput{Text: buffer, Cursor: cursor}
}

// TakeSavedInput returns and clears the saved draft, if any.
func (s *Session) TakeSavedInput() *SavedInput {
	saved := s.SavedInput
	s.SavedInput = nil
	return saved
}

// CurrentActivity derives a one-line summary: the in-progress plan
// entry if any, else the last user prompt.
func (s *Session) CurrentActivity() string {
	for i := len(s.Plan) - 1; i >= 0; i-- {
		if s.Plan[i].Status == PlanInProgress {
			return s.Plan[i].Content
		}
	}
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Kind == EntryUserInput {
			return s.Transcript[i].Content
		}
	}
	return ""
}
