package session

// EntryKind tags which concrete transcript entry variant a TranscriptEntry is.
type EntryKind string

const (
	EntryText        EntryKind = "text"
	EntryUserInput    EntryKind = "user_input"
	EntryToolCall    EntryKind = "tool_call"
	EntryToolOutput  EntryKind = "tool_output"
	EntryDiffAdd     EntryKind = "diff_add"
	EntryDiffRemove  EntryKind = "diff_remove"
	EntryDiffContext EntryKind = "diff_context"
	EntryDiffHeader  EntryKind = "diff_header"
	EntryError       EntryKind = "error"
)

// TranscriptEntry is one line (or logical chunk) of a session's
// observable output (§3 "Transcript entry"). Kind discriminates which
// fields are meaningful; ToolCall-specific fields are zero for every
// other kind.
type TranscriptEntry struct {
	Kind EntryKind
	// Content holds the rendered text for Text, UserInput, ToolOutput,
	// the four Diff* kinds, and Error entries.
	Content string

	// ToolCall-only fields.
	ToolCallID  string
	Name        string
	Description string
	Failed      bool
	RawJSON     string
}

func newText(content string) TranscriptEntry {
	return TranscriptEntry{Kind: EntryText, Content: content}
}

func newUserInput(content string) TranscriptEntry {
	return TranscriptEntry{Kind: EntryUserInput, Content: content}
}

func newToolCall(id, name, description, rawJSON string) TranscriptEntry {
	return TranscriptEntry{
		Kind:        EntryToolCall,
		ToolCallID:  id,
		Name:        name,
		Description: description,
		RawJSON:     rawJSON,
	}
}
