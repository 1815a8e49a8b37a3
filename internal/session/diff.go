package session

import (
	"strings"
	"unicode"
)

// parseDiffLine applies the diff-line parser table from §4.7 to one
// line of tool output, returning the TranscriptEntry to store (if any).
// "@@" hunk headers are dropped (ok=false, no entry).
func parseDiffLine(line string) (TranscriptEntry, bool) {
	switch {
	case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
		return TranscriptEntry{Kind: EntryDiffAdd, Content: line[1:]}, true
	case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
		return TranscriptEntry{Kind: EntryDiffRemove, Content: line[1:]}, true
	case isDiffContextLine(line):
		return TranscriptEntry{Kind: EntryDiffContext, Content: line[1:]}, true
	case strings.HasPrefix(line, "@@"):
		return TranscriptEntry{}, false
	case isDiffHeaderLine(line):
		return TranscriptEntry{Kind: EntryDiffHeader, Content: line}, true
	default:
		return TranscriptEntry{Kind: EntryToolOutput, Content: line}, true
	}
}

// isDiffContextLine matches a leading space followed by at least 9
// characters that are each a digit or a space (line-number gutter).
func isDiffContextLine(line string) bool {
	if !strings.HasPrefix(line, " ") || len(line) < 10 {
		return false
	}
	for _, r := range line[1:10] {
		if !unicode.IsDigit(r) && r != ' ' {
			return false
		}
	}
	return true
}

var diffHeaderPrefixes = []string{"diff ", "index ", "---", "+++", "Added ", "Removed "}

func isDiffHeaderLine(line string) bool {
	for _, p := range diffHeaderPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return strings.Contains(line, " lines,")
}
