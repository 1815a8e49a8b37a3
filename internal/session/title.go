package session

import "strings"

// parseToolCallTitle implements the title-parsing algorithm of §4.7,
// ported from original_source/src/handlers/agent.rs's
// parse_tool_call_title.
func parseToolCallTitle(title, rawDescription string) (name, description string) {
	if isUndefinedOrEmpty(title) {
		title = "Tool"
	}

	switch {
	case strings.Contains(title, "("):
		parenPos := strings.Index(title, "(")
		rawName := strings.TrimSpace(stripBackticks(title[:parenPos]))
		if isUndefinedOrEmpty(rawName) {
			name, description = "Tool", ""
		} else {
			body := strings.TrimSuffix(strings.TrimSpace(title[parenPos+1:]), ")")
			body = stripBackticks(body)
			name = mapToolName(cleanToolName(rawName))
			description = cleanDescription(body)
		}
	case strings.HasPrefix(title, "`") && strings.HasSuffix(title, "`"):
		cmd := stripBackticks(title)
		name = "Bash"
		if !isUndefinedOrEmpty(cmd) {
			description = cmd
		}
	case strings.Contains(title, " `"):
		pos := strings.Index(title, " `")
		rawName := title[:pos]
		name = mapToolName(cleanToolName(rawName))
		desc := stripBackticks(title[pos+1:])
		if !isUndefinedOrEmpty(desc) {
			description = desc
		}
	default:
		name = mapToolName(cleanToolName(stripBackticks(title)))
		description = ""
	}

	if isUndefinedOrEmpty(rawDescription) {
		rawDescription = ""
	}

	switch name {
	case "Read", "Grep", "Glob":
		if rawDescription != "" {
			description = rawDescription
		}
	default:
		if description == "" {
			description = rawDescription
		}
	}

	if strings.Contains(description, "undefined") || strings.TrimSpace(description) == "" {
		description = ""
	}

	return name, description
}

func stripBackticks(s string) string {
	return strings.ReplaceAll(s, "`", "")
}

// cleanToolName strips a leading MCP-style "prefix__" from a tool name,
// e.g. "mcp__acp__Edit" -> "Edit" (rightmost "__" occurrence).
func cleanToolName(name string) string {
	if pos := strings.LastIndex(name, "__"); pos >= 0 {
		return name[pos+2:]
	}
	return name
}

func isUndefinedOrEmpty(s string) bool {
	t := strings.TrimSpace(s)
	return t == "" || t == "undefined" || t == "null"
}

// cleanDescription splits a parenthesized body into comma-separated
// "key: value" groups and drops any whole group that is empty or
// carries an undefined/null value, e.g. "path: /a, old: undefined" ->
// "path: /a" (the second group drops as a unit, not word-by-word).
func cleanDescription(desc string) string {
	parts := strings.Split(desc, ",")
	var kept []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if isUndefinedOrEmpty(p) || strings.Contains(p, "undefined") {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ", ")
}

var toolNameDisplayMap = map[string]string{
	"Terminal":   "Bash",
	"Read File":  "Read",
	"Write File": "Write",
	"Edit File":  "Edit",
	"grep":       "Grep",
	"glob":       "Glob",
}

func mapToolName(name string) string {
	if mapped, ok := toolNameDisplayMap[name]; ok {
		return mapped
	}
	return name
}
