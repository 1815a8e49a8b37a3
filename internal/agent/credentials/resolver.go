// Package credentials resolves which of the parent process's API-key
// environment variables an agent subprocess needs, so amuxd can set
// them on the child explicitly, including a value taken from a
// prefixed override variable.
package credentials

import "os"

// agentKeyVars maps an agent kind to the environment variable names its
// CLI looks for. Not exhaustive — just the ones each agent documents.
var agentKeyVars = map[string][]string{
	"claude_code": {"ANTHROPIC_API_KEY"},
	"gemini_cli":  {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// Resolver looks up credential environment variables, optionally under
// an AMUXD_-style prefix that overrides the bare variable.
type Resolver struct {
	prefix string
}

// NewResolver returns a Resolver that also checks prefix+name before
// falling back to the bare variable name.
func NewResolver(prefix string) *Resolver {
	return &Resolver{prefix: prefix}
}

// EnvFor returns "KEY=VALUE" pairs for every credential variable known
// to matter to kind that is actually set in the parent's environment.
func (r *Resolver) EnvFor(kind string) []string {
	var out []string
	for _, name := range agentKeyVars[kind] {
		if v, ok := r.lookup(name); ok {
			out = append(out, name+"="+v)
		}
	}
	return out
}

func (r *Resolver) lookup(name string) (string, bool) {
	if r.prefix != "" {
		if v := os.Getenv(r.prefix + name); v != "" {
			return v, true
		}
	}
	if v := os.Getenv(name); v != "" {
		return v, true
	}
	return "", false
}
