// Package spawn maps an AgentKind to the command and argument vector
// used to launch its subprocess (§6), keeping os/exec out of the
// session package.
package spawn

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/amuxd/amuxd/internal/agent/credentials"
	"github.com/amuxd/amuxd/internal/common/config"
	"github.com/amuxd/amuxd/internal/session"
)

var creds = credentials.NewResolver("AMUXD_")

// Argv returns the command name and arguments for kind, preferring a
// user override from cfg.Agents when one is configured.
func Argv(kind session.AgentKind, cfg *config.AgentsConfig) (string, []string, error) {
	if cfg != nil {
		switch kind {
		case session.ClaudeCode:
			if cfg.ClaudeCode.Command != "" {
				return cfg.ClaudeCode.Command, cfg.ClaudeCode.Args, nil
			}
		case session.GeminiCLI:
			if cfg.GeminiCLI.Command != "" {
				return cfg.GeminiCLI.Command, cfg.GeminiCLI.Args, nil
			}
		}
	}

	switch kind {
	case session.ClaudeCode:
		return "claude-code-acp", nil, nil
	case session.GeminiCLI:
		return "gemini", []string{"--experimental-acp"}, nil
	default:
		return "", nil, fmt.Errorf("unknown agent kind: %s", kind)
	}
}

// Command builds the exec.Cmd for kind rooted at workdir. It attaches no
// stdio pipes (the caller does); Stderr is left nil, so the child's
// stderr is discarded (the ACP stream is stdio-only; a child's
// diagnostic chatter on stderr is not part of the protocol).
// The child's environment is the parent's plus any AMUXD_-prefixed
// override of the API key variable kind's CLI documents.
func Command(ctx context.Context, kind session.AgentKind, workdir string, cfg *config.AgentsConfig) (*exec.Cmd, error) {
	name, args, err := Argv(kind, cfg)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workdir
	cmd.Env = append(os.Environ(), creds.EnvFor(string(kind))...)
	return cmd, nil
}
