package credentials

import "testing"

func TestEnvFor_BareVariable(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-bare")

	r := NewResolver("AMUXD_")
	got := r.EnvFor("claude_code")

	want := []string{"ANTHROPIC_API_KEY=sk-bare"}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("EnvFor(claude_code) = %v, want %v", got, want)
	}
}

func TestEnvFor_PrefixOverridesBare(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-bare")
	t.Setenv("AMUXD_ANTHROPIC_API_KEY", "sk-override")

	r := NewResolver("AMUXD_")
	got := r.EnvFor("claude_code")

	if len(got) != 1 || got[0] != "ANTHROPIC_API_KEY=sk-override" {
		t.Errorf("EnvFor(claude_code) = %v, want override value", got)
	}
}

func TestEnvFor_MultipleCandidateVars(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "g-key")

	r := NewResolver("AMUXD_")
	got := r.EnvFor("gemini_cli")

	if len(got) != 1 || got[0] != "GOOGLE_API_KEY=g-key" {
		t.Errorf("EnvFor(gemini_cli) = %v, want only GOOGLE_API_KEY set", got)
	}
}

func TestEnvFor_UnknownKindReturnsEmpty(t *testing.T) {
	r := NewResolver("AMUXD_")
	got := r.EnvFor("unknown_kind")
	if len(got) != 0 {
		t.Errorf("EnvFor(unknown_kind) = %v, want empty", got)
	}
}

func TestEnvFor_NoPrefixConfigured(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-bare")
	t.Setenv("AMUXD_ANTHROPIC_API_KEY", "sk-should-be-ignored")

	r := NewResolver("")
	got := r.EnvFor("claude_code")

	if len(got) != 1 || got[0] != "ANTHROPIC_API_KEY=sk-bare" {
		t.Errorf("EnvFor(claude_code) = %v, want bare value when no prefix is configured", got)
	}
}
