package acp

import "testing"

func TestTerminal_WriteTruncatesToByteLimit(t *testing.T) {
	term := newTerminal(nil, func() {}, 5)

	n, err := term.Write([]byte("hello world"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != len("hello world") {
		t.Errorf("Write() n = %d, want %d (io.Writer must report the full write)", n, len("hello world"))
	}

	out, code := term.snapshot()
	if out != "world" {
		t.Errorf("snapshot() output = %q, want %q (trimmed to the last 5 bytes)", out, "world")
	}
	if code != nil {
		t.Errorf("snapshot() exitCode = %v, want nil before finish", code)
	}
}

func TestTerminal_WriteNoLimit(t *testing.T) {
	term := newTerminal(nil, func() {}, 0)
	term.Write([]byte("abc"))
	term.Write([]byte("def"))

	out, _ := term.snapshot()
	if out != "abcdef" {
		t.Errorf("snapshot() output = %q, want %q", out, "abcdef")
	}
}

func TestTerminal_FinishSetsExitCodeAndClosesDone(t *testing.T) {
	term := newTerminal(nil, func() {}, 0)
	term.finish(7)

	_, code := term.snapshot()
	if code == nil || *code != 7 {
		t.Fatalf("snapshot() exitCode = %v, want 7", code)
	}

	select {
	case <-term.done:
	default:
		t.Error("done channel should be closed after finish")
	}
}

func TestTerminalTable_AddGetRemove(t *testing.T) {
	table := newTerminalTable()
	term := newTerminal(nil, func() {}, 0)

	id := table.add(term)
	if id != "term_1" {
		t.Errorf("add() id = %q, want %q", id, "term_1")
	}

	got, ok := table.get(id)
	if !ok || got != term {
		t.Fatalf("get(%q) = %v, %v, want the added terminal", id, got, ok)
	}

	table.remove(id)
	if _, ok := table.get(id); ok {
		t.Error("get() should report not-found after remove")
	}
}

func TestTerminalTable_IDsIncrementSequentially(t *testing.T) {
	table := newTerminalTable()
	id1 := table.add(newTerminal(nil, func() {}, 0))
	id2 := table.add(newTerminal(nil, func() {}, 0))

	if id1 != "term_1" || id2 != "term_2" {
		t.Errorf("ids = %q, %q, want term_1, term_2", id1, id2)
	}
}

func TestTerminalTable_GetUnknownID(t *testing.T) {
	table := newTerminalTable()
	if _, ok := table.get("term_999"); ok {
		t.Error("get() should report not-found for an unknown id")
	}
}

func TestTerminal_CancelInvokesCancelFunc(t *testing.T) {
	called := false
	term := newTerminal(nil, func() { called = true }, 0)
	term.cancel()
	if !called {
		t.Error("cancel() should invoke the stored context.CancelFunc")
	}
}
