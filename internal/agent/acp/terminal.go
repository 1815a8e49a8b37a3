package acp

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"sync"
)

// terminal tracks one asynchronously-running command launched via
// terminal/create. Unlike original_source/src/acp/client.rs (which runs
// the command to completion inline, blocking the whole read loop), this
// launches it in the background and lets terminal/output and
// terminal/wait_for_exit observe it as it runs.
type terminal struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	exitCode *int
	done     chan struct{}
	cmd      *exec.Cmd
	cancel   context.CancelFunc
	limit    int
}

func newTerminal(cmd *exec.Cmd, cancel context.CancelFunc, outputByteLimit int) *terminal {
	return &terminal{done: make(chan struct{}), cmd: cmd, cancel: cancel, limit: outputByteLimit}
}

func (t *terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.buf.Write(p)
	if t.limit > 0 && t.buf.Len() > t.limit {
		trimmed := t.buf.Bytes()[t.buf.Len()-t.limit:]
		t.buf = *bytes.NewBuffer(append([]byte(nil), trimmed...))
	}
	return n, err
}

func (t *terminal) finish(code int) {
	t.mu.Lock()
	t.exitCode = &code
	t.mu.Unlock()
	close(t.done)
}

func (t *terminal) snapshot() (string, *int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.buf.String()
	if t.exitCode == nil {
		return out, nil
	}
	code := *t.exitCode
	return out, &code
}

// terminalTable owns the term_N id sequence and the live terminal set
// for one connection (§4.3).
type terminalTable struct {
	mu        sync.Mutex
	counter   int
	terminals map[string]*terminal
}

func newTerminalTable() *terminalTable {
	return &terminalTable{terminals: make(map[string]*terminal)}
}

func (t *terminalTable) add(term *terminal) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counter++
	id := formatTerminalID(t.counter)
	t.terminals[id] = term
	return id
}

func (t *terminalTable) get(id string) (*terminal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	term, ok := t.terminals[id]
	return term, ok
}

func (t *terminalTable) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.terminals, id)
}

func formatTerminalID(n int) string {
	return "term_" + strconv.Itoa(n)
}
