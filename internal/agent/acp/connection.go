// Package acp is the connection actor (C5) and reverse-RPC servicer
// (C3): one instance owns a single child agent subprocess's stdio,
// translates its JSON-RPC traffic into session.AgentEvent values, and
// answers every fs/* and terminal/* call the agent makes back into the
// client. Grounded on original_source/src/acp/client.rs's
// AgentConnection/spawn, translated from tokio tasks + mpsc channels
// into goroutines + buffered Go channels.
package acp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/amuxd/amuxd/internal/agent/spawn"
	"github.com/amuxd/amuxd/internal/common/config"
	"github.com/amuxd/amuxd/internal/common/logger"
	"github.com/amuxd/amuxd/internal/session"
	"github.com/amuxd/amuxd/pkg/acp/jsonrpc"
	"go.uber.org/zap"
)

// eventChanCapacity is the per-actor event channel size (§5): large
// enough to absorb a burst of session/update notifications between
// dispatcher ticks without blocking the read loop.
const eventChanCapacity = 32

// Connection owns one child agent's stdio and the jsonrpc.Client framed
// over it. It never touches a *session.Session directly; it emits
// session.AgentEvent values for the dispatcher to apply, keeping all
// Session mutation on the dispatcher's single-writer goroutine.
type Connection struct {
	LocalID string

	cmd    *exec.Cmd
	client *jsonrpc.Client
	events chan session.AgentEvent

	promptID atomic.Int64

	terminals *terminalTable

	logger *logger.Logger

	closeOnce sync.Once
}

// Spawn launches the child for kind under workdir and wires a
// jsonrpc.Client over its stdin/stdout (§4.3, §6).
func Spawn(ctx context.Context, localID string, kind session.AgentKind, workdir string, cfg *config.AgentsConfig, log *logger.Logger) (*Connection, error) {
	cmd, err := spawn.Command(ctx, kind, workdir, cfg)
	if err != nil {
		return nil, err
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = nil

	if log == nil {
		log = logger.NewNop()
	}
	connLogger := log.WithFields(zap.String("component", "acp-connection"), zap.String("local_id", localID))

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", kind, err)
	}

	client := jsonrpc.NewClient(stdin, stdout, connLogger)

	c := &Connection{
		LocalID:   localID,
		cmd:       cmd,
		client:    client,
		events:    make(chan session.AgentEvent, eventChanCapacity),
		terminals: newTerminalTable(),
		logger:    connLogger,
	}

	client.SetNotificationHandler(c.handleNotification)
	client.SetRequestHandler(c.handleRequest)
	client.Start(ctx)

	go c.watchExit()

	return c, nil
}

// Events returns the channel of events this connection emits. The
// dispatcher ranges over it and calls Session.ApplyAgentEvent for each.
func (c *Connection) Events() <-chan session.AgentEvent {
	return c.events
}

func (c *Connection) emit(ev session.AgentEvent) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event channel full, dropping event", zap.String("kind", string(ev.Kind)))
	}
}

func (c *Connection) watchExit() {
	err := c.cmd.Wait()
	if err != nil {
		c.logger.Warn("agent process exited", zap.Error(err))
	}
	c.emit(session.AgentEvent{Kind: session.EventDisconnected})
	close(c.events)
}

// --- public operations (§4.5) ---

func (c *Connection) Initialize(ctx context.Context) error {
	params := jsonrpc.InitializeParams{
		ProtocolVersion: 1,
		ClientCapabilities: jsonrpc.ClientCapabilities{
			FS:       jsonrpc.FSCapabilities{ReadTextFile: true, WriteTextFile: true},
			Terminal: true,
		},
		ClientInfo: jsonrpc.ClientInfo{Name: "amuxd", Title: "amuxd", Version: "0.1.0"},
	}
	resp, err := c.client.Call(ctx, "initialize", params)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("initialize: %s", resp.Error.Message)
	}
	var result jsonrpc.InitializeResult
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return fmt.Errorf("decode initialize result: %w", err)
		}
	}
	c.emit(session.AgentEvent{Kind: session.EventInitialized, AgentInfo: result.AgentInfo, AgentCapabilities: result.AgentCapabilities})
	return nil
}

func (c *Connection) NewSession(ctx context.Context, cwd string) error {
	resp, err := c.client.Call(ctx, "session/new", jsonrpc.SessionNewParams{Cwd: cwd})
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("session/new: %s", resp.Error.Message)
	}
	var result jsonrpc.SessionNewResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return fmt.Errorf("decode session/new result: %w", err)
	}
	c.emit(session.AgentEvent{Kind: session.EventSessionCreated, ProtocolSessionID: result.SessionID, Models: result.Models})
	return nil
}

func (c *Connection) LoadSession(ctx context.Context, protocolSessionID, cwd string) error {
	resp, err := c.client.Call(ctx, "session/load", jsonrpc.SessionLoadParams{SessionID: protocolSessionID, Cwd: cwd})
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("session/load: %s", resp.Error.Message)
	}
	// session/load returns null on success; the session id is already known.
	c.emit(session.AgentEvent{Kind: session.EventSessionCreated, ProtocolSessionID: protocolSessionID})
	return nil
}

// Prompt sends a single text prompt and blocks until the turn completes,
// emitting PromptComplete (or Error) when it does. The caller runs this
// in its own goroutine; CancelPrompt unblocks it early via $/cancel_request.
func (c *Connection) Prompt(ctx context.Context, protocolSessionID, text string) {
	c.PromptWithContent(ctx, protocolSessionID, []jsonrpc.ContentBlock{jsonrpc.TextBlock(text)})
}

func (c *Connection) PromptWithContent(ctx context.Context, protocolSessionID string, content []jsonrpc.ContentBlock) {
	id := c.client.NextID()
	c.promptID.Store(id)

	resp, err := c.client.CallWithID(ctx, id, "session/prompt", jsonrpc.SessionPromptParams{SessionID: protocolSessionID, Prompt: content})
	c.promptID.Store(0)
	if err != nil {
		c.emit(session.AgentEvent{Kind: session.EventErr, Message: err.Error()})
		return
	}
	if resp.Error != nil {
		c.emit(session.AgentEvent{Kind: session.EventErr, Message: resp.Error.Message})
		return
	}
	var result jsonrpc.SessionPromptResult
	_ = json.Unmarshal(resp.Result, &result)
	c.emit(session.AgentEvent{Kind: session.EventPromptComplete, StopReason: result.StopReason})
}

// CancelPrompt sends $/cancel_request for the in-flight prompt, if any
// (§4.5). It is a notification, not a request: the agent's eventual
// session/prompt response still arrives and completes the turn normally.
func (c *Connection) CancelPrompt() error {
	id := c.promptID.Load()
	if id == 0 {
		return nil
	}
	return c.client.Notify("$/cancel_request", jsonrpc.CancelRequestParams{ID: id})
}

func (c *Connection) RespondPermission(requestID int64, optionID string) error {
	var result jsonrpc.RequestPermissionResult
	if optionID == "" {
		result.Cancelled = true
	} else {
		result.Selected = &jsonrpc.SelectedPermission{OptionID: optionID}
	}
	return c.client.SendResponse(requestID, result, nil)
}

func (c *Connection) RespondQuestion(requestID int64, answer string) error {
	var result jsonrpc.AskUserResult
	if answer == "" {
		result.Cancelled = true
	} else {
		result.Answer = answer
	}
	return c.client.SendResponse(requestID, result, nil)
}

func (c *Connection) SetModel(ctx context.Context, protocolSessionID, modelID string) error {
	resp, err := c.client.Call(ctx, "session/set_model", jsonrpc.SessionSetModelParams{SessionID: protocolSessionID, ModelID: modelID})
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("session/set_model: %s", resp.Error.Message)
	}
	return nil
}

// Kill terminates the child process and stops the client.
func (c *Connection) Kill() error {
	var err error
	c.closeOnce.Do(func() {
		c.client.Stop()
		if c.cmd.Process != nil {
			err = c.cmd.Process.Kill()
		}
	})
	return err
}

// --- reverse RPC (C3) ---

func (c *Connection) handleNotification(method string, params json.RawMessage) {
	if method != "session/update" {
		c.logger.Warn("unknown notification", zap.String("method", method))
		return
	}
	var wrapper jsonrpc.SessionUpdateNotificationParams
	if err := json.Unmarshal(params, &wrapper); err != nil {
		c.emit(session.AgentEvent{Kind: session.EventErr, Message: fmt.Sprintf("malformed session/update: %v", err)})
		return
	}
	var update jsonrpc.RawSessionUpdate
	if err := json.Unmarshal(wrapper.Update, &update); err != nil {
		c.emit(session.AgentEvent{Kind: session.EventErr, Message: fmt.Sprintf("malformed session update: %v", err)})
		return
	}
	c.emit(session.AgentEvent{Kind: session.EventUpdate, Update: update})
}

func (c *Connection) handleRequest(id int64, method string, params json.RawMessage) {
	switch method {
	case "session/request_permission":
		c.handleRequestPermission(id, params)
	case "session/ask_user":
		c.handleAskUser(id, params)
	case "fs/read_text_file":
		c.handleReadTextFile(id, params)
	case "fs/write_text_file":
		c.handleWriteTextFile(id, params)
	case "terminal/create":
		c.handleTerminalCreate(id, params)
	case "terminal/output":
		c.handleTerminalOutput(id, params)
	case "terminal/wait_for_exit":
		c.handleTerminalWaitForExit(id, params)
	case "terminal/kill":
		c.handleTerminalKill(id, params)
	case "terminal/release":
		c.handleTerminalRelease(id, params)
	default:
		c.emit(session.AgentEvent{Kind: session.EventErr, Message: fmt.Sprintf("unknown request: %s (id=%d)", method, id)})
		_ = c.client.SendResponse(id, nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "Method not found"})
	}
}

func (c *Connection) handleRequestPermission(id int64, params json.RawMessage) {
	var p jsonrpc.RequestPermissionParams
	if err := json.Unmarshal(params, &p); err != nil {
		c.emit(session.AgentEvent{Kind: session.EventErr, Message: fmt.Sprintf("permission parse error: %v", err)})
		return
	}
	c.emit(session.AgentEvent{
		Kind:                 session.EventPermissionRequest,
		PermissionRequestID:  id,
		PermissionToolCall:   p.ToolCall,
		PermissionOptions:    p.Options,
	})
}

func (c *Connection) handleAskUser(id int64, params json.RawMessage) {
	var p jsonrpc.AskUserParams
	if err := json.Unmarshal(params, &p); err != nil {
		c.emit(session.AgentEvent{Kind: session.EventErr, Message: fmt.Sprintf("ask_user parse error: %v", err)})
		return
	}
	c.emit(session.AgentEvent{
		Kind:              session.EventAskUserRequest,
		QuestionRequestID: id,
		Question:          p.Question,
		QuestionOptions:   p.Options,
		MultiSelect:       p.MultiSelect,
	})
}

func (c *Connection) handleReadTextFile(id int64, params json.RawMessage) {
	var p jsonrpc.ReadTextFileParams
	if err := json.Unmarshal(params, &p); err != nil {
		_ = c.client.SendResponse(id, nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)})
		return
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		_ = c.client.SendResponse(id, nil, &jsonrpc.Error{Code: jsonrpc.CodeIOFailure, Message: fmt.Sprintf("failed to read file: %v", err)})
		return
	}
	content := string(data)
	if p.Line != nil || p.Limit != nil {
		content = sliceLines(content, p.Line, p.Limit)
	}
	_ = c.client.SendResponse(id, jsonrpc.ReadTextFileResult{Content: content}, nil)
}

func sliceLines(content string, line, limit *int) string {
	lines := strings.Split(content, "\n")
	start := 0
	if line != nil && *line > 1 {
		start = *line - 1
	}
	if start > len(lines) {
		start = len(lines)
	}
	end := len(lines)
	if limit != nil {
		if want := start + *limit; want < end {
			end = want
		}
	}
	return strings.Join(lines[start:end], "\n")
}

func (c *Connection) handleWriteTextFile(id int64, params json.RawMessage) {
	var p jsonrpc.WriteTextFileParams
	if err := json.Unmarshal(params, &p); err != nil {
		_ = c.client.SendResponse(id, nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)})
		return
	}
	if err := os.WriteFile(p.Path, []byte(p.Content), 0o644); err != nil {
		_ = c.client.SendResponse(id, nil, &jsonrpc.Error{Code: jsonrpc.CodeIOFailure, Message: fmt.Sprintf("failed to write file: %v", err)})
		return
	}
	_ = c.client.SendResponse(id, jsonrpc.WriteTextFileResult{Success: true}, nil)
}

// handleTerminalCreate launches the command asynchronously: unlike
// original_source's synchronous cmd.output() (which blocked the whole
// read loop until the child exited), this starts it in the background
// and replies immediately with the terminal id (REDESIGN FLAG, §4.3).
func (c *Connection) handleTerminalCreate(id int64, params json.RawMessage) {
	var p jsonrpc.CreateTerminalParams
	if err := json.Unmarshal(params, &p); err != nil {
		_ = c.client.SendResponse(id, nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, "sh", "-c", shellCommand(p.Command, p.Args))
	if p.Cwd != "" {
		cmd.Dir = p.Cwd
	}
	if len(p.Env) > 0 {
		env := os.Environ()
		for k, v := range p.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	limit := 0
	if p.OutputByteLimit != nil {
		limit = *p.OutputByteLimit
	}
	term := newTerminal(cmd, cancel, limit)
	cmd.Stdout = term
	cmd.Stderr = term

	if err := cmd.Start(); err != nil {
		cancel()
		_ = c.client.SendResponse(id, nil, &jsonrpc.Error{Code: jsonrpc.CodeIOFailure, Message: fmt.Sprintf("failed to execute command: %v", err)})
		return
	}

	termID := c.terminals.add(term)
	go func() {
		err := cmd.Wait()
		code := 0
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				code = exitErr.ExitCode()
			} else {
				code = -1
			}
		}
		term.finish(code)
	}()

	_ = c.client.SendResponse(id, jsonrpc.CreateTerminalResult{TerminalID: termID}, nil)
}

func shellCommand(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}

func (c *Connection) handleTerminalOutput(id int64, params json.RawMessage) {
	var p jsonrpc.TerminalIDParams
	if err := json.Unmarshal(params, &p); err != nil {
		_ = c.client.SendResponse(id, nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)})
		return
	}
	term, ok := c.terminals.get(p.TerminalID)
	if !ok {
		_ = c.client.SendResponse(id, nil, &jsonrpc.Error{Code: jsonrpc.CodeIOFailure, Message: "Terminal not found"})
		return
	}
	output, exitCode := term.snapshot()
	_ = c.client.SendResponse(id, jsonrpc.TerminalOutputResult{Output: output, ExitCode: exitCode}, nil)
}

func (c *Connection) handleTerminalWaitForExit(id int64, params json.RawMessage) {
	var p jsonrpc.TerminalIDParams
	if err := json.Unmarshal(params, &p); err != nil {
		_ = c.client.SendResponse(id, nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)})
		return
	}
	term, ok := c.terminals.get(p.TerminalID)
	if !ok {
		_ = c.client.SendResponse(id, nil, &jsonrpc.Error{Code: jsonrpc.CodeIOFailure, Message: "Terminal not found"})
		return
	}
	<-term.done
	_, exitCode := term.snapshot()
	_ = c.client.SendResponse(id, jsonrpc.WaitForTerminalExitResult{ExitCode: exitCode, TimedOut: false}, nil)
}

func (c *Connection) handleTerminalKill(id int64, params json.RawMessage) {
	var p jsonrpc.TerminalIDParams
	if err := json.Unmarshal(params, &p); err != nil {
		_ = c.client.SendResponse(id, nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)})
		return
	}
	if term, ok := c.terminals.get(p.TerminalID); ok {
		term.cancel()
	}
	c.terminals.remove(p.TerminalID)
	_ = c.client.SendResponse(id, struct{}{}, nil)
}

func (c *Connection) handleTerminalRelease(id int64, params json.RawMessage) {
	var p jsonrpc.TerminalIDParams
	if err := json.Unmarshal(params, &p); err != nil {
		_ = c.client.SendResponse(id, nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)})
		return
	}
	if term, ok := c.terminals.get(p.TerminalID); ok {
		term.cancel()
	}
	c.terminals.remove(p.TerminalID)
	_ = c.client.SendResponse(id, struct{}{}, nil)
}

var _ io.Writer = (*terminal)(nil)
