package jsonrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/amuxd/amuxd/internal/common/logger"
	"go.uber.org/zap"
)

// pendingCall is a single outbound request awaiting its Response.
type pendingCall struct {
	ch chan *Response
}

// Client owns framing (C1), classification (C2) and id-indexed
// correlation (C4) for one child's stdio.
type Client struct {
	stdin  io.Writer
	stdout io.Reader

	requestID atomic.Int64

	mu      sync.Mutex
	pending map[int64]*pendingCall

	onNotification func(method string, params json.RawMessage)
	onRequest      func(id int64, method string, params json.RawMessage)

	writeMu sync.Mutex

	logger *logger.Logger
	done   chan struct{}
	once   sync.Once
}

// NewClient wires a JSON-RPC client over stdin/stdout. Writes to stdin
// are serialized under a single mutex so frames are never interleaved
// (§4.1).
func NewClient(stdin io.Writer, stdout io.Reader, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		stdin:   stdin,
		stdout:  stdout,
		pending: make(map[int64]*pendingCall),
		logger:  log.WithFields(zap.String("component", "jsonrpc-client")),
		done:    make(chan struct{}),
	}
}

// SetNotificationHandler installs the callback invoked for every inbound
// notification (only session/update is recognized upstream).
func (c *Client) SetNotificationHandler(handler func(method string, params json.RawMessage)) {
	c.onNotification = handler
}

// SetRequestHandler installs the callback invoked for every inbound
// reverse-RPC request. The handler must eventually call SendResponse.
func (c *Client) SetRequestHandler(handler func(id int64, method string, params json.RawMessage)) {
	c.onRequest = handler
}

// SendResponse replies to an inbound request by id.
func (c *Client) SendResponse(id int64, result any, rpcErr *Error) error {
	var resultJSON json.RawMessage
	if result != nil && rpcErr == nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		resultJSON = data
	}
	return c.send(&Response{JSONRPC: Version, ID: id, Result: resultJSON, Error: rpcErr})
}

// Start launches the read loop. It returns immediately; the loop runs
// until ctx is done, Stop is called, or stdout reaches EOF.
func (c *Client) Start(ctx context.Context) {
	go c.readLoop(ctx)
}

// Stop terminates the client, unblocking any in-flight Call.
func (c *Client) Stop() {
	c.once.Do(func() { close(c.done) })
}

// Call sends a request and blocks for its Response, honoring ctx
// cancellation and client shutdown.
func (c *Client) Call(ctx context.Context, method string, params any) (*Response, error) {
	return c.callWithID(ctx, c.requestID.Add(1), method, params)
}

// NextID allocates the next outbound request id without sending
// anything. The connection actor uses this to record a prompt id before
// the request is actually dispatched (§4.5 cancel_prompt bookkeeping).
func (c *Client) NextID() int64 {
	return c.requestID.Add(1)
}

// CallWithID is like Call but uses a previously allocated id (see NextID).
func (c *Client) CallWithID(ctx context.Context, id int64, method string, params any) (*Response, error) {
	return c.callWithID(ctx, id, method, params)
}

func (c *Client) callWithID(ctx context.Context, id int64, method string, params any) (*Response, error) {
	paramsJSON, err := marshalParams(params)
	if err != nil {
		return nil, err
	}

	respCh := make(chan *Response, 1)
	c.mu.Lock()
	c.pending[id] = &pendingCall{ch: respCh}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := &Request{JSONRPC: Version, ID: id, Method: method, Params: paramsJSON}
	if err := c.send(req); err != nil {
		return nil, err
	}

	select {
	case resp := <-respCh:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, fmt.Errorf("jsonrpc client closed")
	}
}

// Notify sends a one-way notification.
func (c *Client) Notify(method string, params any) error {
	paramsJSON, err := marshalParams(params)
	if err != nil {
		return err
	}
	return c.send(&Notification{JSONRPC: Version, Method: method, Params: paramsJSON})
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return data, nil
}

// send serializes msg and writes exactly one newline-terminated frame.
func (c *Client) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.stdin.Write(data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	c.logger.Debug("sent frame", zap.ByteString("data", data))
	return nil
}

// readLoop is the reader task: it drains stdout line by line (C1),
// classifies each line (C2), and dispatches to the response correlator
// or the caller-supplied notification/request handlers.
func (c *Client) readLoop(ctx context.Context) {
	scanner := bufio.NewScanner(c.stdout)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		c.logger.Debug("received frame", zap.ByteString("data", line))

		var env rawEnvelope
		if err := json.Unmarshal(line, &env); err != nil {
			c.logger.Warn("malformed ACP frame", zap.Error(err), zap.ByteString("data", line))
			continue
		}

		switch env.classify() {
		case kindResponse:
			id, ok := idToInt64(env.ID)
			if !ok {
				c.logger.Warn("response with non-integer id", zap.ByteString("data", line))
				continue
			}
			c.handleResponse(&Response{JSONRPC: Version, ID: id, Result: env.Result, Error: env.Error})
		case kindRequest:
			id, ok := idToInt64(env.ID)
			if !ok {
				c.logger.Warn("request with non-integer id", zap.ByteString("data", line))
				continue
			}
			c.handleRequest(id, env.Method, env.Params)
		case kindNotification:
			c.handleNotification(&Notification{JSONRPC: Version, Method: env.Method, Params: env.Params})
		default:
			c.logger.Warn("unrecognized ACP envelope", zap.ByteString("data", line))
		}
	}

	if err := scanner.Err(); err != nil {
		c.logger.Error("read loop error", zap.Error(err))
	}
}

func idToInt64(n *json.Number) (int64, bool) {
	if n == nil {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return i, true
}

func (c *Client) handleResponse(resp *Response) {
	c.mu.Lock()
	call, ok := c.pending[resp.ID]
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("response for unknown request id", zap.Int64("id", resp.ID))
		return
	}
	call.ch <- resp
}

func (c *Client) handleNotification(n *Notification) {
	if c.onNotification != nil {
		c.onNotification(n.Method, n.Params)
	}
}

func (c *Client) handleRequest(id int64, method string, params json.RawMessage) {
	if c.onRequest != nil {
		c.onRequest(id, method, params)
		return
	}
	c.logger.Warn("no handler registered for inbound request", zap.Int64("id", id), zap.String("method", method))
	_ = c.SendResponse(id, nil, &Error{Code: CodeMethodNotFound, Message: "Method not found"})
}
