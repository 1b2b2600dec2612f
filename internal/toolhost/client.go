package toolhost

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Client drives a tool host over a line-delimited JSON-RPC transport. It is
// safe for concurrent use: writes are serialized and responses are matched to
// callers by request id. A response that arrives after its caller gave up
// (agent timeout) finds no waiter and is discarded.
type Client struct {
	writer io.Writer
	mu     sync.Mutex // serializes writes
	nextID atomic.Int64
	logger *zap.Logger

	pendingMu sync.Mutex
	pending   map[int64]chan Response

	tools []Tool

	cmd     *exec.Cmd
	closeIn func() error
	done    chan struct{}
}

// Connect launches the tool host subprocess and performs the startup
// handshake: initialize, then tools/list. The subprocess inherits stderr so
// its logs interleave with the server's. The provided context bounds the
// handshake, not the subprocess lifetime.
func Connect(ctx context.Context, command string, args []string, logger *zap.Logger) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("toolhost stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("toolhost stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start toolhost: %w", err)
	}

	c := newClient(stdin, stdout, logger)
	c.cmd = cmd
	c.closeIn = stdin.Close

	if err := c.handshake(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// NewClientForIO attaches a client to an in-process transport and performs
// the same handshake Connect does. Tests pair it with Server.RunForIO over
// io.Pipe.
func NewClientForIO(ctx context.Context, w io.WriteCloser, r io.Reader, logger *zap.Logger) (*Client, error) {
	c := newClient(w, r, logger)
	c.closeIn = w.Close
	if err := c.handshake(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func newClient(w io.Writer, r io.Reader, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		writer:  w,
		logger:  logger,
		pending: make(map[int64]chan Response),
		done:    make(chan struct{}),
	}
	go c.readLoop(bufio.NewReader(r))
	return c
}

func (c *Client) handshake(ctx context.Context) error {
	var init InitializeResult
	if err := c.call(ctx, MethodInitialize, nil, &init); err != nil {
		return fmt.Errorf("toolhost handshake: %w", err)
	}
	if init.ProtocolVersion != ProtocolVersion {
		return fmt.Errorf("toolhost handshake: unsupported protocol %q", init.ProtocolVersion)
	}

	var list ListToolsResult
	if err := c.call(ctx, MethodListTools, nil, &list); err != nil {
		return fmt.Errorf("toolhost tools/list: %w", err)
	}
	c.tools = list.Tools

	names := make([]string, 0, len(list.Tools))
	for _, t := range list.Tools {
		names = append(names, t.Name)
	}
	c.logger.Info("tool host connected",
		zap.String("server", init.ServerInfo.Name),
		zap.Strings("tools", names),
	)
	return nil
}

// Tools returns the tool surface advertised during the handshake.
func (c *Client) Tools() []Tool {
	return c.tools
}

// CallTool invokes one tool and returns its text payload. The payload may
// encode a domain failure ({"error": ...}); that is still a successful call.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	var result CallToolResult
	params := CallToolParams{Name: name, Arguments: args}
	if err := c.call(ctx, MethodCallTool, params, &result); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, content := range result.Content {
		if content.Type == "text" {
			sb.WriteString(content.Text)
		}
	}
	return sb.String(), nil
}

// Healthy reports whether the host still answers a ping within two seconds.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var out struct{}
	return c.call(ctx, MethodPing, nil, &out) == nil
}

// Close ends the session: the input stream is closed, which the host treats
// as a shutdown request, and the subprocess gets five seconds to exit before
// it is killed.
func (c *Client) Close() error {
	var err error
	if c.closeIn != nil {
		err = c.closeIn()
	}
	if c.cmd != nil {
		waited := make(chan error, 1)
		go func() { waited <- c.cmd.Wait() }()
		select {
		case <-waited:
		case <-time.After(5 * time.Second):
			c.logger.Warn("tool host did not exit, killing")
			_ = c.cmd.Process.Kill()
			<-waited
		}
	}
	return err
}

func (c *Client) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	select {
	case <-c.done:
		return fmt.Errorf("tool host connection closed")
	default:
	}

	id := c.nextID.Add(1)

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		raw = data
	}

	req := Request{JSONRPC: "2.0", ID: id, Method: method, Params: raw}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')

	ch := make(chan Response, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	c.mu.Lock()
	_, err = c.writer.Write(data)
	c.mu.Unlock()
	if err != nil {
		c.forget(id)
		return fmt.Errorf("write request: %w", err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return fmt.Errorf("tool host error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}
		return nil
	case <-ctx.Done():
		// The eventual response is dropped by readLoop: no waiter remains.
		c.forget(id)
		return ctx.Err()
	case <-c.done:
		c.forget(id)
		return fmt.Errorf("tool host connection closed")
	}
}

func (c *Client) forget(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

func (c *Client) readLoop(reader *bufio.Reader) {
	defer close(c.done)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				c.logger.Warn("tool host read failed", zap.Error(err))
			}
			return
		}
		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			c.logger.Warn("malformed tool host response", zap.Error(err))
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.pendingMu.Unlock()

		if !ok {
			// Caller timed out and moved on; the orphaned result is discarded.
			c.logger.Debug("discarding late tool host response", zap.Int64("id", resp.ID))
			continue
		}
		ch <- resp
	}
}
