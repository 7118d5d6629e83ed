// Package mcp provides a Model Context Protocol (MCP) client and a search
// backend built on it.
//
// MCP is a protocol for communication between AI models and tool providers.
// The client starts an MCP server process and calls its tools through
// JSON-RPC over stdin/stdout.
//
// Information Hiding:
// - Process management hidden
// - JSON-RPC protocol details hidden
// - Request ID tracking hidden

package mcp

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
)

// Client communicates with an MCP server via JSON-RPC over stdin/stdout.
// A single reader goroutine routes responses to the waiting calls, so a
// call returns when its context ends even if the server never answers.
type Client struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	requestID atomic.Uint64

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]chan mcpResponse

	done      chan struct{} // closed when the reader exits
	readErr   error         // set before done is closed
	closeOnce sync.Once
}

// mcpRequest is a JSON-RPC request to an MCP server.
type mcpRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// mcpResponse is a JSON-RPC response from an MCP server.
type mcpResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *mcpError       `json:"error,omitempty"`
}

// mcpError is a JSON-RPC error.
type mcpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ToolInfo describes a tool available on the MCP server.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// toolsListResult is the result of tools/list method.
type toolsListResult struct {
	Tools []ToolInfo `json:"tools"`
}

// ToolOutput is the result of tools/call.
type ToolOutput struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

// ContentBlock is one piece of tool output. Only text blocks are used.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Text joins the text blocks of the output.
func (o ToolOutput) Text() string {
	var parts []string
	for _, b := range o.Content {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// NewClient creates a new MCP client by starting the given server.
// The server is expected to communicate via stdin/stdout.
func NewClient(ctx context.Context, server ServerConfig) (*Client, error) {
	if server.Command == "" {
		return nil, fmt.Errorf("MCP server command is empty")
	}
	cmd := exec.CommandContext(ctx, server.Command, server.Args...)
	if len(server.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range server.Env {
			cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to start MCP server: %w", err)
	}

	client := &Client{
		cmd:     cmd,
		stdin:   stdin,
		pending: make(map[uint64]chan mcpResponse),
		done:    make(chan struct{}),
	}
	go client.readLoop(bufio.NewReader(stdout))

	if err := client.initialize(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize MCP client: %w", err)
	}

	return client, nil
}

// initialize performs the initialize handshake.
func (c *Client) initialize(ctx context.Context) error {
	params := map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]interface{}{},
		"clientInfo": map[string]interface{}{
			"name":    "reflexion",
			"version": "0.1.0",
		},
	}

	if _, err := c.call(ctx, "initialize", params); err != nil {
		return err
	}
	return c.notify("notifications/initialized")
}

// ListTools returns all tools available on the MCP server.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	result, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var toolsResult toolsListResult
	if err := json.Unmarshal(result, &toolsResult); err != nil {
		return nil, fmt.Errorf("failed to parse tools list: %w", err)
	}

	return toolsResult.Tools, nil
}

// CallTool calls a tool on the MCP server with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments interface{}) (ToolOutput, error) {
	params := map[string]interface{}{
		"name":      name,
		"arguments": arguments,
	}

	result, err := c.call(ctx, "tools/call", params)
	if err != nil {
		return ToolOutput{}, err
	}

	var out ToolOutput
	if err := json.Unmarshal(result, &out); err != nil {
		return ToolOutput{}, fmt.Errorf("failed to parse tool result: %w", err)
	}
	if out.IsError {
		return out, fmt.Errorf("MCP tool %s failed: %s", name, out.Text())
	}
	return out, nil
}

// notify sends a JSON-RPC notification. No response is expected.
func (c *Client) notify(method string) error {
	return c.write(mcpRequest{JSONRPC: "2.0", Method: method})
}

func (c *Client) write(request mcpRequest) error {
	reqJSON, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.stdin.Write(append(reqJSON, '\n')); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}
	return nil
}

// readLoop delivers each response to the call waiting on its ID. Server
// notifications, unparseable lines and responses nobody waits for are
// dropped.
func (c *Client) readLoop(stdout *bufio.Reader) {
	defer close(c.done)
	for {
		line, err := stdout.ReadBytes('\n')
		if err != nil {
			c.readErr = fmt.Errorf("failed to read response: %w", err)
			return
		}

		var response mcpResponse
		if err := json.Unmarshal(line, &response); err != nil || response.ID == nil {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[*response.ID]
		delete(c.pending, *response.ID)
		c.mu.Unlock()
		if ok {
			ch <- response
		}
	}
}

// call sends a JSON-RPC request and waits for its response, the end of ctx,
// or the server closing its output.
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	// Check context before sending
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	id := c.requestID.Add(1)
	ch := make(chan mcpResponse, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(mcpRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return nil, err
	}

	select {
	case response := <-ch:
		if response.Error != nil {
			return nil, fmt.Errorf("MCP error %d: %s", response.Error.Code, response.Error.Message)
		}
		return response.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, c.readErr
	}
}

// closeGrace bounds how long Close waits for the server's output to drain
// after the process is killed.
const closeGrace = 2 * time.Second

// Close stops the MCP server process and releases resources. Calls still in
// flight fail once the server output closes.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.stdin != nil {
			c.stdin.Close()
		}
		if c.cmd == nil || c.cmd.Process == nil {
			return
		}
		_ = c.cmd.Process.Kill() // Intentionally ignore - cleanup
		select {
		case <-c.done:
		case <-time.After(closeGrace):
		}
		_ = c.cmd.Wait() // Intentionally ignore - cleanup
	})
	return nil
}
