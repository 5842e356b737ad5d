package tsserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Masterminds/semver/v3"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"golang.org/x/sync/errgroup"
)

// Options configures a process-backed client.
type Options struct {
	// Path is the tsserver executable.
	Path string
	Args []string

	// APIVersion overrides the assumed protocol version.
	APIVersion   *semver.Version
	Capabilities Capabilities
	Config       Config
}

// ProcessClient drives a tsserver child process. Requests go to stdin as
// newline-delimited JSON; responses and events come back on stdout framed
// with Content-Length headers.
type ProcessClient struct {
	apiVersion   *semver.Version
	capabilities Capabilities

	cfgMu         sync.Mutex
	config        Config
	workspaceRoot string

	cmd          *exec.Cmd
	stdin        io.WriteCloser
	reader       *bufio.Reader
	readerCloser io.Closer

	writeMu sync.Mutex
	nextSeq atomic.Int64

	mu       sync.Mutex
	pending  map[int]chan *Response
	handlers map[string][]func(body []byte)

	group  *errgroup.Group
	closed atomic.Bool
	done   chan struct{}
}

// Start launches the tsserver process described by opts.
func Start(opts Options) (*ProcessClient, error) {
	if opts.Path == "" {
		opts.Path = "tsserver"
	}
	cmd := exec.Command(opts.Path, opts.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("tsserver stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("tsserver stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start tsserver: %w", err)
	}
	c := newProcessClient(stdout, stdin, opts)
	c.cmd = cmd
	c.group.Go(cmd.Wait)
	slog.Debug("tsserver started", "path", opts.Path, "pid", cmd.Process.Pid)
	return c, nil
}

// newProcessClient wires a client over arbitrary pipes. Separated from Start
// so tests can run against an in-memory tsserver.
func newProcessClient(r io.Reader, w io.WriteCloser, opts Options) *ProcessClient {
	version := opts.APIVersion
	if version == nil {
		version = defaultAPIVersion
	}
	caps := opts.Capabilities
	if caps == 0 {
		caps = Capabilities(0).With(CapabilitySyntax).With(CapabilitySemantic)
	}
	c := &ProcessClient{
		apiVersion:   version,
		capabilities: caps,
		config:       opts.Config,
		stdin:        w,
		reader:       bufio.NewReaderSize(r, 64*1024),
		pending:      make(map[int]chan *Response),
		handlers:     make(map[string][]func(body []byte)),
		done:         make(chan struct{}),
	}
	if closer, ok := r.(io.Closer); ok {
		c.readerCloser = closer
	}
	c.group = &errgroup.Group{}
	c.group.Go(c.readLoop)
	return c
}

func (c *ProcessClient) APIVersion() *semver.Version { return c.apiVersion }

func (c *ProcessClient) Capabilities() Capabilities { return c.capabilities }

func (c *ProcessClient) HasCapabilityForResource(uri protocol.DocumentUri, cap Capability) bool {
	if !c.capabilities.Has(cap) {
		return false
	}
	if cap == CapabilitySemantic {
		_, ok := c.ToTsFilePath(uri)
		return ok
	}
	return true
}

func (c *ProcessClient) Configuration() Config {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	return c.config
}

// SetConfiguration replaces the adapter-level settings.
func (c *ProcessClient) SetConfiguration(config Config) {
	c.cfgMu.Lock()
	c.config = config
	c.cfgMu.Unlock()
}

// SetWorkspaceRoot records the root announced by the editor at initialize.
func (c *ProcessClient) SetWorkspaceRoot(root string) {
	c.cfgMu.Lock()
	c.workspaceRoot = root
	c.cfgMu.Unlock()
}

func (c *ProcessClient) ToTsFilePath(uri protocol.DocumentUri) (string, bool) {
	parsed, err := url.Parse(string(uri))
	if err != nil || parsed.Scheme != "file" {
		return "", false
	}
	path, err := url.PathUnescape(parsed.Path)
	if err != nil || path == "" {
		return "", false
	}
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		letter := path[1]
		if ('a' <= letter && letter <= 'z') || ('A' <= letter && letter <= 'Z') {
			path = path[1:]
		}
	}
	return filepath.FromSlash(path), true
}

func (c *ProcessClient) WorkspaceRootForResource(uri protocol.DocumentUri) (string, bool) {
	if _, ok := c.ToTsFilePath(uri); !ok {
		return "", false
	}
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	if c.workspaceRoot == "" {
		return "", false
	}
	return c.workspaceRoot, true
}

func (c *ProcessClient) Execute(ctx context.Context, command CommandType, args any) (*Response, error) {
	resp, err := c.roundTrip(ctx, command, args)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return resp, &RequestError{Command: command, Message: resp.Message}
	}
	return resp, nil
}

func (c *ProcessClient) ExecuteWithoutWaitingForResponse(command CommandType, args any) {
	if c.closed.Load() {
		return
	}
	seq := int(c.nextSeq.Add(1))
	if err := c.send(seq, command, args); err != nil {
		slog.Warn("tsserver send failed", "command", command, "error", err)
	}
}

func (c *ProcessClient) ExecuteAsync(ctx context.Context, command CommandType, args any) error {
	_, err := c.roundTrip(ctx, command, args)
	return err
}

func (c *ProcessClient) roundTrip(ctx context.Context, command CommandType, args any) (*Response, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	seq := int(c.nextSeq.Add(1))
	ch := make(chan *Response, 1)
	c.mu.Lock()
	c.pending[seq] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
	}()

	if err := c.send(seq, command, args); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	case resp := <-ch:
		return resp, nil
	}
}

// OnEvent registers a handler for a named tsserver event. Handlers run on
// their own goroutine so the read loop is never blocked.
func (c *ProcessClient) OnEvent(name string, handler func(body []byte)) {
	c.mu.Lock()
	c.handlers[name] = append(c.handlers[name], handler)
	c.mu.Unlock()
}

// Close shuts down the client and the child process.
func (c *ProcessClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)
	c.stdin.Close()
	if c.readerCloser != nil {
		c.readerCloser.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
	c.group.Wait()
	return nil
}

func (c *ProcessClient) send(seq int, command CommandType, args any) error {
	data, err := json.Marshal(requestMessage{
		Seq:       seq,
		Type:      "request",
		Command:   command,
		Arguments: args,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", command, err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.stdin.Write(data); err != nil {
		return fmt.Errorf("write %s request: %w", command, err)
	}
	return nil
}

func (c *ProcessClient) readLoop() error {
	for {
		body, err := c.readMessage()
		if err != nil {
			if c.closed.Load() || err == io.EOF || err == io.ErrClosedPipe {
				return nil
			}
			slog.Warn("tsserver read failed", "error", err)
			return err
		}
		c.dispatch(body)
	}
}

// readMessage reads one Content-Length framed message from tsserver stdout.
func (c *ProcessClient) readMessage() ([]byte, error) {
	contentLength := 0
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if contentLength > 0 {
				break
			}
			continue
		}
		if rest, ok := strings.CutPrefix(strings.ToLower(line), "content-length:"); ok {
			length, err := strconv.Atoi(strings.TrimSpace(rest))
			if err == nil {
				contentLength = length
			}
		}
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *ProcessClient) dispatch(data []byte) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return
	}

	switch probe.Type {
	case "response":
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return
		}
		c.deliver(resp.RequestSeq, &resp)
	case "event":
		var event eventMessage
		if err := json.Unmarshal(data, &event); err != nil {
			return
		}
		if event.Event == EventRequestCompleted {
			var body requestCompletedBody
			if err := json.Unmarshal(event.Body, &body); err == nil {
				c.deliver(body.RequestSeq, &Response{
					Type:       "response",
					RequestSeq: body.RequestSeq,
					Success:    true,
				})
			}
			return
		}
		c.mu.Lock()
		handlers := c.handlers[event.Event]
		c.mu.Unlock()
		for _, handler := range handlers {
			go handler(event.Body)
		}
	}
}

func (c *ProcessClient) deliver(requestSeq int, resp *Response) {
	c.mu.Lock()
	ch, ok := c.pending[requestSeq]
	if ok {
		delete(c.pending, requestSeq)
	}
	c.mu.Unlock()
	if ok {
		ch <- resp
	}
}
