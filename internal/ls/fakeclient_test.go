package ls

import (
	"context"
	"sync"

	"github.com/Masterminds/semver/v3"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/RakeshSunda/typescript-language-server/internal/tsserver"
)

type fakeCommand struct {
	command tsserver.CommandType
	args    any
}

// fakeClient records every command the core issues. ExecuteAsync can be made
// to block until cancelled, simulating an in-flight geterr.
type fakeClient struct {
	apiVersion   *semver.Version
	capabilities tsserver.Capabilities
	blockAsync   bool

	mu            sync.Mutex
	config        tsserver.Config
	workspaceRoot string
	commands      []fakeCommand
	eventHandlers map[string][]func(body []byte)

	asyncIssued chan fakeCommand
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		apiVersion:    semver.MustParse("4.9.0"),
		capabilities:  tsserver.Capabilities(0).With(tsserver.CapabilitySyntax).With(tsserver.CapabilitySemantic),
		eventHandlers: make(map[string][]func(body []byte)),
		asyncIssued:   make(chan fakeCommand, 16),
	}
}

func (c *fakeClient) APIVersion() *semver.Version { return c.apiVersion }

func (c *fakeClient) Capabilities() tsserver.Capabilities { return c.capabilities }

func (c *fakeClient) HasCapabilityForResource(uri protocol.DocumentUri, cap tsserver.Capability) bool {
	if !c.capabilities.Has(cap) {
		return false
	}
	if cap == tsserver.CapabilitySemantic {
		_, ok := c.ToTsFilePath(uri)
		return ok
	}
	return true
}

func (c *fakeClient) Configuration() tsserver.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

func (c *fakeClient) SetConfiguration(config tsserver.Config) {
	c.mu.Lock()
	c.config = config
	c.mu.Unlock()
}

func (c *fakeClient) SetWorkspaceRoot(root string) {
	c.mu.Lock()
	c.workspaceRoot = root
	c.mu.Unlock()
}

func (c *fakeClient) OnEvent(name string, handler func(body []byte)) {
	c.mu.Lock()
	c.eventHandlers[name] = append(c.eventHandlers[name], handler)
	c.mu.Unlock()
}

// emit delivers an event synchronously, unlike the process client, so tests
// observe the effects immediately.
func (c *fakeClient) emit(name string, body []byte) {
	c.mu.Lock()
	handlers := c.eventHandlers[name]
	c.mu.Unlock()
	for _, handler := range handlers {
		handler(body)
	}
}

func (c *fakeClient) ToTsFilePath(uri protocol.DocumentUri) (string, bool) {
	path := uriToPath(uri)
	return path, path != ""
}

func (c *fakeClient) WorkspaceRootForResource(uri protocol.DocumentUri) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.workspaceRoot == "" {
		return "", false
	}
	return c.workspaceRoot, true
}

func (c *fakeClient) Execute(_ context.Context, command tsserver.CommandType, args any) (*tsserver.Response, error) {
	c.record(command, args)
	return &tsserver.Response{Success: true}, nil
}

func (c *fakeClient) ExecuteWithoutWaitingForResponse(command tsserver.CommandType, args any) {
	c.record(command, args)
}

func (c *fakeClient) ExecuteAsync(ctx context.Context, command tsserver.CommandType, args any) error {
	c.record(command, args)
	select {
	case c.asyncIssued <- fakeCommand{command, args}:
	default:
	}
	if c.blockAsync {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (c *fakeClient) record(command tsserver.CommandType, args any) {
	c.mu.Lock()
	c.commands = append(c.commands, fakeCommand{command, args})
	c.mu.Unlock()
}

func (c *fakeClient) commandsOf(command tsserver.CommandType) []fakeCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []fakeCommand
	for _, cmd := range c.commands {
		if cmd.command == command {
			matched = append(matched, cmd)
		}
	}
	return matched
}

// testDocument is a fixed snapshot implementing Document.
type testDocument struct {
	uri        protocol.DocumentUri
	languageID string
	text       string
}

func (d *testDocument) URI() protocol.DocumentUri { return d.uri }
func (d *testDocument) LanguageID() string        { return d.languageID }
func (d *testDocument) Text() string              { return d.text }
func (d *testDocument) LineCount() int            { return countLines(d.text) }
