package tsserver

import (
	"context"

	"github.com/Masterminds/semver/v3"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Client is the surface of a running tsserver the buffer sync core needs.
// It reconciles the three identifier spaces for one resource: the LSP URI,
// the filesystem path and the tsserver file id returned by ToTsFilePath.
type Client interface {
	APIVersion() *semver.Version
	Capabilities() Capabilities

	// HasCapabilityForResource reports whether cap applies to this
	// particular resource. Semantic operations require an on-disk file.
	HasCapabilityForResource(uri protocol.DocumentUri, cap Capability) bool

	Configuration() Config

	// ToTsFilePath maps a resource to the file id tsserver knows it by.
	// The second result is false when the resource has no tsserver
	// representation; callers drop the resource from the operation.
	ToTsFilePath(uri protocol.DocumentUri) (string, bool)

	// WorkspaceRootForResource reports the project root to announce when
	// opening the resource.
	WorkspaceRootForResource(uri protocol.DocumentUri) (string, bool)

	// Execute sends a command and waits for its response.
	Execute(ctx context.Context, command CommandType, args any) (*Response, error)

	// ExecuteWithoutWaitingForResponse sends a command whose response, if
	// any, is discarded. The write happens in call order with respect to
	// other Execute* calls.
	ExecuteWithoutWaitingForResponse(command CommandType, args any)

	// ExecuteAsync sends a long-running command and blocks until tsserver
	// reports it completed, the context is cancelled, or the client shuts
	// down. Intended to be driven from its own goroutine.
	ExecuteAsync(ctx context.Context, command CommandType, args any) error
}

// EventSource is implemented by clients that surface tsserver events.
type EventSource interface {
	OnEvent(name string, handler func(body []byte))
}
