package ls

import (
	"log/slog"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/RakeshSunda/typescript-language-server/internal/tsserver"
)

type bufferState int

const (
	bufferStateInitial bufferState = iota
	bufferStateOpen
	bufferStateClosed
)

type bufferKind int

const (
	bufferKindTypeScript bufferKind = iota
	bufferKindJavaScript
)

func bufferKindForLanguage(languageID string) bufferKind {
	switch languageID {
	case "javascript", "javascriptreact":
		return bufferKindJavaScript
	default:
		return bufferKindTypeScript
	}
}

// bufferOperation is one pending change to the tsserver view of a file.
type bufferOperation interface {
	isBufferOperation()
}

type openOperation struct {
	args tsserver.OpenRequestArgs
}

type closeOperation struct {
	filepath string
}

type changeOperation struct {
	edits tsserver.FileCodeEdits
}

func (openOperation) isBufferOperation()   {}
func (closeOperation) isBufferOperation()  {}
func (changeOperation) isBufferOperation() {}

// BufferSynchronizer batches per-file open/close/change operations into
// single updateOpen commands when tsserver is new enough, and falls back to
// one command per operation otherwise. Callers serialize access; the
// orchestrator drives it under its own lock.
type BufferSynchronizer struct {
	client           tsserver.Client
	supportsBatching bool
	pending          *ResourceMap[bufferOperation]
}

func newBufferSynchronizer(client tsserver.Client, onCaseInsensitiveFileSystem bool) *BufferSynchronizer {
	return &BufferSynchronizer{
		client:           client,
		supportsBatching: !client.APIVersion().LessThan(tsserver.APIv340),
		pending:          newResourceMap[bufferOperation](nil, resourceMapConfig{onCaseInsensitiveFileSystem}),
	}
}

func (s *BufferSynchronizer) Open(resource protocol.DocumentUri, args tsserver.OpenRequestArgs) {
	if s.supportsBatching {
		s.updatePending(resource, openOperation{args})
		return
	}
	s.client.ExecuteWithoutWaitingForResponse(tsserver.CommandOpen, args)
}

// Close reports false when the buffer was never observably open: an open
// still pending against the same resource is elided together with the close.
func (s *BufferSynchronizer) Close(resource protocol.DocumentUri, filepath string) bool {
	if s.supportsBatching {
		return s.updatePending(resource, closeOperation{filepath})
	}
	s.client.ExecuteWithoutWaitingForResponse(tsserver.CommandClose, tsserver.FileRequestArgs{File: filepath})
	return true
}

func (s *BufferSynchronizer) Change(resource protocol.DocumentUri, filepath string, edits []tsserver.CodeEdit) {
	if len(edits) == 0 {
		return
	}
	if s.supportsBatching {
		// End-of-document first, so earlier edits cannot invalidate the
		// positions of later ones when tsserver applies them in order.
		reversed := make([]tsserver.CodeEdit, 0, len(edits))
		for i := len(edits) - 1; i >= 0; i-- {
			reversed = append(reversed, edits[i])
		}
		s.updatePending(resource, changeOperation{tsserver.FileCodeEdits{
			FileName:    filepath,
			TextChanges: reversed,
		}})
		return
	}
	for _, edit := range edits {
		s.client.ExecuteWithoutWaitingForResponse(tsserver.CommandChange, tsserver.ChangeRequestArgs{
			File:         filepath,
			Line:         edit.Start.Line,
			Offset:       edit.Start.Offset,
			EndLine:      edit.End.Line,
			EndOffset:    edit.End.Offset,
			InsertString: edit.NewText,
		})
	}
}

// BeforeCommand flushes pending operations so the named command observes a
// consistent buffer set.
func (s *BufferSynchronizer) BeforeCommand(command tsserver.CommandType) {
	if command == tsserver.CommandUpdateOpen {
		return
	}
	s.flush()
}

// Reset drops pending operations without sending them.
func (s *BufferSynchronizer) Reset() {
	s.pending.Clear()
}

func (s *BufferSynchronizer) flush() {
	if s.pending.Len() == 0 {
		return
	}

	var openFiles []tsserver.OpenRequestArgs
	var closedFiles []string
	var changedFiles []tsserver.FileCodeEdits
	for _, op := range s.pending.Values() {
		switch op := op.(type) {
		case openOperation:
			openFiles = append(openFiles, op.args)
		case closeOperation:
			closedFiles = append(closedFiles, op.filepath)
		case changeOperation:
			changedFiles = append(changedFiles, op.edits)
		}
	}
	s.client.ExecuteWithoutWaitingForResponse(tsserver.CommandUpdateOpen, tsserver.UpdateOpenRequestArgs{
		ChangedFiles: changedFiles,
		ClosedFiles:  closedFiles,
		OpenFiles:    openFiles,
	})
	s.pending.Clear()
}

// updatePending coalesces newOp against any operation already queued for the
// resource. A close landing on a pending open removes the pair entirely;
// any other collision flushes the whole batch first so tsserver observes the
// operations in causal order.
func (s *BufferSynchronizer) updatePending(resource protocol.DocumentUri, newOp bufferOperation) bool {
	if _, isClose := newOp.(closeOperation); isClose {
		if pending, ok := s.pending.Get(resource); ok {
			if _, isOpen := pending.(openOperation); isOpen {
				s.pending.Delete(resource)
				return false
			}
		}
	}
	if s.pending.Has(resource) {
		s.flush()
	}
	s.pending.Set(resource, newOp)
	return true
}

// SyncedBuffer mirrors one editor document into tsserver.
type SyncedBuffer struct {
	document     Document
	filepath     string
	client       tsserver.Client
	synchronizer *BufferSynchronizer
	state        bufferState
}

func newSyncedBuffer(doc Document, filepath string, client tsserver.Client, synchronizer *BufferSynchronizer) *SyncedBuffer {
	return &SyncedBuffer{
		document:     doc,
		filepath:     filepath,
		client:       client,
		synchronizer: synchronizer,
		state:        bufferStateInitial,
	}
}

func (b *SyncedBuffer) resource() protocol.DocumentUri { return b.document.URI() }

func (b *SyncedBuffer) kind() bufferKind { return bufferKindForLanguage(b.document.LanguageID()) }

func (b *SyncedBuffer) lineCount() int { return b.document.LineCount() }

func (b *SyncedBuffer) open() {
	args := tsserver.OpenRequestArgs{
		File:        b.filepath,
		FileContent: b.document.Text(),
	}
	if root, ok := b.client.WorkspaceRootForResource(b.resource()); ok {
		args.ProjectRootPath = root
	}
	if kind := scriptKindName(b.document.LanguageID()); kind != "" {
		args.ScriptKindName = kind
	}
	b.synchronizer.Open(b.resource(), args)
	b.state = bufferStateOpen
}

// close reports whether tsserver observably saw the buffer open.
func (b *SyncedBuffer) close() bool {
	if b.state != bufferStateOpen {
		b.state = bufferStateClosed
		return false
	}
	b.state = bufferStateClosed
	return b.synchronizer.Close(b.resource(), b.filepath)
}

func (b *SyncedBuffer) onContentChanged(edits []tsserver.CodeEdit) {
	if b.state != bufferStateOpen {
		slog.Warn("change event on buffer that is not open", "uri", b.resource(), "state", int(b.state))
	}
	b.synchronizer.Change(b.resource(), b.filepath, edits)
}
