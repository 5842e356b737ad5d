package ls

import (
	"log/slog"
	"sync"
	"time"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/RakeshSunda/typescript-language-server/internal/tsserver"
)

const (
	diagnosticsDelayDefault = 200 * time.Millisecond
	diagnosticsDelayBase    = 300 * time.Millisecond
	diagnosticsDelayMin     = 300 * time.Millisecond
	diagnosticsDelayMax     = 800 * time.Millisecond
)

// BufferSyncSupport keeps tsserver's view of open files in step with the
// editor and drives the debounced diagnostics loop over them.
type BufferSyncSupport struct {
	client  tsserver.Client
	modeIDs map[string]struct{}

	// OnDelete fires after a buffer is removed; OnWillChange fires before a
	// change batch is forwarded. Set before the first editor event arrives.
	OnDelete     func(resource protocol.DocumentUri)
	OnWillChange func(resource protocol.DocumentUri)

	mu                 sync.Mutex
	syncedBuffers      *ResourceMap[*SyncedBuffer]
	pendingDiagnostics *PendingDiagnostics
	pendingGetErr      *GetErrRequest
	synchronizer       *BufferSynchronizer
	tabs               *TabResourceTracker
	diagnosticDelayer  *Delayer
	validateJavaScript bool
	validateTypeScript bool
}

func NewBufferSyncSupport(client tsserver.Client, modeIDs []string, initialTabs []*Tab, onCaseInsensitiveFileSystem bool) *BufferSyncSupport {
	accepted := make(map[string]struct{}, len(modeIDs))
	for _, id := range modeIDs {
		accepted[id] = struct{}{}
	}

	// Buffers and pending diagnostics are keyed by the tsserver file id so
	// that all three identifier spaces for a resource collapse to one key.
	normalize := func(uri protocol.DocumentUri) (string, bool) {
		return client.ToTsFilePath(uri)
	}
	config := resourceMapConfig{onCaseInsensitiveFileSystem}

	s := &BufferSyncSupport{
		client:             client,
		modeIDs:            accepted,
		syncedBuffers:      newResourceMap[*SyncedBuffer](normalize, config),
		pendingDiagnostics: newPendingDiagnostics(normalize, config),
		synchronizer:       newBufferSynchronizer(client, onCaseInsensitiveFileSystem),
		diagnosticDelayer:  newDelayer(diagnosticsDelayBase),
		validateJavaScript: true,
		validateTypeScript: true,
	}
	s.tabs = newTabResourceTracker(initialTabs, config, s.onDidChangeTabs)
	return s
}

// Handles reports whether the resource is a tracked buffer.
func (s *BufferSyncSupport) Handles(resource protocol.DocumentUri) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncedBuffers.Has(resource)
}

// SetValidate updates which buffer kinds are eligible for diagnostics.
func (s *BufferSyncSupport) SetValidate(validateJavaScript, validateTypeScript bool) {
	s.mu.Lock()
	s.validateJavaScript = validateJavaScript
	s.validateTypeScript = validateTypeScript
	s.mu.Unlock()
}

// HandleDidOpenTextDocument starts tracking doc. Reports whether the
// document is (now or already) tracked.
func (s *BufferSyncSupport) HandleDidOpenTextDocument(doc Document) bool {
	if _, ok := s.modeIDs[doc.LanguageID()]; !ok {
		return false
	}
	resource := doc.URI()
	filepath, ok := s.client.ToTsFilePath(resource)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncedBuffers.Has(resource) {
		return true
	}
	buffer := newSyncedBuffer(doc, filepath, s.client, s.synchronizer)
	s.syncedBuffers.Set(resource, buffer)
	buffer.open()
	s.requestDiagnosticLocked(buffer)
	return true
}

func (s *BufferSyncSupport) HandleDidCloseTextDocument(resource protocol.DocumentUri) {
	s.mu.Lock()
	buffer, ok := s.syncedBuffers.Get(resource)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.pendingDiagnostics.Delete(resource)
	if s.pendingGetErr != nil {
		s.pendingGetErr.files.Delete(resource)
	}
	s.syncedBuffers.Delete(resource)
	wasOpen := buffer.close()
	onDelete := s.OnDelete
	s.mu.Unlock()

	if onDelete != nil {
		onDelete(resource)
	}
	if wasOpen {
		s.RequestAllDiagnostics()
	}
}

func (s *BufferSyncSupport) HandleDidChangeTextDocument(resource protocol.DocumentUri, edits []tsserver.CodeEdit) {
	s.mu.Lock()
	buffer, ok := s.syncedBuffers.Get(resource)
	if !ok {
		s.mu.Unlock()
		return
	}
	onWillChange := s.OnWillChange
	s.mu.Unlock()

	if onWillChange != nil {
		onWillChange(resource)
	}

	s.mu.Lock()
	buffer.onContentChanged(edits)
	didTrigger := s.requestDiagnosticLocked(buffer)
	if !didTrigger && s.pendingGetErr != nil {
		// The edited file is not eligible for validation, but an in-flight
		// request would otherwise report stale state for it. Restart the
		// cycle so the file is not skipped.
		s.pendingGetErr.Cancel()
		s.pendingGetErr = nil
		s.triggerDiagnosticsLocked(diagnosticsDelayDefault)
	}
	s.mu.Unlock()
}

// HandleDidChangeVisibleEditors schedules diagnostics for every tracked
// document that just became visible.
func (s *BufferSyncSupport) HandleDidChangeVisibleEditors(resources []protocol.DocumentUri) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, resource := range resources {
		if buffer, ok := s.syncedBuffers.Get(resource); ok {
			s.requestDiagnosticLocked(buffer)
		}
	}
}

// HandleTabChanges applies one batch of editor tab deltas.
func (s *BufferSyncSupport) HandleTabChanges(opened, closed []*Tab) {
	s.tabs.HandleTabChanges(opened, closed)
}

func (s *BufferSyncSupport) onDidChangeTabs(event TabChangeEvent) {
	if s.client.Configuration().EnableProjectDiagnostics {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, resource := range event.Closed {
		if s.syncedBuffers.Has(resource) {
			s.pendingDiagnostics.Delete(resource)
			if s.pendingGetErr != nil {
				s.pendingGetErr.files.Delete(resource)
			}
		}
	}
	for _, resource := range event.Opened {
		if buffer, ok := s.syncedBuffers.Get(resource); ok {
			s.requestDiagnosticLocked(buffer)
		}
	}
}

// BeforeCommand flushes buffered operations so command observes a consistent
// buffer set.
func (s *BufferSyncSupport) BeforeCommand(command tsserver.CommandType) {
	s.mu.Lock()
	s.synchronizer.BeforeCommand(command)
	s.mu.Unlock()
}

// RequestAllDiagnostics re-enqueues every validatable buffer.
func (s *BufferSyncSupport) RequestAllDiagnostics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, buffer := range s.syncedBuffers.Values() {
		if s.shouldValidateLocked(buffer) {
			s.pendingDiagnostics.Set(buffer.resource(), now)
		}
	}
	s.triggerDiagnosticsLocked(diagnosticsDelayDefault)
}

func (s *BufferSyncSupport) requestDiagnosticLocked(buffer *SyncedBuffer) bool {
	if !s.shouldValidateLocked(buffer) {
		return false
	}
	s.pendingDiagnostics.Set(buffer.resource(), time.Now())

	delay := time.Duration((buffer.lineCount()+19)/20) * time.Millisecond
	if delay < diagnosticsDelayMin {
		delay = diagnosticsDelayMin
	}
	if delay > diagnosticsDelayMax {
		delay = diagnosticsDelayMax
	}
	s.triggerDiagnosticsLocked(delay)
	return true
}

func (s *BufferSyncSupport) triggerDiagnosticsLocked(delay time.Duration) {
	s.diagnosticDelayer.TriggerWithDelay(s.sendPendingDiagnostics, delay)
}

func (s *BufferSyncSupport) sendPendingDiagnostics() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := s.pendingDiagnostics.GetOrderedFileSet()
	if s.pendingGetErr != nil {
		// The replaced request's files carry over so none miss the new cycle.
		s.pendingGetErr.Cancel()
		for _, entry := range s.pendingGetErr.files.Entries() {
			if s.syncedBuffers.Has(entry.Resource) {
				ordered.Set(entry.Resource, struct{}{})
			}
		}
		s.pendingGetErr = nil
	}

	// Every synced buffer rides along; tsserver dedups by file.
	for _, buffer := range s.syncedBuffers.Values() {
		ordered.Set(buffer.resource(), struct{}{})
	}

	if ordered.Len() > 0 {
		s.synchronizer.BeforeCommand(tsserver.CommandGeterr)
		var request *GetErrRequest
		request = newGetErrRequest(s.client, ordered, func() {
			s.mu.Lock()
			if s.pendingGetErr == request {
				s.pendingGetErr = nil
			}
			s.mu.Unlock()
		})
		s.pendingGetErr = request
	}
	s.pendingDiagnostics.Clear()
}

func (s *BufferSyncSupport) shouldValidateLocked(buffer *SyncedBuffer) bool {
	if !s.client.Configuration().EnableProjectDiagnostics && !s.tabs.Has(buffer.resource()) {
		return false
	}
	switch buffer.kind() {
	case bufferKindJavaScript:
		return s.validateJavaScript
	default:
		return s.validateTypeScript
	}
}

// InterruptGetErr runs f with any in-flight diagnostics request out of the
// way, then restarts the diagnostics cycle.
func (s *BufferSyncSupport) InterruptGetErr(f func()) {
	s.mu.Lock()
	if s.pendingGetErr == nil || s.client.Configuration().EnableProjectDiagnostics {
		s.mu.Unlock()
		f()
		return
	}
	s.pendingGetErr.Cancel()
	s.pendingGetErr = nil
	s.mu.Unlock()

	f()

	s.mu.Lock()
	s.triggerDiagnosticsLocked(diagnosticsDelayDefault)
	s.mu.Unlock()
}

// Reset drops scheduled work without touching synced buffers.
func (s *BufferSyncSupport) Reset() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
}

func (s *BufferSyncSupport) resetLocked() {
	if s.pendingGetErr != nil {
		s.pendingGetErr.Cancel()
	}
	s.pendingDiagnostics.Clear()
	s.synchronizer.Reset()
}

// Reinitialize re-announces every tracked buffer. Used after the tsserver
// process has been restarted.
func (s *BufferSyncSupport) Reinitialize() {
	s.mu.Lock()
	s.resetLocked()
	for _, buffer := range s.syncedBuffers.Values() {
		buffer.open()
	}
	s.mu.Unlock()
	slog.Debug("reinitialized buffers")
}

// Close cancels scheduled work and the in-flight request, if any.
func (s *BufferSyncSupport) Close() {
	s.diagnosticDelayer.Cancel()
	s.mu.Lock()
	if s.pendingGetErr != nil {
		s.pendingGetErr.Cancel()
		s.pendingGetErr = nil
	}
	s.mu.Unlock()
}
