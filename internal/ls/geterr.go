package ls

import (
	"context"
	"sync"

	"github.com/RakeshSunda/typescript-language-server/internal/tsserver"
)

// GetErrRequest is one in-flight diagnostics request against tsserver. At
// most one exists per orchestrator; a new drain cancels and replaces it.
type GetErrRequest struct {
	files  *ResourceSet
	cancel context.CancelFunc

	mu   sync.Mutex
	done bool
}

// newGetErrRequest issues a diagnostics request for files. onDone fires
// exactly once, on completion, failure or cancellation; when the request
// resolves without reaching tsserver (reporting disabled, nothing left after
// filtering) it fires on a fresh goroutine so the caller can store the
// returned handle first.
func newGetErrRequest(client tsserver.Client, files *ResourceSet, onDone func()) *GetErrRequest {
	ctx, cancel := context.WithCancel(context.Background())
	r := &GetErrRequest{
		files:  files,
		cancel: cancel,
	}

	if !errorReportingEnabled(client) {
		r.done = true
		go onDone()
		return r
	}

	supportsSyntaxGetErr := !client.APIVersion().LessThan(tsserver.APIv440)
	var allFiles []string
	for _, entry := range files.Entries() {
		if !supportsSyntaxGetErr && !client.HasCapabilityForResource(entry.Resource, tsserver.CapabilitySemantic) {
			continue
		}
		if filepath, ok := client.ToTsFilePath(entry.Resource); ok {
			allFiles = append(allFiles, filepath)
		}
	}
	if len(allFiles) == 0 {
		r.done = true
		go onDone()
		return r
	}

	go func() {
		if projectDiagnosticsEnabled(client) {
			// tsserver computes the whole project from a single file.
			client.ExecuteAsync(ctx, tsserver.CommandGeterrForProject, tsserver.GeterrForProjectRequestArgs{
				Delay: 0,
				File:  allFiles[0],
			})
		} else {
			client.ExecuteAsync(ctx, tsserver.CommandGeterr, tsserver.GeterrRequestArgs{
				Delay: 0,
				Files: allFiles,
			})
		}

		r.mu.Lock()
		if r.done {
			r.mu.Unlock()
			return
		}
		r.done = true
		r.mu.Unlock()
		onDone()
	}()
	return r
}

// Cancel cancels the context the request was issued under, which ends its
// ExecuteAsync call. Idempotent; racing with natural completion still fires
// onDone only once.
func (r *GetErrRequest) Cancel() {
	r.cancel()
}

func errorReportingEnabled(client tsserver.Client) bool {
	if !client.APIVersion().LessThan(tsserver.APIv440) {
		return true
	}
	return client.Capabilities().Has(tsserver.CapabilitySemantic)
}

func projectDiagnosticsEnabled(client tsserver.Client) bool {
	return client.Configuration().EnableProjectDiagnostics &&
		client.Capabilities().Has(tsserver.CapabilitySemantic)
}
