package ls

import (
	"sort"
	"time"
)

// ResourceSet is a ResourceMap used for membership only.
type ResourceSet = ResourceMap[struct{}]

// PendingDiagnostics records when each file last asked for diagnostics.
// Re-adding a file overwrites its timestamp; a later request supersedes an
// earlier one.
type PendingDiagnostics struct {
	*ResourceMap[time.Time]
}

func newPendingDiagnostics(normalize pathNormalizer, config resourceMapConfig) *PendingDiagnostics {
	return &PendingDiagnostics{newResourceMap[time.Time](normalize, config)}
}

// GetOrderedFileSet returns the pending files oldest-request first, ties
// broken by insertion order.
func (p *PendingDiagnostics) GetOrderedFileSet() *ResourceSet {
	entries := p.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value.Before(entries[j].Value)
	})

	ordered := newResourceMap[struct{}](p.normalize, p.config)
	for _, entry := range entries {
		ordered.Set(entry.Resource, struct{}{})
	}
	return ordered
}
