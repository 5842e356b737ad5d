package ls

import (
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// TabInput identifies what a tab displays. Inputs that do not reference a
// document contribute no resources.
type TabInput interface {
	isTabInput()
}

// TabInputText is a plain text editor tab.
type TabInputText struct {
	URI protocol.DocumentUri
}

// TabInputTextDiff is a diff editor tab showing two documents.
type TabInputTextDiff struct {
	Original protocol.DocumentUri
	Modified protocol.DocumentUri
}

// TabInputNotebook is a notebook editor tab.
type TabInputNotebook struct {
	URI protocol.DocumentUri
}

func (TabInputText) isTabInput()     {}
func (TabInputTextDiff) isTabInput() {}
func (TabInputNotebook) isTabInput() {}

// Tab is one editor tab. Tabs are compared by pointer identity.
type Tab struct {
	Input TabInput
}

func tabResources(tab *Tab) []protocol.DocumentUri {
	switch input := tab.Input.(type) {
	case TabInputText:
		return []protocol.DocumentUri{input.URI}
	case TabInputTextDiff:
		return []protocol.DocumentUri{input.Original, input.Modified}
	case TabInputNotebook:
		return []protocol.DocumentUri{input.URI}
	default:
		return nil
	}
}

// TabChangeEvent carries the resources that became visible or stopped being
// visible in one tab-change batch.
type TabChangeEvent struct {
	Opened []protocol.DocumentUri
	Closed []protocol.DocumentUri
}

// TabResourceTracker maps each resource to the set of tabs displaying it.
// A resource is visible while its tab set is nonempty.
type TabResourceTracker struct {
	mu          sync.Mutex
	tabs        *ResourceMap[map[*Tab]struct{}]
	onDidChange func(TabChangeEvent)
}

func newTabResourceTracker(initial []*Tab, config resourceMapConfig, onDidChange func(TabChangeEvent)) *TabResourceTracker {
	t := &TabResourceTracker{
		tabs:        newResourceMap[map[*Tab]struct{}](nil, config),
		onDidChange: onDidChange,
	}
	for _, tab := range initial {
		t.add(tab, nil)
	}
	return t
}

func (t *TabResourceTracker) Has(resource protocol.DocumentUri) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	tabs, ok := t.tabs.Get(resource)
	return ok && len(tabs) > 0
}

// HandleTabChanges applies one batch of tab deltas and fires a single change
// event when any resource became visible or invisible.
func (t *TabResourceTracker) HandleTabChanges(opened, closed []*Tab) {
	var event TabChangeEvent

	t.mu.Lock()
	for _, tab := range opened {
		t.add(tab, &event.Opened)
	}
	for _, tab := range closed {
		t.delete(tab, &event.Closed)
	}
	t.mu.Unlock()

	if len(event.Opened) > 0 || len(event.Closed) > 0 {
		if t.onDidChange != nil {
			t.onDidChange(event)
		}
	}
}

func (t *TabResourceTracker) add(tab *Tab, newlyOpened *[]protocol.DocumentUri) {
	for _, resource := range tabResources(tab) {
		tabs, ok := t.tabs.Get(resource)
		if !ok {
			tabs = make(map[*Tab]struct{})
			t.tabs.Set(resource, tabs)
			if newlyOpened != nil {
				*newlyOpened = append(*newlyOpened, resource)
			}
		}
		tabs[tab] = struct{}{}
	}
}

func (t *TabResourceTracker) delete(tab *Tab, newlyClosed *[]protocol.DocumentUri) {
	for _, resource := range tabResources(tab) {
		tabs, ok := t.tabs.Get(resource)
		if !ok {
			continue
		}
		delete(tabs, tab)
		if len(tabs) == 0 {
			t.tabs.Delete(resource)
			if newlyClosed != nil {
				*newlyClosed = append(*newlyClosed, resource)
			}
		}
	}
}
