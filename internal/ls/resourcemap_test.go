package ls

import (
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestResourceMapWindowsPathsFoldCase(t *testing.T) {
	m := newResourceMap[int](nil, resourceMapConfig{})
	m.Set("file:///C:/A/B.ts", 1)

	got, ok := m.Get("file:///c:/a/b.ts")
	if !ok || got != 1 {
		t.Fatalf("expected case-folded lookup to find 1, got %d, %v", got, ok)
	}

	entries := m.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].Resource != "file:///C:/A/B.ts" {
		t.Fatalf("expected original URI preserved, got %s", entries[0].Resource)
	}
}

func TestResourceMapPosixPathsCaseSensitiveByDefault(t *testing.T) {
	m := newResourceMap[int](nil, resourceMapConfig{})
	m.Set("file:///a/b.ts", 1)

	if m.Has("file:///A/B.ts") {
		t.Fatal("expected case-sensitive keys on a case-sensitive filesystem")
	}

	insensitive := newResourceMap[int](nil, resourceMapConfig{onCaseInsensitiveFileSystem: true})
	insensitive.Set("file:///a/b.ts", 1)
	if !insensitive.Has("file:///A/B.ts") {
		t.Fatal("expected case folding on a case-insensitive filesystem")
	}
}

func TestResourceMapOverwriteKeepsOriginalURI(t *testing.T) {
	m := newResourceMap[int](nil, resourceMapConfig{})
	m.Set("file:///C:/A.ts", 1)
	m.Set("file:///c:/a.ts", 2)

	if m.Len() != 1 {
		t.Fatalf("expected one entry, got %d", m.Len())
	}
	entry := m.Entries()[0]
	if entry.Resource != "file:///C:/A.ts" {
		t.Fatalf("expected first-inserted URI, got %s", entry.Resource)
	}
	if entry.Value != 2 {
		t.Fatalf("expected replaced value 2, got %d", entry.Value)
	}
}

func TestResourceMapUnresolvableResource(t *testing.T) {
	normalize := func(uri protocol.DocumentUri) (string, bool) {
		if uri == "opaque:none" {
			return "", false
		}
		return string(uri), true
	}
	m := newResourceMap[int](normalize, resourceMapConfig{})

	m.Set("opaque:none", 1)
	if m.Len() != 0 {
		t.Fatal("expected set with unresolvable key to be a no-op")
	}
	if m.Has("opaque:none") {
		t.Fatal("expected has to be false for unresolvable key")
	}
	if _, ok := m.Get("opaque:none"); ok {
		t.Fatal("expected get to miss for unresolvable key")
	}
	m.Delete("opaque:none")
}

func TestResourceMapIterationOrder(t *testing.T) {
	m := newResourceMap[int](nil, resourceMapConfig{})
	uris := []protocol.DocumentUri{"file:///c.ts", "file:///a.ts", "file:///b.ts"}
	for i, uri := range uris {
		m.Set(uri, i)
	}

	entries := m.Entries()
	for i, entry := range entries {
		if entry.Resource != uris[i] {
			t.Fatalf("expected insertion order at %d, got %s", i, entry.Resource)
		}
	}

	m.Delete("file:///a.ts")
	m.Set("file:///a.ts", 9)
	values := m.Values()
	want := []int{0, 2, 9}
	for i, value := range values {
		if value != want[i] {
			t.Fatalf("expected values %v, got %v", want, values)
		}
	}
}

func TestResourceMapNonFileURIKeyedWithoutFragment(t *testing.T) {
	m := newResourceMap[int](nil, resourceMapConfig{})
	m.Set("untitled:Untitled-1#frag", 1)

	if !m.Has("untitled:Untitled-1") {
		t.Fatal("expected fragment to be ignored in key")
	}
}
