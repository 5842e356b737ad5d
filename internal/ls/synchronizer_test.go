package ls

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/RakeshSunda/typescript-language-server/internal/tsserver"
)

const (
	testURI  = protocol.DocumentUri("file:///src/a.ts")
	testFile = "/src/a.ts"
)

func openArgs(file string) tsserver.OpenRequestArgs {
	return tsserver.OpenRequestArgs{File: file, FileContent: "const x = 1;\n"}
}

func TestOpenThenCloseElidesBothOperations(t *testing.T) {
	client := newFakeClient()
	sync := newBufferSynchronizer(client, false)

	sync.Open(testURI, openArgs(testFile))
	if wasOpen := sync.Close(testURI, testFile); wasOpen {
		t.Fatal("expected close after pending open to report not observably open")
	}

	sync.BeforeCommand(tsserver.CommandGeterr)
	if got := client.commandsOf(tsserver.CommandUpdateOpen); len(got) != 0 {
		t.Fatalf("expected no updateOpen commands, got %d", len(got))
	}
}

func TestChangeEditsSentEndOfDocumentFirst(t *testing.T) {
	client := newFakeClient()
	sync := newBufferSynchronizer(client, false)

	edits := []tsserver.CodeEdit{
		{Start: tsserver.Location{Line: 1, Offset: 1}, End: tsserver.Location{Line: 1, Offset: 2}, NewText: "a"},
		{Start: tsserver.Location{Line: 5, Offset: 1}, End: tsserver.Location{Line: 5, Offset: 2}, NewText: "b"},
	}
	sync.Change(testURI, testFile, edits)
	sync.BeforeCommand(tsserver.CommandGeterr)

	updates := client.commandsOf(tsserver.CommandUpdateOpen)
	if len(updates) != 1 {
		t.Fatalf("expected one updateOpen, got %d", len(updates))
	}
	args := updates[0].args.(tsserver.UpdateOpenRequestArgs)
	if len(args.ChangedFiles) != 1 {
		t.Fatalf("expected one changed file, got %d", len(args.ChangedFiles))
	}
	changes := args.ChangedFiles[0].TextChanges
	if len(changes) != 2 {
		t.Fatalf("expected two edits, got %d", len(changes))
	}
	if changes[0].Start.Line != 5 || changes[1].Start.Line != 1 {
		t.Fatalf("expected reversed edit order, got lines %d, %d", changes[0].Start.Line, changes[1].Start.Line)
	}
}

func TestEmptyChangeIsIgnored(t *testing.T) {
	client := newFakeClient()
	sync := newBufferSynchronizer(client, false)

	sync.Change(testURI, testFile, nil)
	sync.BeforeCommand(tsserver.CommandGeterr)
	if len(client.commandsOf(tsserver.CommandUpdateOpen)) != 0 {
		t.Fatal("expected empty change batch to produce nothing")
	}
}

func TestSecondOperationFlushesWholeBatch(t *testing.T) {
	client := newFakeClient()
	sync := newBufferSynchronizer(client, false)

	otherURI := protocol.DocumentUri("file:///src/b.ts")
	sync.Open(testURI, openArgs(testFile))
	sync.Open(otherURI, openArgs("/src/b.ts"))
	sync.Change(testURI, testFile, []tsserver.CodeEdit{{
		Start: tsserver.Location{Line: 1, Offset: 1}, End: tsserver.Location{Line: 1, Offset: 1}, NewText: "x",
	}})

	// The change collided with the pending open, so the whole batch,
	// including the unrelated open, must already be flushed.
	updates := client.commandsOf(tsserver.CommandUpdateOpen)
	if len(updates) != 1 {
		t.Fatalf("expected one updateOpen from the collision flush, got %d", len(updates))
	}
	args := updates[0].args.(tsserver.UpdateOpenRequestArgs)
	if len(args.OpenFiles) != 2 {
		t.Fatalf("expected both opens in the flushed batch, got %d", len(args.OpenFiles))
	}

	if sync.pending.Len() != 1 {
		t.Fatalf("expected exactly one pending operation after flush, got %d", sync.pending.Len())
	}
}

func TestBeforeUpdateOpenDoesNotFlush(t *testing.T) {
	client := newFakeClient()
	sync := newBufferSynchronizer(client, false)

	sync.Open(testURI, openArgs(testFile))
	sync.BeforeCommand(tsserver.CommandUpdateOpen)
	if len(client.commandsOf(tsserver.CommandUpdateOpen)) != 0 {
		t.Fatal("expected no flush before an updateOpen command")
	}

	sync.BeforeCommand(tsserver.CommandGeterr)
	if len(client.commandsOf(tsserver.CommandUpdateOpen)) != 1 {
		t.Fatal("expected flush before a non-updateOpen command")
	}
}

func TestResetDropsPendingWithoutSending(t *testing.T) {
	client := newFakeClient()
	sync := newBufferSynchronizer(client, false)

	sync.Open(testURI, openArgs(testFile))
	sync.Reset()
	sync.BeforeCommand(tsserver.CommandGeterr)
	if len(client.commandsOf(tsserver.CommandUpdateOpen)) != 0 {
		t.Fatal("expected reset to drop the pending batch")
	}
}

func TestLegacyModeSendsPerOperationCommands(t *testing.T) {
	client := newFakeClient()
	client.apiVersion = semver.MustParse("3.0.0")
	sync := newBufferSynchronizer(client, false)

	sync.Open(testURI, openArgs(testFile))
	if len(client.commandsOf(tsserver.CommandOpen)) != 1 {
		t.Fatal("expected immediate open command in legacy mode")
	}

	edits := []tsserver.CodeEdit{
		{Start: tsserver.Location{Line: 1, Offset: 1}, End: tsserver.Location{Line: 1, Offset: 2}, NewText: "a"},
		{Start: tsserver.Location{Line: 5, Offset: 1}, End: tsserver.Location{Line: 5, Offset: 2}, NewText: "b"},
	}
	sync.Change(testURI, testFile, edits)
	changes := client.commandsOf(tsserver.CommandChange)
	if len(changes) != 2 {
		t.Fatalf("expected one change command per edit, got %d", len(changes))
	}
	first := changes[0].args.(tsserver.ChangeRequestArgs)
	if first.Line != 1 {
		t.Fatalf("expected legacy changes in editor order, first line %d", first.Line)
	}

	if wasOpen := sync.Close(testURI, testFile); !wasOpen {
		t.Fatal("expected legacy close to report observably open")
	}
	if len(client.commandsOf(tsserver.CommandClose)) != 1 {
		t.Fatal("expected immediate close command in legacy mode")
	}
}

func TestSyncedBufferLifecycle(t *testing.T) {
	client := newFakeClient()
	sync := newBufferSynchronizer(client, false)
	doc := &testDocument{uri: testURI, languageID: "typescript", text: "let a = 1;\n"}
	buffer := newSyncedBuffer(doc, testFile, client, sync)

	if buffer.state != bufferStateInitial {
		t.Fatal("expected new buffer in initial state")
	}

	buffer.open()
	if buffer.state != bufferStateOpen {
		t.Fatal("expected open buffer")
	}
	pending, ok := sync.pending.Get(testURI)
	if !ok {
		t.Fatal("expected pending open operation")
	}
	args := pending.(openOperation).args
	if args.ScriptKindName != "TS" || args.FileContent != "let a = 1;\n" {
		t.Fatalf("unexpected open args: %+v", args)
	}

	if wasOpen := buffer.close(); wasOpen {
		t.Fatal("expected open+close elision to report not observably open")
	}
	if buffer.state != bufferStateClosed {
		t.Fatal("expected closed buffer")
	}
}

func TestSyncedBufferCloseNeverOpened(t *testing.T) {
	client := newFakeClient()
	sync := newBufferSynchronizer(client, false)
	doc := &testDocument{uri: testURI, languageID: "typescript", text: ""}
	buffer := newSyncedBuffer(doc, testFile, client, sync)

	if wasOpen := buffer.close(); wasOpen {
		t.Fatal("expected close of never-opened buffer to report false")
	}
	if buffer.state != bufferStateClosed {
		t.Fatal("expected closed state")
	}
}

func TestSyncedBufferForwardsChangeEvenWhenNotOpen(t *testing.T) {
	client := newFakeClient()
	sync := newBufferSynchronizer(client, false)
	doc := &testDocument{uri: testURI, languageID: "typescript", text: ""}
	buffer := newSyncedBuffer(doc, testFile, client, sync)

	buffer.onContentChanged([]tsserver.CodeEdit{{
		Start: tsserver.Location{Line: 1, Offset: 1}, End: tsserver.Location{Line: 1, Offset: 1}, NewText: "x",
	}})
	if sync.pending.Len() != 1 {
		t.Fatal("expected the edit to be forwarded despite the state warning")
	}
}

func TestScriptKindNames(t *testing.T) {
	tests := []struct {
		languageID string
		want       string
	}{
		{"typescript", "TS"},
		{"typescriptreact", "TSX"},
		{"javascript", "JS"},
		{"javascriptreact", "JSX"},
		{"markdown", ""},
	}
	for _, tt := range tests {
		if got := scriptKindName(tt.languageID); got != tt.want {
			t.Errorf("scriptKindName(%q) = %q, want %q", tt.languageID, got, tt.want)
		}
	}
}
