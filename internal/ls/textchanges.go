package ls

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/RakeshSunda/typescript-language-server/internal/tsserver"
)

// applyContentChanges converts an LSP change batch into tsserver edits and
// returns the text after all changes. Each change is converted against the
// text produced by its predecessors, which is the text its positions refer
// to. Range-less changes become an edit spanning the whole previous document.
func applyContentChanges(text string, changes []any) (string, []tsserver.CodeEdit, bool) {
	current := text
	var edits []tsserver.CodeEdit
	ok := true
	for _, change := range changes {
		switch value := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			edits = append(edits, wholeDocumentEdit(current, value.Text))
			current = value.Text
		case protocol.TextDocumentContentChangeEvent:
			if value.Range == nil {
				edits = append(edits, wholeDocumentEdit(current, value.Text))
				current = value.Text
				continue
			}
			edits = append(edits, tsserver.CodeEdit{
				Start:   toLocation(value.Range.Start),
				End:     toLocation(value.Range.End),
				NewText: value.Text,
			})
			current = applyRangeChange(current, *value.Range, value.Text)
		default:
			ok = false
		}
	}
	return current, edits, ok
}

// toLocation converts a 0-based LSP position to a 1-based tsserver location.
func toLocation(pos protocol.Position) tsserver.Location {
	return tsserver.Location{
		Line:   int(pos.Line) + 1,
		Offset: int(pos.Character) + 1,
	}
}

func wholeDocumentEdit(current, newText string) tsserver.CodeEdit {
	lastLineStart := 0
	lines := 1
	for i := 0; i < len(current); i++ {
		if current[i] == '\n' {
			lines++
			lastLineStart = i + 1
		}
	}
	return tsserver.CodeEdit{
		Start:   tsserver.Location{Line: 1, Offset: 1},
		End:     tsserver.Location{Line: lines, Offset: len(current) - lastLineStart + 1},
		NewText: newText,
	}
}

func applyRangeChange(text string, r protocol.Range, replacement string) string {
	start := r.Start.IndexIn(text)
	end := r.End.IndexIn(text)
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	if start > len(text) {
		start = len(text)
	}
	if end > len(text) {
		end = len(text)
	}
	return text[:start] + replacement + text[end:]
}
