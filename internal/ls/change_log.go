package ls

import (
	"fmt"
	"log/slog"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/RakeshSunda/typescript-language-server/internal/tsserver"
)

const maxEditPreview = 40

func logEditSummary(uri protocol.DocumentUri, version protocol.Integer, edits []tsserver.CodeEdit) {
	if len(edits) == 0 {
		return
	}

	summary := make([]string, 0, len(edits))
	for _, edit := range edits {
		preview := truncatePreview(edit.NewText, maxEditPreview)
		summary = append(summary, fmt.Sprintf("%d:%d-%d:%d,len=%d,%q",
			edit.Start.Line, edit.Start.Offset, edit.End.Line, edit.End.Offset, len(edit.NewText), preview))
	}

	slog.Debug("didChange", "uri", uri, "version", version, "edits", strings.Join(summary, "; "))
}

func truncatePreview(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
