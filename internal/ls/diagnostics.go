package ls

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/RakeshSunda/typescript-language-server/internal/tsserver"
)

func diagnosticsFromTsserver(diags []tsserver.Diagnostic) []protocol.Diagnostic {
	converted := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		converted = append(converted, tsserverDiagnostic(d))
	}
	return converted
}

func tsserverDiagnostic(d tsserver.Diagnostic) protocol.Diagnostic {
	severity := severityForCategory(d.Category)
	diag := protocol.Diagnostic{
		Range: protocol.Range{
			Start: positionFromLocation(d.Start),
			End:   positionFromLocation(d.End),
		},
		Severity: &severity,
		Message:  d.Text,
		Source:   &ServerName,
	}
	if d.Code != 0 {
		code := protocol.IntegerOrString{Value: protocol.Integer(d.Code)}
		diag.Code = &code
	}
	return diag
}

// positionFromLocation converts a 1-based tsserver location to a 0-based
// LSP position.
func positionFromLocation(loc tsserver.Location) protocol.Position {
	line := loc.Line - 1
	character := loc.Offset - 1
	if line < 0 {
		line = 0
	}
	if character < 0 {
		character = 0
	}
	return protocol.Position{
		Line:      protocol.UInteger(line),
		Character: protocol.UInteger(character),
	}
}

func severityForCategory(category string) protocol.DiagnosticSeverity {
	switch category {
	case "error":
		return protocol.DiagnosticSeverityError
	case "warning":
		return protocol.DiagnosticSeverityWarning
	case "suggestion":
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityInformation
	}
}
