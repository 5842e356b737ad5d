package ls

import (
	"encoding/json"
	"net/url"
	"path/filepath"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

type initOptions struct {
	// Absent fields leave the client's configuration untouched.
	EnableProjectDiagnostics *bool `json:"enableProjectDiagnostics"`
}

func readInitializationOptions(options any) initOptions {
	var decoded initOptions
	if options == nil {
		return decoded
	}

	data, err := json.Marshal(options)
	if err != nil {
		return decoded
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return initOptions{}
	}
	return decoded
}

func uriToPath(uri protocol.DocumentUri) string {
	parsed, err := url.Parse(string(uri))
	if err != nil {
		return ""
	}
	if parsed.Scheme != "file" {
		return ""
	}
	path, err := url.PathUnescape(parsed.Path)
	if err != nil {
		return ""
	}
	// file:///C:/foo decodes to /C:/foo; drop the slash so the drive
	// letter leads, as tsserver expects on Windows.
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' && isASCIILetter(path[1]) {
		path = path[1:]
	}
	return filepath.FromSlash(path)
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func pathToURI(path string) protocol.DocumentUri {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return protocol.DocumentUri(path)
	}
	absPath = filepath.ToSlash(absPath)
	u := url.URL{
		Scheme: "file",
		Path:   absPath,
	}
	return protocol.DocumentUri(u.String())
}

// defaultPathNormalizer keys file URIs by their decoded filesystem path and
// everything else by the URI itself with the fragment stripped.
func defaultPathNormalizer(uri protocol.DocumentUri) (string, bool) {
	parsed, err := url.Parse(string(uri))
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "file" {
		if path := uriToPath(uri); path != "" {
			return path, true
		}
		return "", false
	}
	parsed.Fragment = ""
	return parsed.String(), true
}

func hasDriveLetterPrefix(path string) bool {
	if len(path) < 3 {
		return false
	}
	return isASCIILetter(path[0]) && path[1] == ':' && (path[2] == '/' || path[2] == '\\')
}

// isCaseInsensitivePath reports whether a normalized key needs case folding.
// Drive-letter paths always do; rooted POSIX paths only when the host
// filesystem is case-insensitive.
func isCaseInsensitivePath(path string, onCaseInsensitiveFileSystem bool) bool {
	if hasDriveLetterPrefix(path) {
		return true
	}
	return onCaseInsensitiveFileSystem && strings.HasPrefix(path, "/")
}

// scriptKindName maps an LSP language id to the script kind tsserver expects
// on open. Empty when the language has no tsserver kind.
func scriptKindName(languageID string) string {
	switch languageID {
	case "typescript":
		return "TS"
	case "typescriptreact":
		return "TSX"
	case "javascript":
		return "JS"
	case "javascriptreact":
		return "JSX"
	default:
		return ""
	}
}
