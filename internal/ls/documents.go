package ls

import (
	"strings"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Document is the read-only view of an open file that buffers consume.
type Document interface {
	URI() protocol.DocumentUri
	LanguageID() string
	Text() string
	LineCount() int
}

type document struct {
	uri        protocol.DocumentUri
	languageID string

	mu        sync.Mutex
	version   protocol.Integer
	text      string
	lineCount int
}

func (d *document) URI() protocol.DocumentUri { return d.uri }

func (d *document) LanguageID() string { return d.languageID }

func (d *document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

func (d *document) LineCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lineCount
}

func (d *document) update(text string, version protocol.Integer) {
	d.mu.Lock()
	d.text = text
	d.version = version
	d.lineCount = countLines(text)
	d.mu.Unlock()
}

func countLines(text string) int {
	return strings.Count(text, "\n") + 1
}

// documentStore tracks the text of every file the editor has open.
type documentStore struct {
	mu   sync.Mutex
	docs map[protocol.DocumentUri]*document
}

func newDocumentStore() *documentStore {
	return &documentStore{docs: make(map[protocol.DocumentUri]*document)}
}

func (s *documentStore) Open(uri protocol.DocumentUri, languageID, text string, version protocol.Integer) *document {
	doc := &document{
		uri:        uri,
		languageID: languageID,
		version:    version,
		text:       text,
		lineCount:  countLines(text),
	}
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
}

func (s *documentStore) Get(uri protocol.DocumentUri) (*document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

func (s *documentStore) Close(uri protocol.DocumentUri) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}
