// Package interfaces provides service interfaces for dependency injection.
package interfaces

import "context"

// Document is a unit of mutable text content. Enrichment only depends on this
// contract, never on where the document came from.
type Document interface {
	// SourcePath identifies the document in logs
	SourcePath() string

	// Text returns the current content
	Text() string

	// SetText replaces the content
	SetText(text string)
}

// DocumentSource is a collection of documents that can be loaded and written back.
type DocumentSource interface {
	// Documents loads every document in the collection
	Documents(ctx context.Context) ([]Document, error)

	// Write persists the documents after enrichment
	Write(ctx context.Context, docs []Document) error
}
