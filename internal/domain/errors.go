package domain

import "errors"

var (
	// ErrExtraction marks an unreadable or unparsable source file.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbedding marks a failure of the embedding provider.
	ErrEmbedding = errors.New("embedding failed")

	// ErrPersistence marks a failure reading or writing store artifacts.
	ErrPersistence = errors.New("persistence failed")

	// ErrInconsistentState means the index and document artifacts disagree.
	// The store must be rebuilt from the source PDFs.
	ErrInconsistentState = errors.New("inconsistent store state")

	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingSpace means the store was built with a different embedding model.
	ErrEmbeddingSpace = errors.New("embedding space mismatch")

	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoDocuments is returned when an answer has no supporting documents.
	ErrNoDocuments = errors.New("no relevant documents found")
)
