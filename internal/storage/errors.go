package storage

import "errors"

var (
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrIndexNotFound     = errors.New("index not found")
	ErrNamespaceNotFound = errors.New("namespace not found")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrDuplicateRecordID = errors.New("duplicate record id")
)
