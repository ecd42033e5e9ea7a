package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested path is absent from the backend.
var ErrNotFound = errors.New("not found")

// Storage is a flat key-value file store. The server repositories and the
// client-side filter persistence are both built on it, so backends only need
// whole-file reads and atomic whole-file writes.
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	// List returns the file paths directly under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}
