// Package filestore defines the interface to the telephone platform's
// remote file store.
package filestore

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound reports that the requested file does not exist (yet).
	ErrNotFound = errors.New("remote file not found")
	// ErrTooLarge reports a download that exceeded the store's size limit.
	ErrTooLarge = errors.New("remote file exceeds size limit")
)

// Adapter transfers files to and from the telephone platform.
type Adapter interface {
	// Fetch downloads the file at path. Returns ErrNotFound (possibly
	// wrapped) when the file does not exist.
	Fetch(ctx context.Context, path string) ([]byte, error)

	// Store uploads data to path, replacing any existing file.
	Store(ctx context.Context, path string, data []byte) error
}

// Path builds "<root>/<identity>/<name>".
func Path(root, identity, name string) string {
	return strings.TrimRight(root, "/") + "/" + identity + "/" + name
}
