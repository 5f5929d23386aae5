// Package mock provides an in-memory file store for testing without the
// telephone platform.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ivr-voice-bridge-service/internal/service/filestore"
)

// Store implements filestore.Adapter in memory. Paths that were never
// written return filestore.ErrNotFound. Failures can be injected per path.
type Store struct {
	mu      sync.Mutex
	files   map[string][]byte
	fail    map[string]error
	fetches map[string]int
	stores  []string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		files:   make(map[string][]byte),
		fail:    make(map[string]error),
		fetches: make(map[string]int),
	}
}

// Put places a file as the telephone platform would.
func (s *Store) Put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = append([]byte(nil), data...)
}

// FailOn makes every Fetch and Store of path return err. A nil err clears it.
func (s *Store) FailOn(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, path)
		return
	}
	s.fail[path] = err
}

// Fetch implements filestore.Adapter.
func (s *Store) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetches[path]++
	if err := s.fail[path]; err != nil {
		return nil, err
	}
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("mock: %s: %w", path, filestore.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Store implements filestore.Adapter.
func (s *Store) Store(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail[path]; err != nil {
		return err
	}
	s.files[path] = append([]byte(nil), data...)
	s.stores = append(s.stores, path)
	return nil
}

// Get returns a stored file.
func (s *Store) Get(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	return data, ok
}

// FetchCount returns how many times path was fetched.
func (s *Store) FetchCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[path]
}

// Uploads returns the paths written through Store, sorted.
func (s *Store) Uploads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.stores...)
	sort.Strings(out)
	return out
}
