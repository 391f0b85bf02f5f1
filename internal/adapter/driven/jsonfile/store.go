// Package jsonfile stores the credential collection as one indented JSON
// document on disk.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/teampanel/internal/domain/model"
	"github.com/ericfisherdev/teampanel/internal/domain/port/driven"
)

// lockRetryDelay is how often a blocked caller retries the file lock.
const lockRetryDelay = 20 * time.Millisecond

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*Store)(nil)

// Store is the JSON file implementation of the CredentialStore port.
//
// Writes go to a temporary file in the same directory which is then renamed
// over the document, so a crash never leaves a truncated file. An advisory
// lock on "<path>.lock" keeps other processes from interleaving with us; mu
// does the same for goroutines sharing the single flock handle.
type Store struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// New returns a Store for the document at path, creating the parent
// directory if needed. The document itself is created on first write.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// FetchAll reads the document. A missing or empty file is an empty collection.
func (s *Store) FetchAll(ctx context.Context) ([]model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return nil, fmt.Errorf("acquire read lock: %w", err)
	}
	defer s.unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.Credential{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential document: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []model.Credential{}, nil
	}

	var creds []model.Credential
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", driven.ErrMalformedDocument, s.path, err)
	}
	if creds == nil {
		creds = []model.Credential{}
	}
	return creds, nil
}

// ReplaceAll atomically overwrites the document with creds.
func (s *Store) ReplaceAll(ctx context.Context, creds []model.Credential) error {
	if creds == nil {
		creds = []model.Credential{}
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	defer s.unlock()

	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write credential document: %w", err)
	}
	return nil
}

func (s *Store) unlock() {
	// Unlock only fails if the descriptor is already gone; the next lock
	// attempt reopens it.
	_ = s.lock.Unlock()
}
