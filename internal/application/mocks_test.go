package application_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/teampanel/internal/domain/model"
)

// memoryStore is an in-memory driven.CredentialStore that records writes.
type memoryStore struct {
	mu       sync.Mutex
	creds    []model.Credential
	fetchErr error
	writeErr error
	writes   int
}

func newMemoryStore(creds ...model.Credential) *memoryStore {
	return &memoryStore{creds: creds}
}

func (s *memoryStore) FetchAll(_ context.Context) ([]model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return model.Credentials(s.creds).Clone(), nil
}

func (s *memoryStore) ReplaceAll(_ context.Context, creds []model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.creds = model.Credentials(creds).Clone()
	s.writes++
	return nil
}

func (s *memoryStore) stored() []model.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Credentials(s.creds).Clone()
}

func (s *memoryStore) failWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

var errDiskFull = errors.New("disk full")

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
