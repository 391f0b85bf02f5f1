// Package bolt stores the credential collection as a single JSON value in a
// bbolt database.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/ericfisherdev/teampanel/internal/domain/model"
	"github.com/ericfisherdev/teampanel/internal/domain/port/driven"
)

var (
	bucketCredentials = []byte("credentials")
	keyDocument       = []byte("users")
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*Store)(nil)

// Store is the bbolt implementation of the CredentialStore port. The whole
// collection lives under one key, so every ReplaceAll is one bbolt
// transaction.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path. A second process holding the
// file makes Open fail after one second instead of blocking.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCredentials)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// FetchAll decodes the stored document, or returns an empty collection when
// none has been written.
func (s *Store) FetchAll(ctx context.Context) ([]model.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		if b == nil {
			return errors.New("credentials bucket missing")
		}
		// Values are only valid inside the transaction.
		if v := b.Get(keyDocument); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read credential document: %w", err)
	}

	creds := []model.Credential{}
	if len(data) == 0 {
		return creds, nil
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("%w: %w", driven.ErrMalformedDocument, err)
	}
	if creds == nil {
		creds = []model.Credential{}
	}
	return creds, nil
}

// ReplaceAll stores creds as the new document.
func (s *Store) ReplaceAll(ctx context.Context, creds []model.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if creds == nil {
		creds = []model.Credential{}
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credential document: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketCredentials)
		if err != nil {
			return err
		}
		return b.Put(keyDocument, data)
	})
	if err != nil {
		return fmt.Errorf("write credential document: %w", err)
	}
	return nil
}
