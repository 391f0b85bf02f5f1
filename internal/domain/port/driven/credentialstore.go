// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/teampanel/internal/domain/model"
)

// ErrMalformedDocument is wrapped by FetchAll when the stored collection
// cannot be decoded.
var ErrMalformedDocument = errors.New("malformed credential document")

// CredentialStore defines the driven port for durable storage of the single
// credential collection document. There is no per-record update: the whole
// collection is read and written as one unit.
type CredentialStore interface {
	// FetchAll returns the persisted collection in stored order. It returns an
	// empty, non-nil slice when nothing has been stored yet; missing storage is
	// never an error. Undecodable content is reported wrapping ErrMalformedDocument.
	FetchAll(ctx context.Context) ([]model.Credential, error)

	// ReplaceAll overwrites the persisted collection with creds. Records not in
	// creds are discarded. Readers never observe a partially written document.
	ReplaceAll(ctx context.Context, creds []model.Credential) error
}
