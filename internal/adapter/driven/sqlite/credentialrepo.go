package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ericfisherdev/teampanel/internal/domain/model"
	"github.com/ericfisherdev/teampanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// The collection is kept one row per record; position preserves order.
// ReplaceAll rewrites every row inside a single transaction, so readers see
// either the old or the new collection.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// FetchAll returns every credential ordered by position. An empty table
// yields an empty slice.
func (r *CredentialRepo) FetchAll(ctx context.Context) ([]model.Credential, error) {
	const query = `SELECT username, password, role, is_default_password, member_id
		FROM credentials ORDER BY position`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	creds := []model.Credential{}
	for rows.Next() {
		var cred model.Credential
		var role string
		var memberID sql.NullString

		if err := rows.Scan(&cred.Username, &cred.Password, &role, &cred.IsDefaultPassword, &memberID); err != nil {
			return nil, fmt.Errorf("%w: scan credential: %w", driven.ErrMalformedDocument, err)
		}
		cred.Role = model.Role(role)
		cred.MemberID = memberID.String

		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// ReplaceAll deletes every stored credential and inserts creds in order,
// all in one transaction.
func (r *CredentialRepo) ReplaceAll(ctx context.Context, creds []model.Credential) (err error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace credentials: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}

	const insert = `INSERT INTO credentials
		(position, username, password, role, is_default_password, member_id)
		VALUES (?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert credential: %w", err)
	}
	defer stmt.Close()

	for i, cred := range creds {
		memberID := sql.NullString{String: cred.MemberID, Valid: cred.MemberID != ""}
		if _, err := stmt.ExecContext(ctx, i, cred.Username, cred.Password, string(cred.Role), cred.IsDefaultPassword, memberID); err != nil {
			return fmt.Errorf("insert credential %q: %w", cred.Username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace credentials: %w", err)
	}
	return nil
}
