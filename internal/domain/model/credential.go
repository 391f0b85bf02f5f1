package model

import (
	"errors"
	"fmt"
)

// DefaultPassword is assigned to new accounts and on admin reset. A record
// holding it has IsDefaultPassword set until the owner changes it.
const DefaultPassword = "Hallo123"

// ProtectedUsername is the main admin account whose role can never change.
const ProtectedUsername = "admin"

// Credential is a single login record. Username is the unique key. Password
// holds whatever the configured hasher produced (a bcrypt hash, or plaintext
// for installations that keep the legacy wire format). MemberID optionally
// links the login to a team member managed elsewhere.
type Credential struct {
	Username          string `json:"username"`
	Password          string `json:"password"`
	Role              Role   `json:"role"`
	IsDefaultPassword bool   `json:"isDefaultPassword"`
	MemberID          string `json:"memberId,omitempty"`
}

// Credentials is the ordered collection persisted as one document.
type Credentials []Credential

// IndexOf returns the position of the record with the given username, or -1.
func (c Credentials) IndexOf(username string) int {
	for i := range c {
		if c[i].Username == username {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no backing array with c. A nil receiver
// yields an empty, non-nil slice so JSON encodes it as [].
func (c Credentials) Clone() Credentials {
	out := make(Credentials, len(c))
	copy(out, c)
	return out
}

// Validate checks the collection invariants: non-empty unique usernames and
// known roles.
func (c Credentials) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for i, cred := range c {
		if cred.Username == "" {
			return fmt.Errorf("record %d: %w", i, ErrEmptyUsername)
		}
		if !cred.Role.Valid() {
			return fmt.Errorf("record %q: %w: %q", cred.Username, ErrUnknownRole, cred.Role)
		}
		if _, dup := seen[cred.Username]; dup {
			return fmt.Errorf("record %q: %w", cred.Username, ErrDuplicateRecord)
		}
		seen[cred.Username] = struct{}{}
	}
	return nil
}

// Validation errors returned by Credentials.Validate.
var (
	ErrEmptyUsername   = errors.New("username is empty")
	ErrUnknownRole     = errors.New("unknown role")
	ErrDuplicateRecord = errors.New("duplicate username")
)
