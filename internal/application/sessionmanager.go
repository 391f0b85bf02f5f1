// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/teampanel/internal/domain/model"
	"github.com/ericfisherdev/teampanel/internal/domain/port/driven"
)

// LoginResult describes a successful login.
type LoginResult struct {
	Session model.Session
	// MustChangePassword is set when the account still uses the default
	// password. It is advisory; the session is established either way.
	MustChangePassword bool
}

// SessionManager owns the in-memory credential collection and the single
// authenticated session of this process. Every accepted mutation is written
// through to the CredentialStore as a full replacement of the collection.
//
// Persistence is awaited: a mutation is built on a copy and only becomes the
// in-memory state once ReplaceAll succeeds. A failed write leaves the
// collection and the session exactly as they were and returns an error
// wrapping ErrStorageWriteFailed.
type SessionManager struct {
	store  driven.CredentialStore
	hasher driven.PasswordHasher
	logger *slog.Logger

	mu      sync.Mutex
	creds   model.Credentials
	session *model.Session
}

// NewSessionManager creates a SessionManager with an empty collection and no
// session. Call Load before use.
func NewSessionManager(store driven.CredentialStore, hasher driven.PasswordHasher, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		store:  store,
		hasher: hasher,
		logger: logger,
		creds:  model.Credentials{},
	}
}

// Load reads the collection from the store. A fetch or parse failure is
// downgraded to an empty collection so the manager stays usable; the returned
// error wraps ErrStorageUnavailable and is meant for logging only.
func (m *SessionManager) Load(ctx context.Context) error {
	creds, err := m.store.FetchAll(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.logger.Warn("credential store unavailable, starting with empty collection", "error", err)
		m.creds = model.Credentials{}
		return fmt.Errorf("load credentials: %w: %w", ErrStorageUnavailable, err)
	}

	m.creds = model.Credentials(creds).Clone()
	m.logger.Info("credentials loaded", "count", len(m.creds))
	return nil
}

// Login authenticates username with password and establishes the session.
// Unknown users and wrong passwords both return ErrInvalidCredentials.
func (m *SessionManager) Login(ctx context.Context, username, password string) (LoginResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.creds.IndexOf(username)
	if idx < 0 {
		return LoginResult{}, ErrInvalidCredentials
	}
	cred := m.creds[idx]

	ok, needsRehash, err := m.hasher.Verify(cred.Password, password)
	if err != nil {
		m.logger.Warn("password verification failed", "username", username, "error", err)
		return LoginResult{}, ErrInvalidCredentials
	}
	if !ok {
		return LoginResult{}, ErrInvalidCredentials
	}

	if needsRehash {
		m.upgradePassword(ctx, idx, password)
	}

	session := model.Session{
		Username: cred.Username,
		Role:     cred.Role,
		MemberID: cred.MemberID,
	}
	m.session = &session

	return LoginResult{
		Session:            session,
		MustChangePassword: cred.IsDefaultPassword,
	}, nil
}

// upgradePassword stores password in the hasher's current format. Failures
// are logged and otherwise ignored; the login has already succeeded.
func (m *SessionManager) upgradePassword(ctx context.Context, idx int, password string) {
	username := m.creds[idx].Username

	hashed, err := m.hasher.Hash(password)
	if err != nil {
		m.logger.Warn("password rehash failed", "username", username, "error", err)
		return
	}

	next := m.creds.Clone()
	next[idx].Password = hashed
	if err := m.commit(ctx, "rehash password", next); err != nil {
		return
	}
	m.logger.Info("password rehashed", "username", username)
}

// Logout clears the session.
func (m *SessionManager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
}

// IsAuthenticated reports whether a session exists.
func (m *SessionManager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// IsAdmin reports whether the session has the admin role. False without a session.
func (m *SessionManager) IsAdmin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isAdminLocked()
}

// IsSelf reports whether the session belongs to the team member memberID.
// A session without a member link matches nothing.
func (m *SessionManager) IsSelf(memberID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil && m.session.MemberID != "" && m.session.MemberID == memberID
}

// CurrentSession returns a copy of the session, if any.
func (m *SessionManager) CurrentSession() (model.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return model.Session{}, false
	}
	return *m.session, true
}

// ChangePassword replaces the session user's password after checking
// currentPassword, and clears the default-password flag.
func (m *SessionManager) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return ErrNotAuthenticated
	}

	idx := m.creds.IndexOf(m.session.Username)
	if idx < 0 {
		m.logger.Error("session user missing from collection", "username", m.session.Username)
		return ErrUserNotFound
	}

	ok, _, err := m.hasher.Verify(m.creds[idx].Password, currentPassword)
	if err != nil {
		m.logger.Warn("password verification failed", "username", m.session.Username, "error", err)
		return ErrWrongPassword
	}
	if !ok {
		return ErrWrongPassword
	}

	if newPassword == "" {
		return fmt.Errorf("%w: new password is empty", ErrInvalidInput)
	}
	hashed, err := m.hash(newPassword)
	if err != nil {
		return err
	}

	next := m.creds.Clone()
	next[idx].Password = hashed
	next[idx].IsDefaultPassword = false

	return m.commit(ctx, "change password", next)
}

// ResetUserPassword sets username's password back to model.DefaultPassword.
// Admin only; the old password is not required.
func (m *SessionManager) ResetUserPassword(ctx context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isAdminLocked() {
		return ErrNotAuthorized
	}

	idx := m.creds.IndexOf(username)
	if idx < 0 {
		return ErrUserNotFound
	}

	hashed, err := m.hash(model.DefaultPassword)
	if err != nil {
		return err
	}

	next := m.creds.Clone()
	next[idx].Password = hashed
	next[idx].IsDefaultPassword = true

	if err := m.commit(ctx, "reset password", next); err != nil {
		return err
	}
	m.logger.Info("password reset to default", "username", username, "by", m.session.Username)
	return nil
}

// ListCredentials returns a copy of the full collection to an admin session
// and an empty collection to anyone else.
func (m *SessionManager) ListCredentials() []model.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isAdminLocked() {
		return []model.Credential{}
	}
	return m.creds.Clone()
}

// AddCredential appends a new account flagged as still using its initial
// password. Admin only.
func (m *SessionManager) AddCredential(ctx context.Context, username, password string, role model.Role, memberID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isAdminLocked() {
		return ErrNotAuthorized
	}

	if m.creds.IndexOf(username) >= 0 {
		return ErrDuplicateUsername
	}
	switch {
	case username == "":
		return fmt.Errorf("%w: username is empty", ErrInvalidInput)
	case password == "":
		return fmt.Errorf("%w: password is empty", ErrInvalidInput)
	case !role.Valid():
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	hashed, err := m.hash(password)
	if err != nil {
		return err
	}

	next := append(m.creds.Clone(), model.Credential{
		Username:          username,
		Password:          hashed,
		Role:              role,
		IsDefaultPassword: true,
		MemberID:          memberID,
	})

	if err := m.commit(ctx, "add credential", next); err != nil {
		return err
	}
	m.logger.Info("credential added", "username", username, "role", role, "by", m.session.Username)
	return nil
}

// UpdateRole changes username's role. Admin only; the main admin account is
// never changed. If the session belongs to username, its role changes too.
func (m *SessionManager) UpdateRole(ctx context.Context, username string, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isAdminLocked() {
		return ErrNotAuthorized
	}
	if username == model.ProtectedUsername {
		return ErrProtectedAccount
	}

	idx := m.creds.IndexOf(username)
	if idx < 0 {
		return ErrUserNotFound
	}
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	next := m.creds.Clone()
	next[idx].Role = role

	by := m.session.Username
	if err := m.commit(ctx, "update role", next); err != nil {
		return err
	}
	if m.session.Username == username {
		m.session.Role = role
	}
	m.logger.Info("role updated", "username", username, "role", role, "by", by)
	return nil
}

// Save writes the current collection to the store unchanged. Admin only.
func (m *SessionManager) Save(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isAdminLocked() {
		return ErrNotAuthorized
	}
	return m.commit(ctx, "save", m.creds.Clone())
}

// EnsureAdminAccount creates the main admin account with the default password
// when the collection has none. It reports whether an account was created.
// It is not role-gated: it runs at bootstrap, before anyone can log in.
func (m *SessionManager) EnsureAdminAccount(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.creds.IndexOf(model.ProtectedUsername) >= 0 {
		return false, nil
	}

	hashed, err := m.hash(model.DefaultPassword)
	if err != nil {
		return false, err
	}

	next := append(m.creds.Clone(), model.Credential{
		Username:          model.ProtectedUsername,
		Password:          hashed,
		Role:              model.RoleAdmin,
		IsDefaultPassword: true,
	})
	if err := m.commit(ctx, "bootstrap admin", next); err != nil {
		return false, err
	}
	m.logger.Info("admin account created with default password")
	return true, nil
}

func (m *SessionManager) isAdminLocked() bool {
	return m.session != nil && m.session.IsAdmin()
}

func (m *SessionManager) hash(plain string) (string, error) {
	hashed, err := m.hasher.Hash(plain)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return hashed, nil
}

// commit persists next and, on success, makes it the in-memory collection.
// Caller must hold m.mu.
func (m *SessionManager) commit(ctx context.Context, op string, next model.Credentials) error {
	if err := m.store.ReplaceAll(ctx, next); err != nil {
		m.logger.Error("persist credentials failed", "op", op, "error", err)
		return fmt.Errorf("%s: %w: %w", op, ErrStorageWriteFailed, err)
	}
	m.creds = next
	return nil
}
