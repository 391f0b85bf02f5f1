package application

import "errors"

// Sentinel errors returned by SessionManager. Every failure of a manager
// operation wraps exactly one of them, so callers branch with errors.Is or
// ErrorKind.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrUserNotFound       = errors.New("user not found")
	ErrWrongPassword      = errors.New("wrong password")
	ErrDuplicateUsername  = errors.New("duplicate username")
	ErrProtectedAccount   = errors.New("protected account")
	ErrInvalidInput       = errors.New("invalid input")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrStorageWriteFailed = errors.New("storage write failed")
)

// Kind names an error category in a form suitable for API payloads and logs.
type Kind string

const (
	KindNone               Kind = ""
	KindInvalidCredentials Kind = "InvalidCredentials"
	KindNotAuthenticated   Kind = "NotAuthenticated"
	KindNotAuthorized      Kind = "NotAuthorized"
	KindUserNotFound       Kind = "UserNotFound"
	KindWrongPassword      Kind = "WrongPassword"
	KindDuplicateUsername  Kind = "DuplicateUsername"
	KindProtectedAccount   Kind = "ProtectedAccount"
	KindInvalidInput       Kind = "InvalidInput"
	KindStorageUnavailable Kind = "StorageUnavailable"
	KindStorageWriteFailed Kind = "StorageWriteFailed"
	KindUnknown            Kind = "Unknown"
)

var kinds = []struct {
	err     error
	kind    Kind
	message string
}{
	{ErrInvalidCredentials, KindInvalidCredentials, "invalid username or password"},
	{ErrNotAuthenticated, KindNotAuthenticated, "you must be logged in"},
	{ErrNotAuthorized, KindNotAuthorized, "not authorized"},
	{ErrUserNotFound, KindUserNotFound, "user not found"},
	{ErrWrongPassword, KindWrongPassword, "current password is incorrect"},
	{ErrDuplicateUsername, KindDuplicateUsername, "username already exists"},
	{ErrProtectedAccount, KindProtectedAccount, "cannot change role of the main admin account"},
	{ErrInvalidInput, KindInvalidInput, "invalid input"},
	{ErrStorageUnavailable, KindStorageUnavailable, "storage unavailable"},
	{ErrStorageWriteFailed, KindStorageWriteFailed, "failed to save changes"},
}

// ErrorKind classifies err. It returns KindNone for nil and KindUnknown for
// errors that do not wrap a manager sentinel.
func ErrorKind(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// UserMessage returns a short message for showing err to a person.
// ErrInvalidCredentials never reveals whether the username exists.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.message
		}
	}
	return "something went wrong"
}
