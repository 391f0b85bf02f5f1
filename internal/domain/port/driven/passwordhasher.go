package driven

// PasswordHasher turns passwords into the value kept in Credential.Password
// and checks candidates against it.
type PasswordHasher interface {
	// Hash returns the stored representation of plain.
	Hash(plain string) (string, error)

	// Verify reports whether plain matches stored. needsRehash is true when
	// stored matched but is not in this hasher's current format.
	Verify(stored, plain string) (ok bool, needsRehash bool, err error)
}
