package tasket

import "fmt"

// ConfigNotFoundError is returned when an operation references a backup
// config id that does not exist.
type ConfigNotFoundError struct {
	ID string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("backup config not found: %s", e.ID)
}

// DecryptionError wraps a credential decryption failure. It usually means
// the encryption key was reset after the config was saved.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("failed to decrypt credential: %v", e.Err)
}

func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// UnsupportedVersionError is returned when a snapshot's version is outside
// the range this build can restore.
type UnsupportedVersionError struct {
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported backup version: %d", e.Version)
}

// PartialRestoreError reports that a restore stopped partway. Collections
// replayed before the named one are already in the database.
type PartialRestoreError struct {
	Collection string
	Err        error
}

func (e *PartialRestoreError) Error() string {
	return fmt.Sprintf("restore failed while importing %s: %v", e.Collection, e.Err)
}

func (e *PartialRestoreError) Unwrap() error {
	return e.Err
}
