package crypto

import (
	"errors"
	"fmt"
)

var (
	ErrKeyDerivation      = errors.New("key derivation failed")
	ErrDecryption         = errors.New("wrong passphrase or corrupted data")
	ErrUnsupportedVersion = errors.New("unsupported envelope version")
)

// KeyDerivationError reports bad inputs to the KDF. It is not retryable.
type KeyDerivationError struct {
	Reason string
	Err    error
}

func (e *KeyDerivationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrKeyDerivation, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrKeyDerivation, e.Reason)
}

func (e *KeyDerivationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrKeyDerivation, e.Err}
	}
	return []error{ErrKeyDerivation}
}

// UnsupportedVersionError is returned for envelopes written by a format this
// build cannot read. The record needs migration by a build that can.
type UnsupportedVersionError struct {
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("%s %d (supported: %d..%d)", ErrUnsupportedVersion, e.Version, MinSupportedVersion, MaxSupportedVersion)
}

func (e *UnsupportedVersionError) Is(target error) bool {
	return target == ErrUnsupportedVersion
}

// decryptionError wraps ErrDecryption with a detail that is safe to log.
func decryptionError(detail string) error {
	return fmt.Errorf("%w: %s", ErrDecryption, detail)
}
