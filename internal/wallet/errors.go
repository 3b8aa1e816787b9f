package wallet

import (
	"errors"
	"fmt"
)

var (
	// ErrStateMismatch is returned when an operation is invoked on a wallet
	// in the wrong state, such as decrypting a decrypted wallet.
	ErrStateMismatch = errors.New("wallet is in the wrong state for this operation")

	// ErrAuthentication is returned for every decryption failure. A wrong
	// password and a corrupted record are not distinguished.
	ErrAuthentication = errors.New("wallet decryption failed: wrong password or corrupted wallet")

	// ErrFormat is matched by every *FormatError.
	ErrFormat = errors.New("malformed wallet data")

	ErrNotSharded         = errors.New("wallet is not sharded")
	ErrInvalidShare       = errors.New("invalid key share")
	ErrInvalidThreshold   = errors.New("invalid recovery threshold")
	ErrInsufficientShares = errors.New("not enough key shares to recover wallet")
	ErrInconsistentShards = errors.New("key shards belong to different wallets")
	ErrInvalidIterations  = errors.New("iteration count must be at least 1")
	ErrWalletExists       = errors.New("wallet already exists")
	ErrWalletNotFound     = errors.New("wallet not found")
)

// FormatError reports a malformed or truncated wallet stream. Field names the
// part of the record that could not be read.
type FormatError struct {
	Field string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed wallet: %s: %v", e.Field, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

func formatErr(field string, err error) error {
	return &FormatError{Field: field, Err: err}
}
