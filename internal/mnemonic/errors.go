package mnemonic

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEntropyLength = errors.New("invalid entropy length")
	ErrInvalidWordCount     = errors.New("invalid word count")
	ErrUnknownWord          = errors.New("unknown seed word")
	ErrChecksum             = errors.New("checksum failed")
	ErrUnknownSeedType      = errors.New("unknown seed type")
)

// InvalidEntropyLengthError reports entropy that is not a multiple of 32 bits
// between 128 and 256 bits.
type InvalidEntropyLengthError struct {
	Bits int
}

func (e *InvalidEntropyLengthError) Error() string {
	return fmt.Sprintf("incorrect entropy length: %d bits, want a multiple of %d between %d and %d",
		e.Bits, entropyMultiple, minEntropyBits, maxEntropyBits)
}

func (e *InvalidEntropyLengthError) Is(target error) bool {
	return target == ErrInvalidEntropyLength
}

// InvalidWordCountError reports a phrase with a word count the seed type does
// not accept.
type InvalidWordCountError struct {
	Got      int
	SeedType SeedType
}

func (e *InvalidWordCountError) Error() string {
	if e.SeedType == SeedTypeMobile {
		return fmt.Sprintf("invalid number of mobile app seed words: got %d, only 12 word phrases are supported", e.Got)
	}
	return fmt.Sprintf("invalid number of BIP39 seed words: got %d, only 12 or 24 word phrases are supported", e.Got)
}

func (e *InvalidWordCountError) Is(target error) bool {
	return target == ErrInvalidWordCount
}

// UnknownWordError reports a word that matches nothing in the word list.
// Position is zero-based.
type UnknownWordError struct {
	Word     string
	Position int
}

func (e *UnknownWordError) Error() string {
	return fmt.Sprintf("seed word %d (%q) not found in word list", e.Position+1, e.Word)
}

func (e *UnknownWordError) Is(target error) bool {
	return target == ErrUnknownWord
}

// ChecksumError reports checksum bits that do not match the entropy.
type ChecksumError struct {
	Expected byte
	Got      byte
}

func (e *ChecksumError) Error() string {
	return "checksum failed: invalid seed phrase"
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksum
}
