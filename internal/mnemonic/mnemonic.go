// Package mnemonic converts between key entropy and BIP-39 style word phrases.
//
// Two seed types share the English word list. SeedTypeBIP39 embeds the
// leading bits of SHA-256(entropy) as checksum and accepts 12 or 24 words.
// SeedTypeMobile is the legacy mobile-app format: 12 words whose checksum
// bits are always zero.
//
// Decoded entropy is always 32 bytes. A 12-word phrase carries 128 bits; they
// are written twice to fill the buffer, and EntropyToMnemonic recognises such
// a doubled buffer and encodes only one half.
package mnemonic

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Klingon-tech/shardwallet/pkg/crypto"
	"github.com/tyler-smith/go-bip39"
)

// SeedType selects the checksum policy of a phrase.
type SeedType uint8

const (
	SeedTypeBIP39 SeedType = iota
	SeedTypeMobile
)

// EntropySize is the length of decoded entropy in bytes.
const EntropySize = 32

const (
	bitsPerWord         = 11
	checksumBitsPerWord = 3
	entropyMultiple     = 32
	minEntropyBits      = 128
	maxEntropyBits      = 256
)

// String returns "bip39" or "mobile".
func (t SeedType) String() string {
	switch t {
	case SeedTypeBIP39:
		return "bip39"
	case SeedTypeMobile:
		return "mobile"
	default:
		return fmt.Sprintf("seedtype(%d)", uint8(t))
	}
}

// ParseSeedType parses "bip39" or "mobile".
func ParseSeedType(s string) (SeedType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bip39":
		return SeedTypeBIP39, nil
	case "mobile":
		return SeedTypeMobile, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSeedType, s)
	}
}

func (t SeedType) valid() bool {
	return t == SeedTypeBIP39 || t == SeedTypeMobile
}

// EntropyToMnemonic encodes entropy as a word phrase. The entropy must be a
// multiple of 32 bits between 128 and 256 bits, or such a value written twice.
func EntropyToMnemonic(entropy []byte, seedType SeedType) ([]string, error) {
	if !seedType.valid() {
		return nil, ErrUnknownSeedType
	}

	working := entropy
	if half := len(entropy) / 2; half > 0 && bytes.Equal(entropy[:half], entropy[half:]) {
		working = entropy[:half]
	}

	bits := len(working) * 8
	if bits%entropyMultiple != 0 || bits < minEntropyBits || bits > maxEntropyBits {
		return nil, &InvalidEntropyLengthError{Bits: bits}
	}
	csBits := bits / entropyMultiple

	// Entropy followed by one checksum byte; only its top csBits are encoded.
	buf := make([]byte, len(working)+1)
	defer clear(buf)
	copy(buf, working)
	buf[len(working)] = checksum(working, seedType)

	list := English()
	words := make([]string, (bits+csBits)/bitsPerWord)
	for i := range words {
		words[i] = list.Word(readBits(buf, i*bitsPerWord, bitsPerWord))
	}
	return words, nil
}

// MnemonicToEntropy decodes a word phrase back into 32 bytes of entropy.
// Words may be abbreviated to their first four (or more) letters.
func MnemonicToEntropy(words []string, seedType SeedType) ([EntropySize]byte, error) {
	var out [EntropySize]byte
	if err := checkWordCount(len(words), seedType); err != nil {
		return out, err
	}

	totalBits := len(words) * bitsPerWord
	buf := make([]byte, (totalBits+7)/8)
	defer clear(buf)

	list := English()
	for i, w := range words {
		idx, ok := list.Find(w)
		if !ok {
			return out, &UnknownWordError{Word: w, Position: i}
		}
		writeBits(buf, i*bitsPerWord, bitsPerWord, idx)
	}

	csBits := len(words) / checksumBitsPerWord
	entropyBits := totalBits - csBits
	entropy := buf[:entropyBits/8]

	got := byte(readBits(buf, entropyBits, csBits))
	want := checksum(entropy, seedType) >> (8 - csBits)
	if got != want {
		return out, &ChecksumError{Expected: want, Got: got}
	}

	// A 12-word phrase fills both halves with the same 128 bits.
	for off := 0; off < EntropySize; off += len(entropy) {
		copy(out[off:], entropy)
	}
	return out, nil
}

// Validate checks a phrase without returning its entropy.
func Validate(words []string, seedType SeedType) error {
	entropy, err := MnemonicToEntropy(words, seedType)
	clear(entropy[:])
	return err
}

// NewEntropy returns fresh random entropy for a phrase of wordCount words
// (12 or 24). For 12 words the 16 random bytes are written twice.
func NewEntropy(wordCount int) ([EntropySize]byte, error) {
	var out [EntropySize]byte
	if err := checkWordCount(wordCount, SeedTypeBIP39); err != nil {
		return out, err
	}
	bits := wordCount*bitsPerWord - wordCount/checksumBitsPerWord
	raw, err := bip39.NewEntropy(bits)
	if err != nil {
		return out, fmt.Errorf("generate entropy: %w", err)
	}
	defer clear(raw)
	for off := 0; off < EntropySize; off += len(raw) {
		copy(out[off:], raw)
	}
	return out, nil
}

// ParsePhrase splits a phrase into words on any whitespace.
func ParsePhrase(phrase string) []string {
	return strings.Fields(phrase)
}

// JoinPhrase joins words with single spaces.
func JoinPhrase(words []string) string {
	return strings.Join(words, " ")
}

func checkWordCount(n int, seedType SeedType) error {
	switch seedType {
	case SeedTypeBIP39:
		if n == 12 || n == 24 {
			return nil
		}
	case SeedTypeMobile:
		if n == 12 {
			return nil
		}
	default:
		return ErrUnknownSeedType
	}
	return &InvalidWordCountError{Got: n, SeedType: seedType}
}

// checksum returns the byte whose leading bits are the phrase checksum.
// The mobile format never computed a checksum, so it is always zero.
func checksum(entropy []byte, seedType SeedType) byte {
	if seedType == SeedTypeMobile {
		return 0
	}
	h := crypto.Hash(entropy)
	return h[0]
}

// readBits returns n bits of buf starting at bit offset pos, MSB first.
func readBits(buf []byte, pos, n int) int {
	v := 0
	for i := 0; i < n; i++ {
		p := pos + i
		v = v<<1 | int(buf[p/8]>>(7-uint(p%8))&1)
	}
	return v
}

// writeBits stores the low n bits of v into buf at bit offset pos, MSB first.
// buf must be zeroed in that range.
func writeBits(buf []byte, pos, n, v int) {
	for i := 0; i < n; i++ {
		if v>>(n-1-i)&1 == 1 {
			p := pos + i
			buf[p/8] |= 1 << (7 - uint(p%8))
		}
	}
}
