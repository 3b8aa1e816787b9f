// Package wallet implements password-encrypted key storage.
//
// A wallet is either basic, holding one encrypted key pair, or sharded, where
// the same encrypted record is written to several files that each carry one
// share of a secret mixed into the encryption key. Every wallet value is in
// exactly one of two states: decrypted (in memory only) or encrypted (the
// only form that is persisted). Transitions return new values and never
// modify the receiver.
package wallet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Klingon-tech/shardwallet/pkg/crypto"
)

// Kind identifies the wallet variant in the file envelope.
type Kind uint16

const (
	KindBasic   Kind = 0x0001
	KindSharded Kind = 0x0101
)

// String returns "basic" or "sharded".
func (k Kind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindSharded:
		return "sharded"
	default:
		return fmt.Sprintf("kind(0x%04x)", uint16(k))
	}
}

// Wallet is implemented by the four wallet states: *DecryptedBasic,
// *EncryptedBasic, *DecryptedSharded and *EncryptedSharded.
type Wallet interface {
	// PublicKey is available in every state.
	PublicKey() crypto.PublicKey
	Kind() Kind
	IsEncrypted() bool

	sealed()
}

// IsSharded reports whether w is a sharded wallet.
func IsSharded(w Wallet) bool {
	return w.Kind() == KindSharded
}

// Encrypt encrypts a decrypted wallet of either kind.
func Encrypt(w Wallet, password []byte, salt Salt) (Wallet, error) {
	switch v := w.(type) {
	case *DecryptedBasic:
		return v.Encrypt(password, salt)
	case *DecryptedSharded:
		return v.Encrypt(password, salt)
	default:
		return nil, ErrStateMismatch
	}
}

// Decrypt decrypts an encrypted wallet of either kind.
func Decrypt(w Wallet, password []byte) (Wallet, error) {
	switch v := w.(type) {
	case *EncryptedBasic:
		return v.Decrypt(password)
	case *EncryptedSharded:
		return v.Decrypt(password)
	default:
		return nil, ErrStateMismatch
	}
}

// WithKeyShare attaches share to an encrypted sharded wallet.
func WithKeyShare(w Wallet, share []byte) (Wallet, error) {
	switch v := w.(type) {
	case *EncryptedSharded:
		return v.WithKeyShare(share)
	case *DecryptedSharded:
		return nil, ErrStateMismatch
	default:
		return nil, ErrNotSharded
	}
}

// WriteBody writes the variant body of an encrypted wallet, without the kind
// envelope.
func WriteBody(w io.Writer, wal Wallet) error {
	var err error
	switch v := wal.(type) {
	case *EncryptedBasic:
		_, err = v.WriteTo(w)
	case *EncryptedSharded:
		_, err = v.WriteTo(w)
	default:
		return ErrStateMismatch
	}
	return err
}

// Write writes an encrypted wallet as a complete file: a little-endian
// uint16 kind followed by the variant body.
func Write(w io.Writer, wal Wallet) error {
	if !wal.IsEncrypted() {
		return ErrStateMismatch
	}
	var kind [2]byte
	binary.LittleEndian.PutUint16(kind[:], uint16(wal.Kind()))
	if _, err := w.Write(kind[:]); err != nil {
		return fmt.Errorf("write wallet kind: %w", err)
	}
	return WriteBody(w, wal)
}

// Read reads a wallet file written by Write.
func Read(r io.Reader) (Wallet, error) {
	var kind [2]byte
	if _, err := io.ReadFull(r, kind[:]); err != nil {
		return nil, formatErr("kind", err)
	}
	switch k := Kind(binary.LittleEndian.Uint16(kind[:])); k {
	case KindBasic:
		return ReadBasic(r)
	case KindSharded:
		return ReadSharded(r)
	default:
		return nil, formatErr("kind", fmt.Errorf("unknown wallet kind 0x%04x", uint16(k)))
	}
}

// Marshal returns the file form of an encrypted wallet.
func Marshal(wal Wallet) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, wal); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal parses the file form of a wallet. Trailing bytes belong to the
// ciphertext, so the whole slice is consumed.
func Unmarshal(data []byte) (Wallet, error) {
	return Read(bytes.NewReader(data))
}

// appendSealed appends the record tail shared by both variants:
// [public_key][iv][salt][iterations:u32-LE][tag][ciphertext]
func appendSealed(b []byte, pub crypto.PublicKey, params EncryptionParams, ciphertext []byte) []byte {
	b = append(b, pub.Bytes()...)
	b = append(b, params.IV[:]...)
	b = append(b, params.Salt[:]...)
	b = binary.LittleEndian.AppendUint32(b, params.Iterations)
	b = append(b, params.Tag[:]...)
	return append(b, ciphertext...)
}

// readSealed reads the tail written by appendSealed. The ciphertext runs to
// the end of r and must not be empty.
func readSealed(r io.Reader) (crypto.PublicKey, EncryptionParams, []byte, error) {
	var params EncryptionParams

	pub, err := crypto.ReadPublicKey(r)
	if err != nil {
		return crypto.PublicKey{}, params, nil, formatErr("public key", err)
	}
	if _, err := io.ReadFull(r, params.IV[:]); err != nil {
		return pub, params, nil, formatErr("iv", err)
	}
	if _, err := io.ReadFull(r, params.Salt[:]); err != nil {
		return pub, params, nil, formatErr("salt", err)
	}
	var iter [4]byte
	if _, err := io.ReadFull(r, iter[:]); err != nil {
		return pub, params, nil, formatErr("iterations", err)
	}
	params.Iterations = binary.LittleEndian.Uint32(iter[:])
	if params.Iterations == 0 {
		return pub, params, nil, formatErr("iterations", ErrInvalidIterations)
	}
	if _, err := io.ReadFull(r, params.Tag[:]); err != nil {
		return pub, params, nil, formatErr("tag", err)
	}
	ciphertext, err := io.ReadAll(r)
	if err != nil {
		return pub, params, nil, formatErr("ciphertext", err)
	}
	if len(ciphertext) == 0 {
		return pub, params, nil, formatErr("ciphertext", errors.New("empty"))
	}
	return pub, params, ciphertext, nil
}

// Unlock decrypts the files of one wallet, as returned by Keystore.Load, and
// returns its key pair. files is a single basic record or the shard records
// of a sharded wallet.
func Unlock(files []Wallet, password []byte) (*crypto.KeyPair, error) {
	if len(files) == 0 {
		return nil, ErrWalletNotFound
	}
	if basic, ok := files[0].(*EncryptedBasic); ok {
		if len(files) != 1 {
			return nil, ErrInconsistentShards
		}
		dec, err := basic.Decrypt(password)
		if err != nil {
			return nil, err
		}
		return dec.KeyPair(), nil
	}

	shards := make([]*EncryptedSharded, 0, len(files))
	for _, f := range files {
		s, ok := f.(*EncryptedSharded)
		if !ok {
			if !f.IsEncrypted() {
				return nil, ErrStateMismatch
			}
			return nil, ErrInconsistentShards
		}
		shards = append(shards, s)
	}

	// A record without a share was written by Encrypt, not CreateShards.
	if len(shards) == 1 && shards[0].share == (KeyShare{}) {
		dec, err := shards[0].Decrypt(password)
		if err != nil {
			return nil, err
		}
		return dec.KeyPair(), nil
	}

	dec, err := RecoverSharded(shards, password)
	if err != nil {
		return nil, err
	}
	return dec.KeyPair(), nil
}
