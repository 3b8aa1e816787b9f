package wallet

import (
	"errors"
	"fmt"
	"io"

	"github.com/Klingon-tech/shardwallet/internal/log"
	"github.com/Klingon-tech/shardwallet/pkg/crypto"
)

// KeyShareSize is the length of one key share: a 32-byte share value and a
// one-byte share index.
const KeyShareSize = 33

// KeyShare is one share of a sharded wallet's key secret.
type KeyShare [KeyShareSize]byte

// DecryptedSharded is a sharded wallet holding its key pair in memory.
type DecryptedSharded struct {
	keyPair    *crypto.KeyPair
	iterations uint32
	shareCount uint8
	threshold  uint8
}

// EncryptedSharded is one file of a sharded wallet. All files of a wallet
// carry the same ciphertext and differ only in their key share.
type EncryptedSharded struct {
	shareCount uint8
	threshold  uint8
	share      KeyShare
	publicKey  crypto.PublicKey
	params     EncryptionParams
	ciphertext []byte
}

// NewSharded creates a decrypted sharded wallet split across count shares,
// any threshold of which recover the key.
func NewSharded(kp *crypto.KeyPair, iterations uint32, count, threshold uint8) (*DecryptedSharded, error) {
	if kp == nil {
		return nil, errors.New("nil key pair")
	}
	if iterations == 0 {
		return nil, ErrInvalidIterations
	}
	if err := checkThreshold(count, threshold); err != nil {
		return nil, err
	}
	return &DecryptedSharded{
		keyPair:    kp,
		iterations: iterations,
		shareCount: count,
		threshold:  threshold,
	}, nil
}

func checkThreshold(count, threshold uint8) error {
	if count == 0 || threshold == 0 || threshold > count {
		return fmt.Errorf("%w: need 1 <= threshold (%d) <= shares (%d)", ErrInvalidThreshold, threshold, count)
	}
	return nil
}

func (*DecryptedSharded) sealed()           {}
func (*DecryptedSharded) Kind() Kind        { return KindSharded }
func (*DecryptedSharded) IsEncrypted() bool { return false }

// PublicKey returns the wallet's public key.
func (w *DecryptedSharded) PublicKey() crypto.PublicKey { return w.keyPair.PublicKey() }

// KeyPair returns the wallet's key pair.
func (w *DecryptedSharded) KeyPair() *crypto.KeyPair { return w.keyPair }

// Iterations returns the PBKDF2 iteration count.
func (w *DecryptedSharded) Iterations() uint32 { return w.iterations }

// ShareCount returns the number of key shares.
func (w *DecryptedSharded) ShareCount() uint8 { return w.shareCount }

// Threshold returns the number of shares needed for recovery.
func (w *DecryptedSharded) Threshold() uint8 { return w.threshold }

// Encrypt derives a key from password and salt and encrypts the wallet with
// an all-zero key share. Use CreateShards to produce the share files.
func (w *DecryptedSharded) Encrypt(password []byte, salt Salt) (*EncryptedSharded, error) {
	key, err := DeriveKey(password, salt, w.iterations)
	if err != nil {
		return nil, err
	}
	defer key.Zero()
	return w.EncryptWithKey(key, salt)
}

// EncryptWithKey encrypts the wallet under an already derived key.
func (w *DecryptedSharded) EncryptWithKey(key *SymmetricKey, salt Salt) (*EncryptedSharded, error) {
	sealed, err := EncryptKeyPair(w.keyPair, key)
	if err != nil {
		return nil, err
	}
	log.Wallet.Debug().
		Str("address", sealed.PublicKey.String()).
		Uint8("shares", w.shareCount).
		Uint8("threshold", w.threshold).
		Msg("Encrypted sharded wallet")
	return &EncryptedSharded{
		shareCount: w.shareCount,
		threshold:  w.threshold,
		publicKey:  sealed.PublicKey,
		params: EncryptionParams{
			IV:         sealed.IV,
			Salt:       salt,
			Iterations: w.iterations,
			Tag:        sealed.Tag,
		},
		ciphertext: sealed.Ciphertext,
	}, nil
}

func (*EncryptedSharded) sealed()           {}
func (*EncryptedSharded) Kind() Kind        { return KindSharded }
func (*EncryptedSharded) IsEncrypted() bool { return true }

// PublicKey returns the public key stored in clear alongside the ciphertext.
func (w *EncryptedSharded) PublicKey() crypto.PublicKey { return w.publicKey }

// Params returns the encryption parameters.
func (w *EncryptedSharded) Params() EncryptionParams { return w.params }

// Ciphertext returns a copy of the encrypted key material.
func (w *EncryptedSharded) Ciphertext() []byte { return append([]byte(nil), w.ciphertext...) }

// ShareCount returns the number of key shares.
func (w *EncryptedSharded) ShareCount() uint8 { return w.shareCount }

// Threshold returns the number of shares needed for recovery.
func (w *EncryptedSharded) Threshold() uint8 { return w.threshold }

// KeyShare returns the attached key share. It is all zero until a share is
// attached with WithKeyShare.
func (w *EncryptedSharded) KeyShare() KeyShare { return w.share }

// WithKeyShare returns a copy of w carrying share. share must be exactly
// KeyShareSize bytes. w itself is left unchanged.
func (w *EncryptedSharded) WithKeyShare(share []byte) (*EncryptedSharded, error) {
	if len(share) != KeyShareSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidShare, len(share), KeyShareSize)
	}
	out := *w
	copy(out.share[:], share)
	return &out, nil
}

// Decrypt derives the key from password and decrypts the wallet. This only
// succeeds for records written by Encrypt; shard files produced by
// CreateShards need RecoverSharded.
func (w *EncryptedSharded) Decrypt(password []byte) (*DecryptedSharded, error) {
	key, err := DeriveKey(password, w.params.Salt, w.params.Iterations)
	if err != nil {
		return nil, err
	}
	defer key.Zero()
	return w.DecryptWithKey(key)
}

// DecryptWithKey decrypts the wallet with an already derived key.
func (w *EncryptedSharded) DecryptWithKey(key *SymmetricKey) (*DecryptedSharded, error) {
	kp, err := DecryptKeyPair(w.ciphertext, key, w.publicKey, w.params.IV, w.params.Tag)
	if err != nil {
		return nil, err
	}
	return &DecryptedSharded{
		keyPair:    kp,
		iterations: w.params.Iterations,
		shareCount: w.shareCount,
		threshold:  w.threshold,
	}, nil
}

// WriteTo writes the wallet body:
// [share_count:1][threshold:1][key_share:33][public_key][iv:12][salt:8]
// [iterations:u32-LE][tag:16][ciphertext]
func (w *EncryptedSharded) WriteTo(out io.Writer) (int64, error) {
	b := make([]byte, 0, 2+KeyShareSize+64+len(w.ciphertext))
	b = append(b, w.shareCount, w.threshold)
	b = append(b, w.share[:]...)
	b = appendSealed(b, w.publicKey, w.params, w.ciphertext)
	n, err := out.Write(b)
	return int64(n), err
}

// ReadSharded reads a sharded wallet body written by WriteTo.
func ReadSharded(r io.Reader) (*EncryptedSharded, error) {
	var head [2]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, formatErr("share metadata", err)
	}
	w := &EncryptedSharded{shareCount: head[0], threshold: head[1]}
	if err := checkThreshold(w.shareCount, w.threshold); err != nil {
		return nil, formatErr("share metadata", err)
	}
	if _, err := io.ReadFull(r, w.share[:]); err != nil {
		return nil, formatErr("key share", err)
	}

	pub, params, ciphertext, err := readSealed(r)
	if err != nil {
		return nil, err
	}
	w.publicKey = pub
	w.params = params
	w.ciphertext = ciphertext
	return w, nil
}
