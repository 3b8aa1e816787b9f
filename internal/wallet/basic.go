package wallet

import (
	"errors"
	"io"

	"github.com/Klingon-tech/shardwallet/internal/log"
	"github.com/Klingon-tech/shardwallet/pkg/crypto"
)

// DecryptedBasic is a basic wallet holding its key pair in memory.
type DecryptedBasic struct {
	keyPair    *crypto.KeyPair
	iterations uint32
}

// EncryptedBasic is a basic wallet in its persisted form.
type EncryptedBasic struct {
	publicKey  crypto.PublicKey
	params     EncryptionParams
	ciphertext []byte
}

// NewBasic creates a decrypted basic wallet. iterations is the PBKDF2 cost
// used when the wallet is encrypted.
func NewBasic(kp *crypto.KeyPair, iterations uint32) (*DecryptedBasic, error) {
	if kp == nil {
		return nil, errors.New("nil key pair")
	}
	if iterations == 0 {
		return nil, ErrInvalidIterations
	}
	return &DecryptedBasic{keyPair: kp, iterations: iterations}, nil
}

func (*DecryptedBasic) sealed()           {}
func (*DecryptedBasic) Kind() Kind        { return KindBasic }
func (*DecryptedBasic) IsEncrypted() bool { return false }

// PublicKey returns the wallet's public key.
func (w *DecryptedBasic) PublicKey() crypto.PublicKey { return w.keyPair.PublicKey() }

// KeyPair returns the wallet's key pair.
func (w *DecryptedBasic) KeyPair() *crypto.KeyPair { return w.keyPair }

// Iterations returns the PBKDF2 iteration count.
func (w *DecryptedBasic) Iterations() uint32 { return w.iterations }

// Encrypt derives a key from password and salt and encrypts the wallet.
// The caller supplies a fresh random salt for every encryption.
func (w *DecryptedBasic) Encrypt(password []byte, salt Salt) (*EncryptedBasic, error) {
	key, err := DeriveKey(password, salt, w.iterations)
	if err != nil {
		return nil, err
	}
	defer key.Zero()
	return w.EncryptWithKey(key, salt)
}

// EncryptWithKey encrypts the wallet under an already derived key. salt is
// recorded so the key can be derived again on decryption.
func (w *DecryptedBasic) EncryptWithKey(key *SymmetricKey, salt Salt) (*EncryptedBasic, error) {
	sealed, err := EncryptKeyPair(w.keyPair, key)
	if err != nil {
		return nil, err
	}
	log.Wallet.Debug().
		Str("address", sealed.PublicKey.String()).
		Uint32("iterations", w.iterations).
		Msg("Encrypted basic wallet")
	return &EncryptedBasic{
		publicKey: sealed.PublicKey,
		params: EncryptionParams{
			IV:         sealed.IV,
			Salt:       salt,
			Iterations: w.iterations,
			Tag:        sealed.Tag,
		},
		ciphertext: sealed.Ciphertext,
	}, nil
}

func (*EncryptedBasic) sealed()           {}
func (*EncryptedBasic) Kind() Kind        { return KindBasic }
func (*EncryptedBasic) IsEncrypted() bool { return true }

// PublicKey returns the public key stored in clear alongside the ciphertext.
func (w *EncryptedBasic) PublicKey() crypto.PublicKey { return w.publicKey }

// Params returns the encryption parameters.
func (w *EncryptedBasic) Params() EncryptionParams { return w.params }

// Ciphertext returns a copy of the encrypted key material.
func (w *EncryptedBasic) Ciphertext() []byte { return append([]byte(nil), w.ciphertext...) }

// Decrypt derives the key from password and decrypts the wallet.
func (w *EncryptedBasic) Decrypt(password []byte) (*DecryptedBasic, error) {
	key, err := DeriveKey(password, w.params.Salt, w.params.Iterations)
	if err != nil {
		return nil, err
	}
	defer key.Zero()
	return w.DecryptWithKey(key)
}

// DecryptWithKey decrypts the wallet with an already derived key.
func (w *EncryptedBasic) DecryptWithKey(key *SymmetricKey) (*DecryptedBasic, error) {
	kp, err := DecryptKeyPair(w.ciphertext, key, w.publicKey, w.params.IV, w.params.Tag)
	if err != nil {
		return nil, err
	}
	return &DecryptedBasic{keyPair: kp, iterations: w.params.Iterations}, nil
}

// WriteTo writes the wallet body:
// [public_key][iv:12][salt:8][iterations:u32-LE][tag:16][ciphertext]
func (w *EncryptedBasic) WriteTo(out io.Writer) (int64, error) {
	b := appendSealed(nil, w.publicKey, w.params, w.ciphertext)
	n, err := out.Write(b)
	return int64(n), err
}

// ReadBasic reads a basic wallet body written by WriteTo. The ciphertext
// extends to the end of r.
func ReadBasic(r io.Reader) (*EncryptedBasic, error) {
	pub, params, ciphertext, err := readSealed(r)
	if err != nil {
		return nil, err
	}
	return &EncryptedBasic{publicKey: pub, params: params, ciphertext: ciphertext}, nil
}
