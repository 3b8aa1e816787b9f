package wallet

import (
	"crypto/rand"
	"fmt"

	"github.com/Klingon-tech/shardwallet/internal/log"
	"github.com/Klingon-tech/shardwallet/pkg/crypto"
	sha256 "github.com/minio/sha256-simd"
	"github.com/tink-crypto/tink-go/v2/aead/subtle"
	"golang.org/x/crypto/pbkdf2"
)

// Sizes of the persisted encryption parameters. They are part of the file
// format.
const (
	IVSize   = 12
	SaltSize = 8
	TagSize  = 16
	KeySize  = 32
)

// DefaultIterations is the PBKDF2 iteration count for new wallets.
const DefaultIterations = 1_000_000

// IV is the AES-GCM nonce.
type IV [IVSize]byte

// Salt is the PBKDF2 salt.
type Salt [SaltSize]byte

// Tag is the AES-GCM authentication tag.
type Tag [TagSize]byte

// SymmetricKey is a password-derived AES-256 key.
type SymmetricKey [KeySize]byte

// Zero wipes the key.
func (k *SymmetricKey) Zero() {
	if k != nil {
		clear(k[:])
	}
}

// EncryptionParams holds everything besides the password that is needed to
// decrypt a wallet.
type EncryptionParams struct {
	IV         IV
	Salt       Salt
	Iterations uint32
	Tag        Tag
}

// NewSalt returns a random salt.
func NewSalt() (Salt, error) {
	var s Salt
	if _, err := rand.Read(s[:]); err != nil {
		return s, fmt.Errorf("generate salt: %w", err)
	}
	return s, nil
}

// DeriveKey stretches password into an AES-256 key with PBKDF2-HMAC-SHA256.
// The same inputs always produce the same key.
func DeriveKey(password []byte, salt Salt, iterations uint32) (*SymmetricKey, error) {
	if iterations == 0 {
		return nil, ErrInvalidIterations
	}
	defer log.Benchmark("derive_key")()

	derived := pbkdf2.Key(password, salt[:], int(iterations), KeySize, sha256.New)
	defer clear(derived)

	var key SymmetricKey
	copy(key[:], derived)
	return &key, nil
}

// SealedKeyPair is the output of EncryptKeyPair.
type SealedKeyPair struct {
	IV         IV
	PublicKey  crypto.PublicKey
	Ciphertext []byte
	Tag        Tag
}

// EncryptKeyPair encrypts the tagged private key of kp with AES-256-GCM under
// a fresh random IV. The public key is authenticated as associated data.
func EncryptKeyPair(kp *crypto.KeyPair, key *SymmetricKey) (*SealedKeyPair, error) {
	cipher, err := subtle.NewAESGCM(key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	pub := kp.PublicKey()
	plaintext := kp.Bytes()
	defer clear(plaintext)

	// Output layout: iv | ciphertext | tag
	out, err := cipher.Encrypt(plaintext, pub.Bytes())
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	if len(out) < IVSize+TagSize {
		return nil, fmt.Errorf("encrypt: short output: %d bytes", len(out))
	}

	sealed := &SealedKeyPair{
		PublicKey:  pub,
		Ciphertext: append([]byte(nil), out[IVSize:len(out)-TagSize]...),
	}
	copy(sealed.IV[:], out[:IVSize])
	copy(sealed.Tag[:], out[len(out)-TagSize:])
	return sealed, nil
}

// DecryptKeyPair reverses EncryptKeyPair. Every failure, including a
// decrypted key that does not match pub, is reported as ErrAuthentication.
func DecryptKeyPair(ciphertext []byte, key *SymmetricKey, pub crypto.PublicKey, iv IV, tag Tag) (*crypto.KeyPair, error) {
	cipher, err := subtle.NewAESGCM(key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	in := make([]byte, 0, IVSize+len(ciphertext)+TagSize)
	in = append(in, iv[:]...)
	in = append(in, ciphertext...)
	in = append(in, tag[:]...)

	plaintext, err := cipher.Decrypt(in, pub.Bytes())
	if err != nil {
		return nil, ErrAuthentication
	}
	defer clear(plaintext)

	kp, err := crypto.KeyPairFromBytes(plaintext)
	if err != nil {
		return nil, ErrAuthentication
	}
	if kp.PublicKey() != pub {
		kp.Zero()
		return nil, ErrAuthentication
	}
	return kp, nil
}
