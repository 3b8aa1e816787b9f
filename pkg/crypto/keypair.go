package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// SecretSize is the length of the private material of every supported key
// type: the ed25519 seed or the secp256k1 scalar.
const SecretSize = 32

// Signer signs messages with a private key.
type Signer interface {
	// Sign produces a signature over msg.
	Sign(msg []byte) ([]byte, error)
	// PublicKey returns the signer's tagged public key.
	PublicKey() PublicKey
}

// KeyPair holds the private key for one identity together with its public key.
type KeyPair struct {
	public PublicKey
	ed     ed25519.PrivateKey
	k1     *secp256k1.PrivateKey
}

// GenerateKeyPair creates a new random key pair with the given tag.
func GenerateKeyPair(tag KeyTag) (*KeyPair, error) {
	var secret [SecretSize]byte
	defer clear(secret[:])
	if _, err := rand.Read(secret[:]); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	return KeyPairFromEntropy(tag, secret[:])
}

// KeyPairFromEntropy derives a key pair from 32 bytes of entropy. For ed25519
// the entropy is the seed; for secp256k1 it is the private scalar.
func KeyPairFromEntropy(tag KeyTag, entropy []byte) (*KeyPair, error) {
	if len(entropy) != SecretSize {
		return nil, fmt.Errorf("entropy must be %d bytes, got %d", SecretSize, len(entropy))
	}
	switch tag.KeyType {
	case KeyTypeEd25519:
		priv := ed25519.NewKeyFromSeed(entropy)
		pub, err := NewPublicKey(tag, priv.Public().(ed25519.PublicKey))
		if err != nil {
			return nil, err
		}
		return &KeyPair{public: pub, ed: priv}, nil
	case KeyTypeSecp256k1:
		key := secp256k1.PrivKeyFromBytes(entropy)
		if key.Key.IsZero() {
			return nil, fmt.Errorf("secp256k1 private key is zero")
		}
		pub, err := NewPublicKey(tag, key.PubKey().SerializeCompressed())
		if err != nil {
			return nil, err
		}
		return &KeyPair{public: pub, k1: key}, nil
	default:
		return nil, ErrUnknownKeyType
	}
}

// KeyPairFromBytes parses the [tag][secret] form produced by Bytes.
func KeyPairFromBytes(b []byte) (*KeyPair, error) {
	if len(b) != 1+SecretSize {
		return nil, fmt.Errorf("key pair must be %d bytes, got %d", 1+SecretSize, len(b))
	}
	tag, err := KeyTagFromByte(b[0])
	if err != nil {
		return nil, err
	}
	return KeyPairFromEntropy(tag, b[1:])
}

// PublicKey returns the tagged public key.
func (kp *KeyPair) PublicKey() PublicKey {
	return kp.public
}

// Secret returns a copy of the 32-byte private material.
func (kp *KeyPair) Secret() []byte {
	if kp.ed != nil {
		return append([]byte(nil), kp.ed.Seed()...)
	}
	return kp.k1.Serialize()
}

// Bytes returns the private material prefixed with the key tag.
// Callers must clear the returned slice when done.
func (kp *KeyPair) Bytes() []byte {
	secret := kp.Secret()
	defer clear(secret)
	out := make([]byte, 0, 1+SecretSize)
	out = append(out, kp.public.tag.Byte())
	return append(out, secret...)
}

// Sign signs msg. Ed25519 signs the message directly; secp256k1 produces a
// Schnorr signature over Hash(msg).
func (kp *KeyPair) Sign(msg []byte) ([]byte, error) {
	if kp.ed != nil {
		return ed25519.Sign(kp.ed, msg), nil
	}
	hash := Hash(msg)
	sig, err := schnorr.Sign(kp.k1, hash[:])
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// Zero securely zeroes the private key memory.
func (kp *KeyPair) Zero() {
	if kp.ed != nil {
		clear(kp.ed)
	}
	if kp.k1 != nil {
		kp.k1.Zero()
	}
}

// Verify checks a signature produced by KeyPair.Sign against pub.
// Returns false on any error.
func Verify(pub PublicKey, msg, signature []byte) bool {
	switch pub.KeyType() {
	case KeyTypeEd25519:
		if len(signature) != ed25519.SignatureSize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(pub.Key()), msg, signature)
	case KeyTypeSecp256k1:
		pubKey, err := secp256k1.ParsePubKey(pub.Key())
		if err != nil {
			return false
		}
		sig, err := schnorr.ParseSignature(signature)
		if err != nil {
			return false
		}
		hash := Hash(msg)
		return sig.Verify(hash[:], pubKey)
	default:
		return false
	}
}
