package crypto

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mr-tron/base58"
)

// KeyType identifies the signature scheme of a key.
type KeyType uint8

const (
	KeyTypeEd25519   KeyType = 1
	KeyTypeSecp256k1 KeyType = 3
)

// Public key sizes, without the tag byte.
const (
	Ed25519PublicKeySize   = 32
	Secp256k1PublicKeySize = 33 // compressed
)

// addressVersion prefixes the public key binary inside an address.
const addressVersion byte = 0x00

// ErrUnknownKeyType is returned for key tags that name an unsupported scheme.
var ErrUnknownKeyType = errors.New("unknown key type")

// String returns the lowercase scheme name.
func (t KeyType) String() string {
	switch t {
	case KeyTypeEd25519:
		return "ed25519"
	case KeyTypeSecp256k1:
		return "secp256k1"
	default:
		return fmt.Sprintf("keytype(%d)", uint8(t))
	}
}

// PublicKeySize returns the length of a public key of this type, or 0 if the
// type is unknown.
func (t KeyType) PublicKeySize() int {
	switch t {
	case KeyTypeEd25519:
		return Ed25519PublicKeySize
	case KeyTypeSecp256k1:
		return Secp256k1PublicKeySize
	default:
		return 0
	}
}

// ParseKeyType parses "ed25519" or "secp256k1".
func ParseKeyType(s string) (KeyType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ed25519":
		return KeyTypeEd25519, nil
	case "secp256k1":
		return KeyTypeSecp256k1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKeyType, s)
	}
}

// Network identifies the network a key belongs to.
type Network uint8

const (
	MainNet Network = 0
	TestNet Network = 1
)

// String returns "mainnet" or "testnet".
func (n Network) String() string {
	switch n {
	case MainNet:
		return "mainnet"
	case TestNet:
		return "testnet"
	default:
		return fmt.Sprintf("network(%d)", uint8(n))
	}
}

// ParseNetwork parses "mainnet" or "testnet".
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mainnet":
		return MainNet, nil
	case "testnet":
		return TestNet, nil
	default:
		return 0, fmt.Errorf("unknown network %q", s)
	}
}

// KeyTag is the one-byte prefix of every serialized public key:
// the network in the high nibble and the key type in the low nibble.
type KeyTag struct {
	Network Network
	KeyType KeyType
}

// Byte returns the serialized tag.
func (t KeyTag) Byte() byte {
	return byte(t.Network)<<4 | byte(t.KeyType)
}

// KeyTagFromByte parses a serialized tag.
func KeyTagFromByte(b byte) (KeyTag, error) {
	tag := KeyTag{Network: Network(b >> 4), KeyType: KeyType(b & 0x0f)}
	if tag.Network != MainNet && tag.Network != TestNet {
		return KeyTag{}, fmt.Errorf("unknown network in key tag 0x%02x", b)
	}
	if tag.KeyType.PublicKeySize() == 0 {
		return KeyTag{}, fmt.Errorf("%w in key tag 0x%02x", ErrUnknownKeyType, b)
	}
	return tag, nil
}

// PublicKey is a tagged public key. It is immutable and comparable with ==.
type PublicKey struct {
	tag KeyTag
	key string
}

// NewPublicKey builds a PublicKey from a tag and raw key bytes.
func NewPublicKey(tag KeyTag, key []byte) (PublicKey, error) {
	size := tag.KeyType.PublicKeySize()
	if size == 0 {
		return PublicKey{}, ErrUnknownKeyType
	}
	if len(key) != size {
		return PublicKey{}, fmt.Errorf("%s public key must be %d bytes, got %d", tag.KeyType, size, len(key))
	}
	if tag.KeyType == KeyTypeSecp256k1 {
		if _, err := secp256k1.ParsePubKey(key); err != nil {
			return PublicKey{}, fmt.Errorf("parse secp256k1 public key: %w", err)
		}
	}
	return PublicKey{tag: tag, key: string(key)}, nil
}

// PublicKeyFromBytes parses the binary form [tag][key].
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) == 0 {
		return PublicKey{}, fmt.Errorf("public key is empty")
	}
	tag, err := KeyTagFromByte(b[0])
	if err != nil {
		return PublicKey{}, err
	}
	return NewPublicKey(tag, b[1:])
}

// ReadPublicKey reads the binary form of a public key from r. The key length
// is determined by the tag byte.
func ReadPublicKey(r io.Reader) (PublicKey, error) {
	var tagByte [1]byte
	if _, err := io.ReadFull(r, tagByte[:]); err != nil {
		return PublicKey{}, fmt.Errorf("read key tag: %w", err)
	}
	tag, err := KeyTagFromByte(tagByte[0])
	if err != nil {
		return PublicKey{}, err
	}
	key := make([]byte, tag.KeyType.PublicKeySize())
	if _, err := io.ReadFull(r, key); err != nil {
		return PublicKey{}, fmt.Errorf("read %s public key: %w", tag.KeyType, err)
	}
	return NewPublicKey(tag, key)
}

// ParsePublicKey decodes a base58check address back into a PublicKey.
func ParsePublicKey(address string) (PublicKey, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return PublicKey{}, fmt.Errorf("decode address: %w", err)
	}
	if len(raw) < 1+1+ChecksumSize {
		return PublicKey{}, fmt.Errorf("address too short: %d bytes", len(raw))
	}
	if raw[0] != addressVersion {
		return PublicKey{}, fmt.Errorf("unsupported address version 0x%02x", raw[0])
	}
	payload := raw[:len(raw)-ChecksumSize]
	sum := Checksum(payload)
	if string(sum[:]) != string(raw[len(raw)-ChecksumSize:]) {
		return PublicKey{}, fmt.Errorf("address checksum mismatch")
	}
	return PublicKeyFromBytes(payload[1:])
}

// Tag returns the key tag.
func (p PublicKey) Tag() KeyTag {
	return p.tag
}

// KeyType returns the key's signature scheme.
func (p PublicKey) KeyType() KeyType {
	return p.tag.KeyType
}

// Key returns a copy of the raw key bytes (without the tag).
func (p PublicKey) Key() []byte {
	return []byte(p.key)
}

// Bytes returns the binary form [tag][key].
func (p PublicKey) Bytes() []byte {
	b := make([]byte, 0, 1+len(p.key))
	b = append(b, p.tag.Byte())
	return append(b, p.key...)
}

// IsZero reports whether p is the zero value.
func (p PublicKey) IsZero() bool {
	return p.key == ""
}

// WriteTo writes the binary form of p to w.
func (p PublicKey) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.Bytes())
	return int64(n), err
}

// String returns the base58check address of the key.
// Address = base58(0x00 || tag || key || DoubleHash(0x00 || tag || key)[:4]).
func (p PublicKey) String() string {
	if p.IsZero() {
		return ""
	}
	payload := make([]byte, 0, 2+len(p.key)+ChecksumSize)
	payload = append(payload, addressVersion)
	payload = append(payload, p.Bytes()...)
	sum := Checksum(payload)
	payload = append(payload, sum[:]...)
	return base58.Encode(payload)
}
