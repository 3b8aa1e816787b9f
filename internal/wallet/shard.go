package wallet

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"fmt"

	"github.com/Klingon-tech/shardwallet/internal/log"
	"github.com/hashicorp/vault/shamir"
	sha256 "github.com/minio/sha256-simd"
)

// ShardSecretSize is the length of the secret split across key shares.
const ShardSecretSize = KeyShareSize - 1

// SplitSecret splits a ShardSecretSize-byte secret into count shares, any
// threshold of which recover it.
func SplitSecret(secret []byte, count, threshold uint8) ([]KeyShare, error) {
	if len(secret) != ShardSecretSize {
		return nil, fmt.Errorf("shard secret must be %d bytes, got %d", ShardSecretSize, len(secret))
	}
	if err := checkThreshold(count, threshold); err != nil {
		return nil, err
	}

	shares := make([]KeyShare, count)

	// A threshold of one is a constant polynomial: every share holds the
	// secret itself.
	if threshold == 1 {
		for i := range shares {
			copy(shares[i][:], secret)
			shares[i][ShardSecretSize] = byte(i + 1)
		}
		return shares, nil
	}

	parts, err := shamir.Split(secret, int(count), int(threshold))
	if err != nil {
		return nil, fmt.Errorf("split secret: %w", err)
	}
	for i, p := range parts {
		if len(p) != KeyShareSize {
			return nil, fmt.Errorf("split secret: share %d is %d bytes", i, len(p))
		}
		copy(shares[i][:], p)
		clear(p)
	}
	return shares, nil
}

// CombineKeyShares recovers the secret from at least threshold distinct
// shares. Repeated copies of the same share count once.
func CombineKeyShares(shares []KeyShare, threshold uint8) ([]byte, error) {
	if threshold == 0 {
		return nil, ErrInvalidThreshold
	}
	distinct, err := distinctShares(shares)
	if err != nil {
		return nil, err
	}
	if len(distinct) < int(threshold) {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientShares, len(distinct), threshold)
	}
	return combine(distinct, threshold)
}

// distinctShares drops repeated shares, keeping input order. Two different
// shares with one index cannot come from the same split.
func distinctShares(shares []KeyShare) ([]KeyShare, error) {
	byIndex := make(map[byte]KeyShare, len(shares))
	out := make([]KeyShare, 0, len(shares))
	for _, s := range shares {
		idx := s[ShardSecretSize]
		if prev, ok := byIndex[idx]; ok {
			if prev != s {
				return nil, ErrInconsistentShards
			}
			continue
		}
		byIndex[idx] = s
		out = append(out, s)
	}
	return out, nil
}

func combine(shares []KeyShare, threshold uint8) ([]byte, error) {
	if threshold == 1 {
		return append([]byte(nil), shares[0][:ShardSecretSize]...), nil
	}

	parts := make([][]byte, 0, len(shares))
	for _, s := range shares {
		parts = append(parts, append([]byte(nil), s[:]...))
	}
	defer func() {
		for _, p := range parts {
			clear(p)
		}
	}()

	secret, err := shamir.Combine(parts)
	if err != nil {
		return nil, fmt.Errorf("combine shares: %w", err)
	}
	return secret, nil
}

// ShardKey mixes the shard secret into a password-derived key:
// HMAC-SHA256(key = secret, message = passwordKey). Both the password and a
// quorum of shares are needed to rebuild it.
func ShardKey(passwordKey *SymmetricKey, secret []byte) *SymmetricKey {
	mac := hmac.New(sha256.New, secret)
	mac.Write(passwordKey[:])
	sum := mac.Sum(nil)
	defer clear(sum)

	var key SymmetricKey
	copy(key[:], sum)
	return &key
}

// CreateShards encrypts w once under a key that combines password with a
// fresh random secret, then returns one record per key share. The records
// differ only in their share.
func CreateShards(w *DecryptedSharded, password []byte, salt Salt) ([]*EncryptedSharded, error) {
	secret := make([]byte, ShardSecretSize)
	defer clear(secret)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate shard secret: %w", err)
	}

	shares, err := SplitSecret(secret, w.shareCount, w.threshold)
	if err != nil {
		return nil, err
	}
	defer clear(shares)

	passwordKey, err := DeriveKey(password, salt, w.iterations)
	if err != nil {
		return nil, err
	}
	defer passwordKey.Zero()
	key := ShardKey(passwordKey, secret)
	defer key.Zero()

	encrypted, err := w.EncryptWithKey(key, salt)
	if err != nil {
		return nil, err
	}

	out := make([]*EncryptedSharded, len(shares))
	for i := range shares {
		if out[i], err = encrypted.WithKeyShare(shares[i][:]); err != nil {
			return nil, err
		}
	}
	log.Wallet.Info().
		Str("address", encrypted.PublicKey().String()).
		Int("shards", len(out)).
		Uint8("threshold", w.threshold).
		Msg("Created wallet shards")
	return out, nil
}

// maxSubsetAttempts bounds how many threshold-sized subsets RecoverSharded
// tries after all shares together fail to decrypt.
const maxSubsetAttempts = 1024

// RecoverSharded decrypts a sharded wallet from a quorum of its shard records.
// All records must belong to the same wallet. When more shards than the
// threshold are given and they fail together, threshold-sized subsets are
// tried in turn so that one damaged surplus share does not block recovery.
func RecoverSharded(shards []*EncryptedSharded, password []byte) (*DecryptedSharded, error) {
	if len(shards) == 0 {
		return nil, ErrInsufficientShares
	}
	first := shards[0]
	shares := make([]KeyShare, 0, len(shards))
	for _, s := range shards {
		if !sameWallet(first, s) {
			return nil, ErrInconsistentShards
		}
		shares = append(shares, s.share)
	}
	defer clear(shares)

	distinct, err := distinctShares(shares)
	if err != nil {
		return nil, err
	}
	defer clear(distinct)
	k := int(first.threshold)
	if len(distinct) < k {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientShares, len(distinct), k)
	}

	passwordKey, err := DeriveKey(password, first.params.Salt, first.params.Iterations)
	if err != nil {
		return nil, err
	}
	defer passwordKey.Zero()

	dec, err := first.decryptWithShares(passwordKey, distinct)
	if err == nil || len(distinct) == k {
		return dec, err
	}

	attempts := 0
	subset := make([]KeyShare, k)
	defer clear(subset)
	for idx := firstSubset(k); idx != nil && attempts < maxSubsetAttempts; idx = nextSubset(idx, len(distinct)) {
		attempts++
		for i, j := range idx {
			subset[i] = distinct[j]
		}
		if dec, err := first.decryptWithShares(passwordKey, subset); err == nil {
			log.Wallet.Warn().
				Str("address", first.publicKey.String()).
				Int("shards", len(distinct)).
				Int("attempts", attempts).
				Msg("Recovered wallet after skipping damaged shards")
			return dec, nil
		}
	}
	return nil, ErrAuthentication
}

// decryptWithShares rebuilds the wallet key from passwordKey and shares and
// decrypts w with it.
func (w *EncryptedSharded) decryptWithShares(passwordKey *SymmetricKey, shares []KeyShare) (*DecryptedSharded, error) {
	secret, err := combine(shares, w.threshold)
	if err != nil {
		return nil, ErrAuthentication
	}
	defer clear(secret)

	key := ShardKey(passwordKey, secret)
	defer key.Zero()
	return w.DecryptWithKey(key)
}

// firstSubset returns the lexicographically first k-subset of indices.
func firstSubset(k int) []int {
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// nextSubset advances idx to the next k-subset of [0, n) in lexicographic
// order, or returns nil after the last one.
func nextSubset(idx []int, n int) []int {
	k := len(idx)
	i := k - 1
	for i >= 0 && idx[i] == n-k+i {
		i--
	}
	if i < 0 {
		return nil
	}
	idx[i]++
	for j := i + 1; j < k; j++ {
		idx[j] = idx[j-1] + 1
	}
	return idx
}

func sameWallet(a, b *EncryptedSharded) bool {
	return a.shareCount == b.shareCount &&
		a.threshold == b.threshold &&
		a.publicKey == b.publicKey &&
		a.params == b.params &&
		bytes.Equal(a.ciphertext, b.ciphertext)
}
