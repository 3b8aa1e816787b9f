package wallet

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func testSecret() []byte {
	s := make([]byte, ShardSecretSize)
	for i := range s {
		s[i] = byte(i*7 + 3)
	}
	return s
}

func TestSplitCombine(t *testing.T) {
	tests := []struct{ count, threshold uint8 }{
		{1, 1},
		{3, 1},
		{2, 2},
		{3, 2},
		{5, 3},
		{10, 10},
	}
	for _, tt := range tests {
		secret := testSecret()
		shares, err := SplitSecret(secret, tt.count, tt.threshold)
		if err != nil {
			t.Fatalf("SplitSecret(%d, %d) error: %v", tt.count, tt.threshold, err)
		}
		if len(shares) != int(tt.count) {
			t.Fatalf("got %d shares, want %d", len(shares), tt.count)
		}

		// Any threshold-sized window of shares recovers the secret.
		for start := 0; start+int(tt.threshold) <= len(shares); start++ {
			got, err := CombineKeyShares(shares[start:start+int(tt.threshold)], tt.threshold)
			if err != nil {
				t.Fatalf("CombineKeyShares(%d/%d) error: %v", tt.threshold, tt.count, err)
			}
			if !bytes.Equal(got, secret) {
				t.Fatalf("CombineKeyShares(%d/%d) = %x, want %x", tt.threshold, tt.count, got, secret)
			}
		}

		// All shares together also work.
		got, err := CombineKeyShares(shares, tt.threshold)
		if err != nil {
			t.Fatalf("CombineKeyShares(all) error: %v", err)
		}
		if !bytes.Equal(got, secret) {
			t.Errorf("CombineKeyShares(all) = %x, want %x", got, secret)
		}
	}
}

func TestSplitSecret_Invalid(t *testing.T) {
	if _, err := SplitSecret(make([]byte, 16), 3, 2); err == nil {
		t.Error("short secret should fail")
	}
	if _, err := SplitSecret(testSecret(), 2, 3); !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("expected ErrInvalidThreshold, got %v", err)
	}
	if _, err := SplitSecret(testSecret(), 3, 0); !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("expected ErrInvalidThreshold, got %v", err)
	}
}

func TestCombineKeyShares_Insufficient(t *testing.T) {
	shares, err := SplitSecret(testSecret(), 5, 3)
	if err != nil {
		t.Fatalf("SplitSecret() error: %v", err)
	}

	if _, err := CombineKeyShares(shares[:2], 3); !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("expected ErrInsufficientShares, got %v", err)
	}

	// Duplicates do not count twice.
	dup := []KeyShare{shares[0], shares[0], shares[1]}
	if _, err := CombineKeyShares(dup, 3); !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("expected ErrInsufficientShares for duplicates, got %v", err)
	}

	if _, err := CombineKeyShares(nil, 1); !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("expected ErrInsufficientShares for no shares, got %v", err)
	}
}

func TestCombineKeyShares_Conflicting(t *testing.T) {
	a, err := SplitSecret(testSecret(), 3, 2)
	if err != nil {
		t.Fatalf("SplitSecret() error: %v", err)
	}
	bad := a[0]
	bad[0] ^= 0xff
	if _, err := CombineKeyShares([]KeyShare{a[0], bad, a[1]}, 2); !errors.Is(err, ErrInconsistentShards) {
		t.Errorf("expected ErrInconsistentShards, got %v", err)
	}
}

func TestShardKey(t *testing.T) {
	var passwordKey SymmetricKey
	secret := bytes.Repeat([]byte{0x01}, ShardSecretSize)
	want, _ := hex.DecodeString("c501d9a575d82bb7750b41c638e4763524855cef57941bf6e94fb81a8972773f")

	got := ShardKey(&passwordKey, secret)
	if !bytes.Equal(got[:], want) {
		t.Errorf("ShardKey() = %x, want %x", got[:], want)
	}
}

func TestCreateRecoverShards(t *testing.T) {
	dec := newTestSharded(t, 5, 3)
	password := []byte("shard-password")

	shards, err := CreateShards(dec, password, testSalt)
	if err != nil {
		t.Fatalf("CreateShards() error: %v", err)
	}
	if len(shards) != 5 {
		t.Fatalf("got %d shards, want 5", len(shards))
	}
	seen := make(map[KeyShare]bool)
	for i, s := range shards {
		if !bytes.Equal(s.Ciphertext(), shards[0].Ciphertext()) {
			t.Errorf("shard %d has a different ciphertext", i)
		}
		if seen[s.KeyShare()] {
			t.Errorf("shard %d repeats a key share", i)
		}
		seen[s.KeyShare()] = true
	}

	got, err := RecoverSharded([]*EncryptedSharded{shards[4], shards[1], shards[2]}, password)
	if err != nil {
		t.Fatalf("RecoverSharded() error: %v", err)
	}
	if !bytes.Equal(got.KeyPair().Bytes(), dec.KeyPair().Bytes()) {
		t.Error("recovered key pair does not match original")
	}
	if got.ShareCount() != 5 || got.Threshold() != 3 {
		t.Errorf("recovered metadata = %d/%d, want 5/3", got.ShareCount(), got.Threshold())
	}

	// One shard alone cannot be decrypted with the password.
	if _, err := shards[0].Decrypt(password); !errors.Is(err, ErrAuthentication) {
		t.Errorf("single shard Decrypt() error = %v, want ErrAuthentication", err)
	}
}

func TestRecoverSharded_Failures(t *testing.T) {
	password := []byte("pw")
	shards, err := CreateShards(newTestSharded(t, 3, 2), password, testSalt)
	if err != nil {
		t.Fatalf("CreateShards() error: %v", err)
	}
	other, err := CreateShards(newTestSharded(t, 3, 2), password, testSalt)
	if err != nil {
		t.Fatalf("CreateShards() error: %v", err)
	}

	if _, err := RecoverSharded(shards[:1], password); !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("one shard: error = %v, want ErrInsufficientShares", err)
	}
	if _, err := RecoverSharded(nil, password); !errors.Is(err, ErrInsufficientShares) {
		t.Errorf("no shards: error = %v, want ErrInsufficientShares", err)
	}
	if _, err := RecoverSharded([]*EncryptedSharded{shards[0], other[1]}, password); !errors.Is(err, ErrInconsistentShards) {
		t.Errorf("mixed wallets: error = %v, want ErrInconsistentShards", err)
	}
	if _, err := RecoverSharded(shards[1:], []byte("wrong")); !errors.Is(err, ErrAuthentication) {
		t.Errorf("wrong password: error = %v, want ErrAuthentication", err)
	}
}

func TestRecoverSharded_SingleThreshold(t *testing.T) {
	password := []byte("pw")
	dec := newTestSharded(t, 3, 1)
	shards, err := CreateShards(dec, password, testSalt)
	if err != nil {
		t.Fatalf("CreateShards() error: %v", err)
	}
	for i, s := range shards {
		got, err := RecoverSharded([]*EncryptedSharded{s}, password)
		if err != nil {
			t.Fatalf("RecoverSharded(shard %d) error: %v", i, err)
		}
		if got.PublicKey() != dec.PublicKey() {
			t.Errorf("shard %d recovered the wrong key", i)
		}
	}
}

func TestShards_SurviveSerialization(t *testing.T) {
	password := []byte("pw")
	shards, err := CreateShards(newTestSharded(t, 4, 2), password, testSalt)
	if err != nil {
		t.Fatalf("CreateShards() error: %v", err)
	}

	var loaded []*EncryptedSharded
	for _, s := range shards[2:] {
		data, err := Marshal(s)
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		w, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		es, ok := w.(*EncryptedSharded)
		if !ok {
			t.Fatalf("Unmarshal() returned %T, want *EncryptedSharded", w)
		}
		loaded = append(loaded, es)
	}
	if _, err := RecoverSharded(loaded, password); err != nil {
		t.Errorf("RecoverSharded() after reload error: %v", err)
	}
}

func TestRecoverSharded_DamagedSurplusShare(t *testing.T) {
	password := []byte("pw")
	dec := newTestSharded(t, 5, 3)
	shards, err := CreateShards(dec, password, testSalt)
	if err != nil {
		t.Fatalf("CreateShards() error: %v", err)
	}

	// Damage the share value of one record but keep its index byte.
	share := shards[1].KeyShare()
	share[0] ^= 0xff
	share[7] ^= 0x55
	damaged, err := shards[1].WithKeyShare(share[:])
	if err != nil {
		t.Fatalf("WithKeyShare() error: %v", err)
	}

	set := []*EncryptedSharded{shards[0], damaged, shards[2], shards[4]}
	got, err := RecoverSharded(set, password)
	if err != nil {
		t.Fatalf("RecoverSharded() with one damaged surplus share error: %v", err)
	}
	if got.PublicKey() != dec.PublicKey() {
		t.Error("recovered the wrong key")
	}

	// Without a clean quorum recovery still fails closed.
	if _, err := RecoverSharded(set[:3], password); !errors.Is(err, ErrAuthentication) {
		t.Errorf("damaged quorum: error = %v, want ErrAuthentication", err)
	}
	if _, err := RecoverSharded(shards, []byte("wrong")); !errors.Is(err, ErrAuthentication) {
		t.Errorf("wrong password with surplus shares: error = %v, want ErrAuthentication", err)
	}
}

func TestNextSubset(t *testing.T) {
	var got [][]int
	for idx := firstSubset(2); idx != nil; idx = nextSubset(idx, 4) {
		got = append(got, append([]int(nil), idx...))
	}
	want := [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	if len(got) != len(want) {
		t.Fatalf("got %d subsets, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("subset %d = %v, want %v", i, got[i], want[i])
			}
		}
	}
}
