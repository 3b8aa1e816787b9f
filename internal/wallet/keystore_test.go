package wallet

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Klingon-tech/shardwallet/pkg/crypto"
)

func testKeystore(t *testing.T) *Keystore {
	t.Helper()
	dir := t.TempDir()
	ks, err := NewKeystore(dir)
	if err != nil {
		t.Fatalf("NewKeystore() error: %v", err)
	}
	return ks
}

func testEncryptedBasic(t *testing.T, password string) *EncryptedBasic {
	t.Helper()
	enc, err := newTestBasic(t, crypto.KeyTypeEd25519).Encrypt([]byte(password), testSalt)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	return enc
}

func TestKeystore_SaveAndLoad(t *testing.T) {
	ks := testKeystore(t)
	enc := testEncryptedBasic(t, "test-password")

	if err := ks.Save("mywallet", enc, false); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := ks.Load("mywallet")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("Load() returned %d wallets, want 1", len(loaded))
	}
	if loaded[0].PublicKey() != enc.PublicKey() {
		t.Error("loaded public key does not match original")
	}

	dec, err := Decrypt(loaded[0], []byte("test-password"))
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if dec.PublicKey() != enc.PublicKey() {
		t.Error("decrypted public key does not match original")
	}
}

func TestKeystore_SaveDuplicate(t *testing.T) {
	ks := testKeystore(t)

	if err := ks.Save("dup", testEncryptedBasic(t, "pass"), false); err != nil {
		t.Fatalf("first Save() error: %v", err)
	}

	second := testEncryptedBasic(t, "pass")
	err := ks.Save("dup", second, false)
	if !errors.Is(err, ErrWalletExists) {
		t.Fatalf("second Save() error = %v, want ErrWalletExists", err)
	}

	if err := ks.Save("dup", second, true); err != nil {
		t.Fatalf("forced Save() error: %v", err)
	}
	loaded, err := ks.Load("dup")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded[0].PublicKey() != second.PublicKey() {
		t.Error("forced Save() should replace the wallet")
	}
}

func TestKeystore_SaveDecrypted(t *testing.T) {
	ks := testKeystore(t)
	err := ks.Save("plain", newTestBasic(t, crypto.KeyTypeEd25519), false)
	if !errors.Is(err, ErrStateMismatch) {
		t.Errorf("Save(decrypted) error = %v, want ErrStateMismatch", err)
	}
	if ks.Exists("plain") {
		t.Error("nothing should be written for a decrypted wallet")
	}
}

func TestKeystore_InvalidName(t *testing.T) {
	ks := testKeystore(t)
	enc := testEncryptedBasic(t, "p")
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		if err := ks.Save(name, enc, false); err == nil {
			t.Errorf("Save(%q) should fail", name)
		}
	}
}

func TestKeystore_LoadNonexistent(t *testing.T) {
	ks := testKeystore(t)

	_, err := ks.Load("doesnotexist")
	if !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("Load() error = %v, want ErrWalletNotFound", err)
	}
}

func TestKeystore_Shards(t *testing.T) {
	ks := testKeystore(t)
	password := []byte("pw")
	dec := newTestSharded(t, 3, 2)
	shards, err := CreateShards(dec, password, testSalt)
	if err != nil {
		t.Fatalf("CreateShards() error: %v", err)
	}

	if err := ks.SaveShards("vault", shards, false); err != nil {
		t.Fatalf("SaveShards() error: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if _, err := os.Stat(filepath.Join(ks.Dir(), "vault.key."+string(rune('0'+i)))); err != nil {
			t.Errorf("shard file %d missing: %v", i, err)
		}
	}
	if err := ks.SaveShards("vault", shards, false); !errors.Is(err, ErrWalletExists) {
		t.Errorf("second SaveShards() error = %v, want ErrWalletExists", err)
	}

	loaded, err := ks.Load("vault")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("Load() returned %d files, want 3", len(loaded))
	}
	recs := make([]*EncryptedSharded, 0, len(loaded))
	for i, w := range loaded {
		es, ok := w.(*EncryptedSharded)
		if !ok {
			t.Fatalf("file %d is %T, want *EncryptedSharded", i, w)
		}
		if es.KeyShare() != shards[i].KeyShare() {
			t.Errorf("file %d carries the wrong share", i)
		}
		recs = append(recs, es)
	}

	got, err := RecoverSharded(recs[1:], password)
	if err != nil {
		t.Fatalf("RecoverSharded() error: %v", err)
	}
	if got.PublicKey() != dec.PublicKey() {
		t.Error("recovered public key does not match")
	}
}

func TestKeystore_List(t *testing.T) {
	ks := testKeystore(t)

	// Empty at first.
	names, err := ks.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected 0 wallets, got %d", len(names))
	}

	shards, err := CreateShards(newTestSharded(t, 2, 2), []byte("p"), testSalt)
	if err != nil {
		t.Fatalf("CreateShards() error: %v", err)
	}
	ks.Save("beta", testEncryptedBasic(t, "p"), false)
	ks.Save("alpha", testEncryptedBasic(t, "p"), false)
	ks.SaveShards("gamma", shards, false)
	os.WriteFile(filepath.Join(ks.Dir(), "notes.txt"), []byte("x"), 0600)
	os.WriteFile(filepath.Join(ks.Dir(), "delta.key.bak"), []byte("x"), 0600)

	names, err = ks.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	want := []string{"alpha", "beta", "gamma"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("List() = %v, want %v", names, want)
	}
}

func TestKeystore_Delete(t *testing.T) {
	ks := testKeystore(t)
	shards, err := CreateShards(newTestSharded(t, 3, 2), []byte("p"), testSalt)
	if err != nil {
		t.Fatalf("CreateShards() error: %v", err)
	}
	ks.Save("todelete", testEncryptedBasic(t, "p"), false)
	ks.SaveShards("shards", shards, false)

	for _, name := range []string{"todelete", "shards"} {
		if err := ks.Delete(name); err != nil {
			t.Fatalf("Delete(%q) error: %v", name, err)
		}
		if ks.Exists(name) {
			t.Errorf("wallet %q should be deleted", name)
		}
	}
}

func TestKeystore_DeleteNonexistent(t *testing.T) {
	ks := testKeystore(t)

	err := ks.Delete("ghost")
	if !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("Delete() error = %v, want ErrWalletNotFound", err)
	}
}

func TestKeystore_FilePermissions(t *testing.T) {
	ks := testKeystore(t)

	ks.Save("secure", testEncryptedBasic(t, "p"), false)

	path := filepath.Join(ks.Dir(), "secure.key")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}

	perm := info.Mode().Perm()
	if perm&0077 != 0 {
		t.Errorf("wallet file should be 0600, got %o", perm)
	}
}

func TestLoadFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.key")
	if err := os.WriteFile(path, []byte{0x01, 0x00, 0x01}, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); !errors.Is(err, ErrFormat) {
		t.Errorf("LoadFile() error = %v, want ErrFormat", err)
	}
}

func TestWalletName(t *testing.T) {
	tests := []struct {
		file string
		name string
		ok   bool
	}{
		{"main.key", "main", true},
		{"main.key.3", "main", true},
		{"main.key.12", "main", true},
		{"my.key.wallet.key", "my.key.wallet", true},
		{"main.key.0", "", false},
		{"main.key.bak", "", false},
		{".key", "", false},
		{"main.wallet", "", false},
	}
	for _, tt := range tests {
		name, ok := walletName(tt.file)
		if ok != tt.ok || name != tt.name {
			t.Errorf("walletName(%q) = %q, %v; want %q, %v", tt.file, name, ok, tt.name, tt.ok)
		}
	}
}
