package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Klingon-tech/shardwallet/internal/log"
	"github.com/Klingon-tech/shardwallet/internal/mnemonic"
	"github.com/Klingon-tech/shardwallet/pkg/crypto"
)

var testTag = crypto.KeyTag{Network: crypto.MainNet, KeyType: crypto.KeyTypeEd25519}

func TestDefaultWordCount(t *testing.T) {
	if got := defaultWordCount(mnemonic.SeedTypeMobile); got != 12 {
		t.Errorf("mobile = %d, want 12", got)
	}
	if got := defaultWordCount(mnemonic.SeedTypeBIP39); got != 24 {
		t.Errorf("bip39 = %d, want 24", got)
	}
}

func TestCheckKeyPair(t *testing.T) {
	for _, kt := range []crypto.KeyType{crypto.KeyTypeEd25519, crypto.KeyTypeSecp256k1} {
		kp, err := crypto.GenerateKeyPair(crypto.KeyTag{Network: crypto.TestNet, KeyType: kt})
		if err != nil {
			t.Fatalf("GenerateKeyPair(%s) error: %v", kt, err)
		}
		if err := checkKeyPair(kp); err != nil {
			t.Errorf("checkKeyPair(%s) error: %v", kt, err)
		}
	}
}

func TestSeedPhrase_Roundtrip(t *testing.T) {
	tests := []struct {
		words    int
		seedType mnemonic.SeedType
	}{
		{12, mnemonic.SeedTypeBIP39},
		{24, mnemonic.SeedTypeBIP39},
		{12, mnemonic.SeedTypeMobile},
	}
	for _, tt := range tests {
		entropy, err := mnemonic.NewEntropy(tt.words)
		if err != nil {
			t.Fatalf("NewEntropy(%d) error: %v", tt.words, err)
		}
		kp, err := crypto.KeyPairFromEntropy(testTag, entropy[:])
		if err != nil {
			t.Fatalf("KeyPairFromEntropy() error: %v", err)
		}

		phrase, err := seedPhrase(kp, tt.seedType)
		if err != nil {
			t.Fatalf("seedPhrase(%d, %s) error: %v", tt.words, tt.seedType, err)
		}
		if len(phrase) != tt.words {
			t.Errorf("seedPhrase(%d, %s) has %d words", tt.words, tt.seedType, len(phrase))
		}
	}
}

func TestSeedPhrase_MobileNeedsTwelveWords(t *testing.T) {
	entropy, err := mnemonic.NewEntropy(24)
	if err != nil {
		t.Fatalf("NewEntropy() error: %v", err)
	}
	kp, err := crypto.KeyPairFromEntropy(testTag, entropy[:])
	if err != nil {
		t.Fatalf("KeyPairFromEntropy() error: %v", err)
	}
	_, err = seedPhrase(kp, mnemonic.SeedTypeMobile)
	if !errors.Is(err, mnemonic.ErrInvalidWordCount) {
		t.Errorf("seedPhrase(mobile, 24 words) error = %v, want ErrInvalidWordCount", err)
	}
}

func TestLogVerified(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.log")
	if err := log.Init("info", true, path); err != nil {
		t.Fatalf("log.Init() error: %v", err)
	}
	defer log.Init("warn", false, "")

	kp, err := crypto.GenerateKeyPair(testTag)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}
	logVerified("main", kp.PublicKey())

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["wallet"] != "main" || entry["address"] != kp.PublicKey().String() {
		t.Errorf("entry = %v", entry)
	}
}
