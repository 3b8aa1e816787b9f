// shardwallet is a command-line tool for creating and unlocking encrypted
// and sharded wallets.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/Klingon-tech/shardwallet/config"
	"github.com/Klingon-tech/shardwallet/internal/log"
	"github.com/Klingon-tech/shardwallet/internal/mnemonic"
	"github.com/Klingon-tech/shardwallet/internal/wallet"
	"github.com/Klingon-tech/shardwallet/pkg/crypto"
	"golang.org/x/term"
)

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		config.PrintUsage(os.Stdout)
		return
	}
	if err != nil {
		fatal("%v", err)
	}
	if flags.Version {
		fmt.Printf("shardwallet %s\n", config.Version)
		return
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	args := flags.Args
	if len(args) == 0 {
		config.PrintUsage(os.Stderr)
		os.Exit(1)
	}

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	log.CLI.Debug().Str("network", string(cfg.Network)).Str("keystore", ks.Dir()).Str("command", args[0]).Msg("Starting")

	switch args[0] {
	case "create":
		cmdCreate(args[1:], cfg, ks)
	case "info":
		cmdInfo(args[1:], ks)
	case "verify":
		cmdVerify(args[1:], ks)
	case "export-seed":
		cmdExportSeed(args[1:], cfg, ks)
	case "list":
		cmdList(ks)
	case "delete":
		cmdDelete(args[1:], ks)
	case "help":
		config.PrintUsage(os.Stdout)
	default:
		fatal("unknown command: %s", args[0])
	}
}

// ── Create ──────────────────────────────────────────────────────────────

func cmdCreate(args []string, cfg *config.Config, ks *wallet.Keystore) {
	if len(args) < 1 {
		fatal("Usage: shardwallet create <basic|sharded> --name <name> [options]")
	}
	kind := args[0]
	if kind != "basic" && kind != "sharded" {
		fatal("unknown wallet kind %q (want basic or sharded)", kind)
	}

	fs := flag.NewFlagSet("create "+kind, flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fromSeed := fs.Bool("seed", false, "Restore the key from a seed phrase")
	seedType := fs.String("seed-type", cfg.Wallet.SeedType, "Seed phrase type (bip39 or mobile)")
	words := fs.Int("words", 0, "Words in a new seed phrase (12 or 24)")
	keyType := fs.String("key-type", cfg.Wallet.KeyType, "Key type (ed25519 or secp256k1)")
	iterations := fs.Uint("iterations", uint(cfg.Wallet.Iterations), "PBKDF2 iterations")
	shards := fs.Int("shards", cfg.Wallet.Shards, "Number of key shares (sharded only)")
	required := fs.Int("required", cfg.Wallet.Threshold, "Shares required to unlock (sharded only)")
	force := fs.Bool("force", false, "Overwrite an existing wallet")
	fs.Parse(args[1:])

	if *name == "" {
		fatal("Usage: shardwallet create %s --name <name>", kind)
	}
	if ks.Exists(*name) && !*force {
		fatal("wallet %q already exists (use --force to overwrite)", *name)
	}
	if *iterations == 0 || *iterations > uint(^uint32(0)) {
		fatal("invalid --iterations %d", *iterations)
	}
	if kind == "sharded" {
		if err := config.ValidateShards(*shards, *required); err != nil {
			fatal("%v", err)
		}
	}

	cfg.Wallet.KeyType = *keyType
	tag, err := cfg.KeyTag()
	if err != nil {
		fatal("%v", err)
	}
	st, err := mnemonic.ParseSeedType(*seedType)
	if err != nil {
		fatal("%v", err)
	}

	var entropy [mnemonic.EntropySize]byte
	if *fromSeed {
		phrase, err := readPassword("Enter seed words: ")
		if err != nil {
			fatal("read seed: %v", err)
		}
		entropy, err = mnemonic.MnemonicToEntropy(mnemonic.ParsePhrase(string(phrase)), st)
		clear(phrase)
		if err != nil {
			fatal("invalid seed phrase: %v", err)
		}
	} else {
		n := *words
		if n == 0 {
			n = defaultWordCount(st)
		}
		entropy, err = mnemonic.NewEntropy(n)
		if err != nil {
			fatal("generate entropy: %v", err)
		}
		phrase, err := mnemonic.EntropyToMnemonic(entropy[:], st)
		if err != nil {
			fatal("encode seed: %v", err)
		}
		fmt.Println("Seed phrase (write this down!):")
		fmt.Printf("  %s\n\n", mnemonic.JoinPhrase(phrase))
	}

	kp, err := crypto.KeyPairFromEntropy(tag, entropy[:])
	clear(entropy[:])
	if err != nil {
		fatal("derive key: %v", err)
	}
	defer kp.Zero()

	password := readNewPassword()
	defer clear(password)

	salt, err := wallet.NewSalt()
	if err != nil {
		fatal("%v", err)
	}

	switch kind {
	case "basic":
		dec, err := wallet.NewBasic(kp, uint32(*iterations))
		if err != nil {
			fatal("%v", err)
		}
		enc, err := dec.Encrypt(password, salt)
		if err != nil {
			fatal("encrypt wallet: %v", err)
		}
		if err := ks.Save(*name, enc, *force); err != nil {
			fatal("save wallet: %v", err)
		}
	case "sharded":
		dec, err := wallet.NewSharded(kp, uint32(*iterations), uint8(*shards), uint8(*required))
		if err != nil {
			fatal("%v", err)
		}
		recs, err := wallet.CreateShards(dec, password, salt)
		if err != nil {
			fatal("create shards: %v", err)
		}
		if err := ks.SaveShards(*name, recs, *force); err != nil {
			fatal("save shards: %v", err)
		}
	}

	fmt.Printf("Wallet %q created.\n", *name)
	fmt.Printf("Address: %s\n", kp.PublicKey())
	if kind == "sharded" {
		fmt.Printf("Shares:  %d (any %d unlock the wallet)\n", *shards, *required)
		fmt.Printf("Files:   %s/%s.key.1 .. %s.key.%d\n", ks.Dir(), *name, *name, *shards)
	}
}

func defaultWordCount(st mnemonic.SeedType) int {
	if st == mnemonic.SeedTypeMobile {
		return 12
	}
	return 24
}

// ── Info ────────────────────────────────────────────────────────────────

func cmdInfo(args []string, ks *wallet.Keystore) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: shardwallet info --name <name>")
	}
	files := loadWallet(ks, *name)
	first := files[0]
	pub := first.PublicKey()

	fmt.Printf("Name:       %s\n", *name)
	fmt.Printf("Kind:       %s\n", first.Kind())
	fmt.Printf("Address:    %s\n", pub)
	fmt.Printf("Network:    %s\n", pub.Tag().Network)
	fmt.Printf("Key type:   %s\n", pub.KeyType())

	switch w := first.(type) {
	case *wallet.EncryptedBasic:
		fmt.Printf("Iterations: %d\n", w.Params().Iterations)
	case *wallet.EncryptedSharded:
		fmt.Printf("Iterations: %d\n", w.Params().Iterations)
		fmt.Printf("Shares:     %d of %d present, %d required\n", len(files), w.ShareCount(), w.Threshold())
	}
}

// ── Verify ──────────────────────────────────────────────────────────────

func cmdVerify(args []string, ks *wallet.Keystore) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: shardwallet verify --name <name>")
	}
	kp := unlockWallet(ks, *name)
	defer kp.Zero()

	if err := checkKeyPair(kp); err != nil {
		fatal("%v", err)
	}
	logVerified(*name, kp.PublicKey())
	fmt.Printf("Wallet %q unlocked.\n", *name)
	fmt.Printf("Address: %s\n", kp.PublicKey())
}

func logVerified(name string, pub crypto.PublicKey) {
	log.CLI.Info().Str("wallet", name).Str("address", pub.String()).Msg("Key pair verified")
}

// checkKeyPair signs a fixed challenge and verifies it with the public key.
func checkKeyPair(kp *crypto.KeyPair) error {
	challenge := crypto.Hash([]byte("shardwallet verify " + kp.PublicKey().String()))
	sig, err := kp.Sign(challenge[:])
	if err != nil {
		return fmt.Errorf("sign challenge: %w", err)
	}
	if !crypto.Verify(kp.PublicKey(), challenge[:], sig) {
		return fmt.Errorf("signature does not verify against %s", kp.PublicKey())
	}
	return nil
}

// ── Export seed ─────────────────────────────────────────────────────────

func cmdExportSeed(args []string, cfg *config.Config, ks *wallet.Keystore) {
	fs := flag.NewFlagSet("export-seed", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	seedType := fs.String("seed-type", cfg.Wallet.SeedType, "Seed phrase type (bip39 or mobile)")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: shardwallet export-seed --name <name>")
	}
	st, err := mnemonic.ParseSeedType(*seedType)
	if err != nil {
		fatal("%v", err)
	}

	kp := unlockWallet(ks, *name)
	defer kp.Zero()

	phrase, err := seedPhrase(kp, st)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println("Seed phrase (keep this secret!):")
	fmt.Printf("  %s\n", mnemonic.JoinPhrase(phrase))
}

// seedPhrase encodes the key pair secret and checks that the phrase restores
// the same key. Mobile phrases only encode keys created from 12 words.
func seedPhrase(kp *crypto.KeyPair, st mnemonic.SeedType) ([]string, error) {
	secret := kp.Secret()
	defer clear(secret)

	phrase, err := mnemonic.EntropyToMnemonic(secret, st)
	if err != nil {
		return nil, fmt.Errorf("encode seed: %w", err)
	}
	entropy, err := mnemonic.MnemonicToEntropy(phrase, st)
	defer clear(entropy[:])
	if err != nil {
		return nil, fmt.Errorf("key has no %s seed phrase: %w", st, err)
	}
	restored, err := crypto.KeyPairFromEntropy(kp.PublicKey().Tag(), entropy[:])
	if err != nil {
		return nil, err
	}
	defer restored.Zero()
	if restored.PublicKey() != kp.PublicKey() {
		return nil, fmt.Errorf("key has no %s seed phrase", st)
	}
	return phrase, nil
}

// ── List / Delete ───────────────────────────────────────────────────────

func cmdList(ks *wallet.Keystore) {
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No wallets found.")
		return
	}
	for _, name := range names {
		files, err := ks.Load(name)
		if err != nil {
			fmt.Printf("  %-20s  (unreadable: %v)\n", name, err)
			continue
		}
		fmt.Printf("  %-20s  %-8s %s\n", name, files[0].Kind(), files[0].PublicKey())
	}
}

func cmdDelete(args []string, ks *wallet.Keystore) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: shardwallet delete --name <name> [--yes]")
	}
	if !ks.Exists(*name) {
		fatal("wallet %q not found", *name)
	}
	if !*yes {
		fmt.Fprintf(os.Stderr, "Delete wallet %q and all its shard files? [y/N]: ", *name)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("Aborted.")
			return
		}
	}
	if err := ks.Delete(*name); err != nil {
		fatal("delete wallet: %v", err)
	}
	fmt.Printf("Wallet %q deleted.\n", *name)
}

// ── Wallet helpers ──────────────────────────────────────────────────────

func loadWallet(ks *wallet.Keystore, name string) []wallet.Wallet {
	files, err := ks.Load(name)
	if err != nil {
		fatal("load wallet: %v", err)
	}
	return files
}

func unlockWallet(ks *wallet.Keystore, name string) *crypto.KeyPair {
	files := loadWallet(ks, name)
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	defer clear(password)

	kp, err := wallet.Unlock(files, password)
	if errors.Is(err, wallet.ErrAuthentication) {
		fatal("wrong password or corrupted wallet")
	}
	if err != nil {
		fatal("unlock wallet: %v", err)
	}
	return kp
}

// ── Password helper ─────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func readNewPassword() []byte {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	defer clear(confirm)
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	if len(password) == 0 {
		fatal("password must not be empty")
	}
	return password
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
